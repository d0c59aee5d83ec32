package models

import "time"

const (
	NoProjectLabel      = "No Project"
	UnknownProjectLabel = "Unknown Project"
)

// ProjectLabel names the project a task belongs to. The project id is a
// soft reference, so a project missing from the local collection is not
// an error.
func ProjectLabel(t Task, projects []Project) string {
	if t.ProjectID == nil {
		return NoProjectLabel
	}
	for _, p := range projects {
		if p.ID == *t.ProjectID {
			return p.Name
		}
	}
	return UnknownProjectLabel
}

// Overdue reports whether an unfinished task is past its due date
func Overdue(t Task, now time.Time) bool {
	if t.DueDate == nil || t.DueDate.IsZero() || t.Status == TaskCompleted {
		return false
	}
	return t.DueDate.Before(now)
}
