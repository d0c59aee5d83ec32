// Package query filters, sorts and summarizes collection snapshots for
// display. Nothing here modifies its input.
package query

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/alaincodes24/taskdeck/internal/models"
)

// FilterProjects keeps projects whose name or description contains search,
// ignoring case
func FilterProjects(projects []models.Project, search string) []models.Project {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out
}

type Progress struct {
	Total     int
	Completed int
}

// Percent is the completed share rounded to a whole number
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(float64(p.Completed) * 100 / float64(p.Total)))
}

// ProjectProgress counts the tasks belonging to projectID
func ProjectProgress(projectID int64, tasks []models.Task) Progress {
	var p Progress
	for _, t := range tasks {
		if t.ProjectID == nil || *t.ProjectID != projectID {
			continue
		}
		p.Total++
		if t.Status == models.TaskCompleted {
			p.Completed++
		}
	}
	return p
}

// TaskFilter narrows a task list. Zero fields match everything.
type TaskFilter struct {
	Search    string
	Status    models.TaskStatus
	Priority  models.Priority
	ProjectID *int64
}

func (f TaskFilter) match(t models.Task, needle string) bool {
	if needle != "" &&
		!strings.Contains(strings.ToLower(t.Title), needle) &&
		!strings.Contains(strings.ToLower(t.Description), needle) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *f.ProjectID) {
		return false
	}
	return true
}

// FilterTasks returns the tasks matching f in their original order
func FilterTasks(tasks []models.Task, f TaskFilter) []models.Task {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.match(t, needle) {
			out = append(out, t)
		}
	}
	return out
}

type SortKey string

const (
	SortCreated  SortKey = "created_at"
	SortTitle    SortKey = "title"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "due_date"
	SortStatus   SortKey = "status"
)

// SortKeys in the order the UI cycles through them
var SortKeys = []SortKey{SortCreated, SortTitle, SortPriority, SortDueDate, SortStatus}

func (k SortKey) Label() string {
	switch k {
	case SortTitle:
		return "Title"
	case SortPriority:
		return "Priority"
	case SortDueDate:
		return "Due date"
	case SortStatus:
		return "Status"
	}
	return "Created"
}

// Next returns the key after k in SortKeys, wrapping around
func (k SortKey) Next() SortKey {
	i := slices.Index(SortKeys, k)
	return SortKeys[(i+1)%len(SortKeys)]
}

// SortTasks returns a sorted copy of tasks. Unknown keys sort by creation
// time, newest first. Ties keep their original order.
func SortTasks(tasks []models.Task, key SortKey) []models.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, compareFor(key))
	return out
}

func compareFor(key SortKey) func(a, b models.Task) int {
	switch key {
	case SortTitle:
		return func(a, b models.Task) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortPriority:
		return func(a, b models.Task) int {
			return cmp.Compare(b.Priority.Rank(), a.Priority.Rank())
		}
	case SortDueDate:
		return func(a, b models.Task) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			}
			return a.DueDate.Compare(b.DueDate.Time)
		}
	case SortStatus:
		return func(a, b models.Task) int {
			return cmp.Compare(a.Status, b.Status)
		}
	}
	return func(a, b models.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	}
}

// Stats summarizes the collections for the profile view
type Stats struct {
	Projects       int
	ActiveProjects int
	Tasks          int
	Completed      int
	Pending        int
	InProgress     int
	Active         int // pending + in progress
	CompletionRate int // percent, rounded
}

func ComputeStats(projects []models.Project, tasks []models.Task) Stats {
	st := Stats{Projects: len(projects), Tasks: len(tasks)}
	for _, p := range projects {
		if p.Status == models.ProjectActive {
			st.ActiveProjects++
		}
	}
	for _, t := range tasks {
		switch t.Status {
		case models.TaskCompleted:
			st.Completed++
		case models.TaskPending:
			st.Pending++
		case models.TaskInProgress:
			st.InProgress++
		}
	}
	st.Active = st.Pending + st.InProgress
	st.CompletionRate = Progress{Total: st.Tasks, Completed: st.Completed}.Percent()
	return st
}
