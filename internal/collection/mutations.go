package collection

import (
	"context"

	"github.com/alaincodes24/taskdeck/internal/api"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/notify"
)

// CreateProject creates a project and appends the server's copy
func (s *Store) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	gen, err := s.begin()
	if err != nil {
		return models.Project{}, err
	}

	p, err := s.api.CreateProject(ctx, in)
	if err != nil {
		return models.Project{}, s.fail("create project", err, api.UserMessage(err, "Failed to create project"))
	}
	s.apply(gen, func() { s.projects = append(s.projects, p) })
	s.success(notify.Success, "Project created successfully")
	return p, nil
}

// UpdateProject sends a partial update and replaces the local entry with
// the server's full representation. An id that is not held locally is
// not added.
func (s *Store) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	gen, err := s.begin()
	if err != nil {
		return models.Project{}, err
	}

	p, err := s.api.UpdateProject(ctx, id, in)
	if err != nil {
		return models.Project{}, s.fail("update project", err, api.UserMessage(err, "Failed to update project"))
	}
	s.apply(gen, func() {
		for i := range s.projects {
			if s.projects[i].ID == id {
				s.projects[i] = p
			}
		}
	})
	s.success(notify.Success, "Project updated successfully")
	return p, nil
}

// DeleteProject deletes a project. Its tasks are dropped locally in the
// same step, whether or not the server cascaded.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	if err := s.api.DeleteProject(ctx, id); err != nil {
		return s.fail("delete project", err, api.UserMessage(err, "Failed to delete project"))
	}
	s.apply(gen, func() {
		s.projects = removeProject(s.projects, id)
		s.tasks = removeTasks(s.tasks, func(t models.Task) bool {
			return t.ProjectID != nil && *t.ProjectID == id
		})
	})
	s.success(notify.Info, "Project deleted successfully")
	return nil
}

// CreateTask creates a task and appends the server's copy
func (s *Store) CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error) {
	gen, err := s.begin()
	if err != nil {
		return models.Task{}, err
	}

	t, err := s.api.CreateTask(ctx, in)
	if err != nil {
		return models.Task{}, s.fail("create task", err, api.UserMessage(err, "Failed to create task"))
	}
	s.apply(gen, func() { s.tasks = append(s.tasks, t) })
	s.success(notify.Success, "Task created successfully")
	return t, nil
}

// UpdateTask sends a partial update and replaces the local entry with the
// server's full representation
func (s *Store) UpdateTask(ctx context.Context, id int64, in models.TaskInput) (models.Task, error) {
	gen, err := s.begin()
	if err != nil {
		return models.Task{}, err
	}

	t, err := s.api.UpdateTask(ctx, id, in)
	if err != nil {
		return models.Task{}, s.fail("update task", err, api.UserMessage(err, "Failed to update task"))
	}
	s.apply(gen, func() {
		for i := range s.tasks {
			if s.tasks[i].ID == id {
				s.tasks[i] = t
			}
		}
	})
	s.success(notify.Success, "Task updated successfully")
	return t, nil
}

// DeleteTask deletes a task and drops it locally
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}

	if err := s.api.DeleteTask(ctx, id); err != nil {
		return s.fail("delete task", err, api.UserMessage(err, "Failed to delete task"))
	}
	s.apply(gen, func() {
		s.tasks = removeTasks(s.tasks, func(t models.Task) bool { return t.ID == id })
	})
	s.success(notify.Success, "Task deleted successfully")
	return nil
}

func removeProject(projects []models.Project, id int64) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func removeTasks(tasks []models.Task, drop func(models.Task) bool) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if !drop(t) {
			out = append(out, t)
		}
	}
	return out
}
