package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/alaincodes24/taskdeck/internal/models"
)

type tasksEnvelope struct {
	Tasks []models.Task `json:"tasks"`
}

type taskEnvelope struct {
	Task models.Task `json:"task"`
}

// ListTasks returns every task visible to the user
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var env tasksEnvelope
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &env); err != nil {
		return nil, err
	}
	if env.Tasks == nil {
		env.Tasks = []models.Task{}
	}
	return env.Tasks, nil
}

// CreateTask creates a task and returns the server's copy
func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error) {
	var env taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &env); err != nil {
		return models.Task{}, err
	}
	if env.Task.ID == 0 {
		return models.Task{}, missingEntity(http.MethodPost, "/tasks")
	}
	return env.Task, nil
}

// UpdateTask applies a partial update and returns the full task
func (c *Client) UpdateTask(ctx context.Context, id int64, in models.TaskInput) (models.Task, error) {
	var env taskEnvelope
	path := "/tasks/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, in, &env); err != nil {
		return models.Task{}, err
	}
	if env.Task.ID == 0 {
		return models.Task{}, missingEntity(http.MethodPut, path)
	}
	return env.Task, nil
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}
