package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/alaincodes24/taskdeck/internal/models"
)

type projectsEnvelope struct {
	Projects []models.Project `json:"projects"`
}

type projectEnvelope struct {
	Project models.Project `json:"project"`
}

// ListProjects returns every project visible to the user
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var env projectsEnvelope
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &env); err != nil {
		return nil, err
	}
	if env.Projects == nil {
		env.Projects = []models.Project{}
	}
	return env.Projects, nil
}

// CreateProject creates a project and returns the server's copy
func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	var env projectEnvelope
	if err := c.do(ctx, http.MethodPost, "/projects", in, &env); err != nil {
		return models.Project{}, err
	}
	if env.Project.ID == 0 {
		return models.Project{}, missingEntity(http.MethodPost, "/projects")
	}
	return env.Project, nil
}

// UpdateProject applies a partial update and returns the full project
func (c *Client) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	var env projectEnvelope
	path := "/projects/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPut, path, in, &env); err != nil {
		return models.Project{}, err
	}
	if env.Project.ID == 0 {
		return models.Project{}, missingEntity(http.MethodPut, path)
	}
	return env.Project, nil
}

// DeleteProject deletes a project
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/projects/"+strconv.FormatInt(id, 10), nil, nil)
}
