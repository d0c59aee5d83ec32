package views

import (
	"context"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alaincodes24/taskdeck/internal/collection"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/session"
)

// Sessions is what the views need from the session store
type Sessions interface {
	Login(ctx context.Context, email, password string) (models.User, error)
	Register(ctx context.Context, in models.RegisterInput) (models.User, error)
	Logout(ctx context.Context)
	Snapshot() session.Snapshot
}

// Collections is what the views need from the collection store
type Collections interface {
	Snapshot() collection.Snapshot
	Refresh(ctx context.Context) error

	CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, in models.TaskInput) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Page is a full screen view hosted by the app
type Page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
	// Capturing reports whether keystrokes are going into a text field or
	// a modal, so app-wide shortcuts must not fire
	Capturing() bool
}

// DataMsg carries a fresh collection snapshot to the pages
type DataMsg struct {
	Snapshot collection.Snapshot
}

// OpenProject asks the app to show the tasks of one project
type OpenProject struct {
	ID int64
}

// savedMsg reports the end of a create, update or delete
type savedMsg struct {
	err error
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// cycle returns the element after (dir > 0) or before cur in options,
// wrapping around. An unknown cur starts from the first element.
func cycle[T comparable](options []T, cur T, dir int) T {
	i := slices.Index(options, cur)
	if i < 0 {
		return options[0]
	}
	n := len(options)
	return options[((i+dir)%n+n)%n]
}
