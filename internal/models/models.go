package models

import "time"

// User is the authenticated account as returned by the API
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectStatus is the lifecycle state of a project
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// ProjectStatuses lists every project status in display order
var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled}

// TaskStatus is the progress state of a task
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every task status in display order
var TaskStatuses = []TaskStatus{TaskPending, TaskInProgress, TaskCompleted}

// Priority is the urgency of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Rank orders priorities; unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Label renders a status for display ("in_progress" -> "in progress")
func (s TaskStatus) Label() string {
	if s == TaskInProgress {
		return "in progress"
	}
	return string(s)
}

// Label renders a project status for display
func (s ProjectStatus) Label() string {
	if s == ProjectOnHold {
		return "on hold"
	}
	return string(s)
}

// Project represents a task management project
type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	TasksCount  *int          `json:"tasks_count,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Task represents a single task
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *Date      `json:"due_date,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProjectInput is a partial project used for create and update requests.
// Nil fields are left out of the request body.
type ProjectInput struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

// TaskInput is a partial task used for create and update requests.
// Nil fields are left out of the request body.
type TaskInput struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	DueDate     *Date       `json:"due_date,omitempty"`
	ProjectID   *int64      `json:"project_id,omitempty"`
}

// RegisterInput is the payload for creating an account
type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Ptr returns a pointer to v, for filling partial inputs
func Ptr[T any](v T) *T {
	return &v
}
