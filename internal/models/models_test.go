package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTaskDecodesAPIShape(t *testing.T) {
	input := `{
		"id": 7,
		"title": "Write report",
		"description": null,
		"status": "in_progress",
		"priority": "high",
		"due_date": "2024-03-05",
		"project_id": 3,
		"created_at": "2024-03-01T09:30:00.000000Z",
		"updated_at": "2024-03-02T10:00:00.000000Z"
	}`

	var task Task
	if err := json.Unmarshal([]byte(input), &task); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if task.ID != 7 || task.Title != "Write report" {
		t.Errorf("unexpected identity: %+v", task)
	}
	if task.Description != "" {
		t.Errorf("expected empty description, got %q", task.Description)
	}
	if task.ProjectID == nil || *task.ProjectID != 3 {
		t.Errorf("expected project_id 3, got %v", task.ProjectID)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if task.DueDate == nil || !task.DueDate.Equal(want) {
		t.Errorf("expected due date %v, got %v", want, task.DueDate)
	}
	if task.CreatedAt.IsZero() {
		t.Error("expected created_at to be parsed")
	}
}

func TestDateAcceptsTimestamps(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-05T00:00:00.000000Z"`), &d); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if d.String() != "2024-03-05" {
		t.Errorf("expected 2024-03-05, got %s", d)
	}
	if err := json.Unmarshal([]byte(`"next tuesday"`), &d); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestTaskInputOmitsNilFields(t *testing.T) {
	in := TaskInput{Title: Ptr("T"), Status: Ptr(TaskPending)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `{"title":"T","status":"pending"}` {
		t.Errorf("unexpected body %s", b)
	}
}

func TestProjectLabel(t *testing.T) {
	projects := []Project{{ID: 1, Name: "Website"}}

	if got := ProjectLabel(Task{Title: "T"}, projects); got != NoProjectLabel {
		t.Errorf("expected %q, got %q", NoProjectLabel, got)
	}
	if got := ProjectLabel(Task{ProjectID: Ptr(int64(1))}, projects); got != "Website" {
		t.Errorf("expected Website, got %q", got)
	}
	if got := ProjectLabel(Task{ProjectID: Ptr(int64(99))}, projects); got != UnknownProjectLabel {
		t.Errorf("expected %q, got %q", UnknownProjectLabel, got)
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := &Date{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	future := &Date{time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"past and pending", Task{Status: TaskPending, DueDate: past}, true},
		{"past and in progress", Task{Status: TaskInProgress, DueDate: past}, true},
		{"past and completed", Task{Status: TaskCompleted, DueDate: past}, false},
		{"future", Task{Status: TaskPending, DueDate: future}, false},
		{"no due date", Task{Status: TaskPending}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overdue(tt.task, now); got != tt.want {
				t.Errorf("Overdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityHigh.Rank() > PriorityMedium.Rank() && PriorityMedium.Rank() > PriorityLow.Rank()) {
		t.Error("expected high > medium > low")
	}
	if Priority("urgent").Rank() != 0 {
		t.Error("expected unknown priority to rank 0")
	}
}
