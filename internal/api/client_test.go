package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alaincodes24/taskdeck/internal/apitest"
	"github.com/alaincodes24/taskdeck/internal/models"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(Options{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func TestLoginAndBearerHeader(t *testing.T) {
	srv, url := apitest.Start(t)
	srv.SeedUser("Ada", "a@b.com", "password1")
	client := newTestClient(t, url)
	ctx := context.Background()

	res, err := client.Login(ctx, "a@b.com", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Token == "" || res.User.Email != "a@b.com" {
		t.Fatalf("unexpected login result %+v", res)
	}
	if got := srv.LastAuthorization(); got != "" {
		t.Fatalf("expected no Authorization header without a token, got %q", got)
	}

	client.SetTokenSource(TokenFunc(func() string { return res.Token }))
	user, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != res.User.ID {
		t.Fatalf("expected user %d, got %d", res.User.ID, user.ID)
	}
	if got := srv.LastAuthorization(); got != "Bearer "+res.Token {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestRegisterFlatEnvelope(t *testing.T) {
	_, url := apitest.Start(t)
	client := newTestClient(t, url)

	res, err := client.Register(context.Background(), models.RegisterInput{
		Name:                 "Grace",
		Email:                "grace@example.com",
		Password:             "password1",
		PasswordConfirmation: "password1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Token == "" || res.User.Name != "Grace" {
		t.Fatalf("unexpected register result %+v", res)
	}
}

func TestUnauthorizedRunsHandlersBeforeReturning(t *testing.T) {
	srv, url := apitest.Start(t)
	client := newTestClient(t, url)
	client.SetTokenSource(TokenFunc(func() string { return "bogus" }))

	var calls int
	client.OnUnauthorized(func() { calls++ })

	_, err := client.ListProjects(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Kind != KindUnauthorized || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", apiErr)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once before return, ran %d times", calls)
	}
	if srv.Requests("GET /projects") != 1 {
		t.Fatalf("expected exactly one request, no retries")
	}
}

func TestErrorClassification(t *testing.T) {
	srv, url := apitest.Start(t)
	user := srv.SeedUser("Ada", "a@b.com", "password1")
	token := srv.IssueToken(user.ID, time.Hour)
	client := newTestClient(t, url)
	client.SetTokenSource(TokenFunc(func() string { return token }))
	ctx := context.Background()

	_, err := client.CreateProject(ctx, models.ProjectInput{Description: models.Ptr("no name")})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apiErr.Message != "The name field is required." {
		t.Fatalf("expected server message, got %q", apiErr.Message)
	}
	if apiErr.RequestID == "" {
		t.Fatal("expected request id on error")
	}

	srv.Fail("GET /tasks", http.StatusInternalServerError, "boom", true)
	_, err = client.ListTasks(ctx)
	if !errors.As(err, &apiErr) || apiErr.Kind != KindServer || apiErr.Message != "boom" {
		t.Fatalf("expected server error with message, got %v", err)
	}
	if srv.Requests("GET /tasks") != 1 {
		t.Fatalf("expected no retry after server error")
	}
}

func TestNetworkError(t *testing.T) {
	app := httptest.NewServer(http.NotFoundHandler())
	url := app.URL
	app.Close()

	client := newTestClient(t, url)
	_, err := client.ListProjects(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestDecodeError(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"projects": "nope"`)
	}))
	defer app.Close()

	client := newTestClient(t, app.URL)
	_, err := client.ListProjects(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestMeAcceptsBareUser(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id": 4, "name": "Bare", "email": "bare@example.com"}`)
	}))
	defer app.Close()

	user, err := newTestClient(t, app.URL).Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != 4 || user.Email != "bare@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestLoginWithoutTokenIsDecodeError(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"payload": {"user": {"id": 1}}}`)
	}))
	defer app.Close()

	_, err := newTestClient(t, app.URL).Login(context.Background(), "a@b.com", "x")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestWriteWithoutEntityIsDecodeError(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message": "ok"}`)
	}))
	defer app.Close()

	client := newTestClient(t, app.URL)
	ctx := context.Background()
	_, projectErr := client.CreateProject(ctx, models.ProjectInput{Name: models.Ptr("P")})
	_, updateErr := client.UpdateProject(ctx, 3, models.ProjectInput{Name: models.Ptr("P")})
	_, taskErr := client.CreateTask(ctx, models.TaskInput{Title: models.Ptr("T")})
	_, taskUpdateErr := client.UpdateTask(ctx, 4, models.TaskInput{Title: models.Ptr("T")})

	for name, err := range map[string]error{
		"create project": projectErr,
		"update project": updateErr,
		"create task":    taskErr,
		"update task":    taskUpdateErr,
	} {
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Kind != KindDecode {
			t.Errorf("%s: expected decode error, got %v", name, err)
		}
	}
}

func TestTaskCRUD(t *testing.T) {
	srv, url := apitest.Start(t)
	user := srv.SeedUser("Ada", "a@b.com", "password1")
	token := srv.IssueToken(user.ID, time.Hour)
	client := newTestClient(t, url)
	client.SetTokenSource(TokenFunc(func() string { return token }))
	ctx := context.Background()

	created, err := client.CreateTask(ctx, models.TaskInput{
		Title:    models.Ptr("T"),
		Status:   models.Ptr(models.TaskPending),
		Priority: models.Ptr(models.PriorityMedium),
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("expected server assigned id and timestamps, got %+v", created)
	}
	if body := string(srv.LastBody("POST /tasks")); strings.Contains(body, "project_id") {
		t.Fatalf("expected nil project_id to be omitted, body %s", body)
	}

	updated, err := client.UpdateTask(ctx, created.ID, models.TaskInput{Status: models.Ptr(models.TaskCompleted)})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if updated.Status != models.TaskCompleted || updated.Title != "T" {
		t.Fatalf("expected full representation after patch, got %+v", updated)
	}

	if err := client.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
}
