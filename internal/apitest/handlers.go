package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/alaincodes24/taskdeck/internal/models"
)

const tokenTTL = 24 * time.Hour

type authCtx struct {
	user  models.User
	token string
}

func withUser(r *http.Request, u models.User, token string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, authCtx{user: u, token: token}))
}

func currentUser(r *http.Request) authCtx {
	a, _ := r.Context().Value(ctxUserKey{}).(authCtx)
	return a
}

// readAll drains the body and puts a fresh reader back for the handler
func readAll(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, err
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func validation(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": message})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(r, &req) {
		validation(w, "Invalid request body.")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	token := s.IssueToken(acc.user.ID, tokenTTL)
	writeJSON(w, http.StatusOK, map[string]any{
		"payload": map[string]any{"token": token, "user": acc.user},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterInput
	if !decode(r, &req) {
		validation(w, "Invalid request body.")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case strings.TrimSpace(req.Name) == "":
		validation(w, "The name field is required.")
		return
	case req.Email == "":
		validation(w, "The email field is required.")
		return
	case len(req.Password) < 8:
		validation(w, "The password field must be at least 8 characters.")
		return
	case req.Password != req.PasswordConfirmation:
		validation(w, "The password field confirmation does not match.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Server Error"})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		validation(w, "The email has already been taken.")
		return
	}
	user := s.addAccountLocked(req.Name, req.Email, hash)
	s.mu.Unlock()

	token := s.IssueToken(user.ID, tokenTTL)
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	a := currentUser(r)
	s.mu.Lock()
	s.revoked[a.token] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"payload": currentUser(r).user})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": what + " not found."})
}

func validProjectStatus(st models.ProjectStatus) bool {
	for _, v := range models.ProjectStatuses {
		if v == st {
			return true
		}
	}
	return false
}

func validTaskStatus(st models.TaskStatus) bool {
	for _, v := range models.TaskStatuses {
		if v == st {
			return true
		}
	}
	return false
}

func validPriority(p models.Priority) bool {
	for _, v := range models.Priorities {
		if v == p {
			return true
		}
	}
	return false
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	uid := currentUser(r).user.ID
	s.mu.Lock()
	out := make([]models.Project, 0)
	for id, p := range s.projects {
		if s.owners[id] == uid {
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"projects": out})
}

func (s *Server) applyProject(p *models.Project, in models.ProjectInput) string {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if p.Name == "" {
		return "The name field is required."
	}
	if !validProjectStatus(p.Status) {
		return "The selected status is invalid."
	}
	return ""
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectInput
	if !decode(r, &in) {
		validation(w, "Invalid request body.")
		return
	}
	p := models.Project{Status: models.ProjectActive}
	if msg := s.applyProject(&p, in); msg != "" {
		validation(w, msg)
		return
	}
	p = s.SeedProject(currentUser(r).user.ID, p)
	writeJSON(w, http.StatusCreated, map[string]any{"project": p})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	var in models.ProjectInput
	if !ok || !decode(r, &in) {
		validation(w, "Invalid request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.projects[id]
	if !exists || s.owners[id] != currentUser(r).user.ID {
		notFound(w, "Project")
		return
	}
	if msg := s.applyProject(&p, in); msg != "" {
		validation(w, msg)
		return
	}
	p.UpdatedAt = s.now().UTC()
	s.projects[id] = p
	writeJSON(w, http.StatusOK, map[string]any{"project": p})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		validation(w, "Invalid request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[id]; !exists || s.owners[id] != currentUser(r).user.ID {
		notFound(w, "Project")
		return
	}
	delete(s.projects, id)
	if s.CascadeTasks {
		for tid, t := range s.tasks {
			if t.ProjectID != nil && *t.ProjectID == id {
				delete(s.tasks, tid)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	uid := currentUser(r).user.ID
	s.mu.Lock()
	out := make([]models.Task, 0)
	for id, t := range s.tasks {
		if s.owners[id] == uid {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) applyTask(t *models.Task, in models.TaskInput) string {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.ProjectID != nil {
		pid := *in.ProjectID
		t.ProjectID = &pid
	}
	switch {
	case t.Title == "":
		return "The title field is required."
	case !validTaskStatus(t.Status):
		return "The selected status is invalid."
	case !validPriority(t.Priority):
		return "The selected priority is invalid."
	}
	return ""
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if !decode(r, &in) {
		validation(w, "Invalid request body.")
		return
	}
	t := models.Task{Status: models.TaskPending, Priority: models.PriorityMedium}
	if msg := s.applyTask(&t, in); msg != "" {
		validation(w, msg)
		return
	}
	t = s.SeedTask(currentUser(r).user.ID, t)
	writeJSON(w, http.StatusCreated, map[string]any{"task": t})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	var in models.TaskInput
	if !ok || !decode(r, &in) {
		validation(w, "Invalid request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.tasks[id]
	if !exists || s.owners[id] != currentUser(r).user.ID {
		notFound(w, "Task")
		return
	}
	if msg := s.applyTask(&t, in); msg != "" {
		validation(w, msg)
		return
	}
	t.UpdatedAt = s.now().UTC()
	s.tasks[id] = t
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		validation(w, "Invalid request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[id]; !exists || s.owners[id] != currentUser(r).user.ID {
		notFound(w, "Task")
		return
	}
	delete(s.tasks, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}
