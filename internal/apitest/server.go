// Package apitest runs an in-process stand-in for the remote task API so
// the client stack can be exercised end to end over real HTTP.
package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alaincodes24/taskdeck/internal/models"
)

type account struct {
	user models.User
	hash []byte
}

type fault struct {
	status  int
	message string
	once    bool
}

// Server is a fake API. All state is in memory and guarded by mu.
type Server struct {
	// CascadeTasks controls whether deleting a project deletes its tasks server side
	CascadeTasks bool

	secret []byte
	now    func() time.Time

	mu         sync.Mutex
	nextID     int64
	accounts   map[string]*account // by email
	revoked    map[string]bool
	projects   map[int64]models.Project
	tasks      map[int64]models.Task
	owners     map[int64]int64 // project or task id -> user id
	faults     map[string]fault
	requests   map[string]int
	lastAuth   string
	lastBodies map[string][]byte
}

// New creates an empty fake API signing tokens with secret
func New(secret string) *Server {
	return &Server{
		CascadeTasks: true,
		secret:       []byte(secret),
		now:          time.Now,
		nextID:       1,
		accounts:     make(map[string]*account),
		revoked:      make(map[string]bool),
		projects:     make(map[int64]models.Project),
		tasks:        make(map[int64]models.Task),
		owners:       make(map[int64]int64),
		faults:       make(map[string]fault),
		requests:     make(map[string]int),
		lastBodies:   make(map[string][]byte),
	}
}

// Start serves the fake API for the duration of the test and returns its base URL
func Start(t testing.TB) (*Server, string) {
	t.Helper()
	s := New("apitest-secret")
	app := httptest.NewServer(s.Router())
	t.Cleanup(app.Close)
	return s, app.URL
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recordRequest)

	r.Post("/login", s.handleLogin)
	r.Post("/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/logout", s.handleLogout)
		r.Get("/user", s.handleMe)

		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Put("/projects/{id}", s.handleUpdateProject)
		r.Delete("/projects/{id}", s.handleDeleteProject)

		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Put("/tasks/{id}", s.handleUpdateTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
	})
	return r
}

// Fail makes requests matching "METHOD /path" answer with status and
// message. With once set only the next matching request fails.
func (s *Server) Fail(route string, status int, message string, once bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = fault{status: status, message: message, once: once}
}

// ClearFaults removes every injected failure
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]fault)
}

// Requests counts requests received for "METHOD /path"
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// TotalRequests counts every request received
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// LastAuthorization is the Authorization header of the latest request
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// LastBody is the raw body of the latest request for "METHOD /path"
func (s *Server) LastBody(route string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBodies[route]
}

// SeedUser registers an account directly
func (s *Server) SeedUser(name, email, password string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(name, email, hash)
}

// SeedProject stores a project owned by userID
func (s *Server) SeedProject(userID int64, p models.Project) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.allocIDLocked()
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	p.CreatedAt, p.UpdatedAt = s.now().UTC(), s.now().UTC()
	s.projects[p.ID] = p
	s.owners[p.ID] = userID
	return p
}

// SeedTask stores a task owned by userID
func (s *Server) SeedTask(userID int64, t models.Task) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.allocIDLocked()
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.CreatedAt, t.UpdatedAt = s.now().UTC(), s.now().UTC()
	s.tasks[t.ID] = t
	s.owners[t.ID] = userID
	return t
}

// Tasks returns the server side tasks sorted by id
func (s *Server) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IssueToken signs a token for userID that expires after ttl (negative ttl
// yields an already expired token)
func (s *Server) IssueToken(userID int64, ttl time.Duration) string {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) addAccountLocked(name, email string, hash []byte) models.User {
	now := s.now().UTC()
	u := models.User{ID: s.allocIDLocked(), Name: name, Email: email, Role: "member", CreatedAt: now, UpdatedAt: now}
	s.accounts[strings.ToLower(email)] = &account{user: u, hash: hash}
	return u
}

func (s *Server) allocIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// routeKey turns /projects/12 into "PUT /projects/{id}" so faults and
// counters can address a route regardless of the id
func routeKey(r *http.Request) string {
	path := r.URL.Path
	if i := strings.LastIndex(path, "/"); i > 0 {
		if _, err := strconv.ParseInt(path[i+1:], 10, 64); err == nil {
			path = path[:i] + "/{id}"
		}
	}
	return r.Method + " " + path
}

func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r)
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}

		s.mu.Lock()
		s.requests[key]++
		s.lastAuth = r.Header.Get("Authorization")
		s.lastBodies[key] = body
		f, failing := s.faults[key]
		if failing && f.once {
			delete(s.faults, key)
		}
		s.mu.Unlock()

		if failing {
			if f.status == http.StatusUnauthorized && f.message == "" {
				f.message = "Unauthenticated."
			}
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxUserKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		user, err := s.userForToken(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, withUser(r, user, raw))
	})
}

func (s *Server) userForToken(raw string) (models.User, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return models.User{}, errors.New("invalid token")
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return models.User{}, err
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[raw] {
		return models.User{}, errors.New("revoked token")
	}
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, nil
		}
	}
	return models.User{}, errors.New("unknown user")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
