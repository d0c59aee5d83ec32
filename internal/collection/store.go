// Package collection mirrors the signed-in user's projects and tasks.
// The server is authoritative; the store only ever holds what the server
// last returned, patched with the results of the user's own mutations.
package collection

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"

	"github.com/alaincodes24/taskdeck/internal/api"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/notify"
	"github.com/alaincodes24/taskdeck/internal/session"
)

// ErrNotAuthenticated is returned, without contacting the server, by every
// operation attempted while nobody is signed in
var ErrNotAuthenticated = errors.New("collection: not authenticated")

// API is the part of the HTTP client the store needs
type API interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, in models.TaskInput) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Session reports who is signed in
type Session interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Snapshot is a copy of the collections at one instant
type Snapshot struct {
	Projects []models.Project
	Tasks    []models.Task
	Loading  bool
}

// Store mirrors the signed in user's projects and tasks
type Store struct {
	api      API
	notifier notify.Notifier
	logger   *log.Logger

	// spawn runs the refresh that follows a sign in
	spawn func(func())

	mu        sync.RWMutex
	authed    bool
	userID    int64
	gen       uint64 // bumped by Reset; results from an older generation are dropped
	projects  []models.Project
	tasks     []models.Task
	loading   int
	listeners map[int]func(Snapshot)
	nextSub   int

	unsubscribe func()
}

// New creates a store following sess: it loads everything when someone
// signs in and empties itself on sign out
func New(client API, sess Session, notifier notify.Notifier, logger *log.Logger) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		api:       client,
		notifier:  notifier,
		logger:    logger,
		spawn:     func(f func()) { go f() },
		projects:  []models.Project{},
		tasks:     []models.Task{},
		listeners: make(map[int]func(Snapshot)),
	}
	s.unsubscribe = sess.Subscribe(s.sessionChanged)
	s.sessionChanged(sess.Snapshot())
	return s
}

// Close detaches the store from the session
func (s *Store) Close() {
	s.unsubscribe()
}

func (s *Store) sessionChanged(snap session.Snapshot) {
	var id int64
	if snap.User != nil {
		id = snap.User.ID
	}

	s.mu.Lock()
	was, prevID := s.authed, s.userID
	s.authed, s.userID = snap.IsAuthenticated, id
	s.mu.Unlock()

	switch {
	case was && !snap.IsAuthenticated:
		s.Reset()
	case snap.IsAuthenticated && (!was || prevID != id):
		if was {
			// signed in as someone else without signing out first
			s.Reset()
		}
		s.spawn(func() {
			if err := s.Refresh(context.Background()); err != nil {
				s.logger.Printf("collection: initial load: %v", err)
			}
		})
	}
}

// Snapshot returns copies of both collections
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Projects: slices.Clone(s.projects),
		Tasks:    slices.Clone(s.tasks),
		Loading:  s.loading > 0,
	}
}

// Subscribe registers fn to be called after every change. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) publish() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Reset empties both collections
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen++
	s.projects = []models.Project{}
	s.tasks = []models.Task{}
	s.mu.Unlock()
	s.publish()
}

// begin checks the gate and returns the generation the call belongs to
func (s *Store) begin() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authed {
		return 0, ErrNotAuthenticated
	}
	return s.gen, nil
}

// apply runs fn under the lock unless a Reset happened since gen
func (s *Store) apply(gen uint64, fn func()) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	fn()
	s.mu.Unlock()
	s.publish()
	return true
}

func (s *Store) startLoading() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	s.publish()
}

func (s *Store) stopLoading() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	s.publish()
}

func (s *Store) success(level notify.Level, description string) {
	s.notifier.Notify(notify.Notice{Level: level, Title: "Success", Description: description})
}

// fail logs err, shows message to the user and returns the wrapped error
func (s *Store) fail(op string, err error, message string) error {
	s.logger.Printf("collection: %s: %v", op, err)
	s.notifier.Notify(notify.Notice{Level: notify.Error, Title: "Error", Description: message})
	return &api.OpError{Op: op, Message: message, Err: err}
}

// Refresh reloads projects and then tasks. Both are attempted; the first
// failure is returned.
func (s *Store) Refresh(ctx context.Context) error {
	perr := s.RefreshProjects(ctx)
	terr := s.RefreshTasks(ctx)
	if perr != nil {
		return perr
	}
	return terr
}

// RefreshProjects replaces the project collection with the server's. On
// failure the previous collection is kept.
func (s *Store) RefreshProjects(ctx context.Context) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}
	s.startLoading()
	defer s.stopLoading()

	projects, err := s.api.ListProjects(ctx)
	if err != nil {
		// load failures never surface the server's message
		return s.fail("load projects", err, "Failed to load projects")
	}
	s.apply(gen, func() { s.projects = projects })
	return nil
}

// RefreshTasks replaces the task collection with the server's. On failure
// the previous collection is kept.
func (s *Store) RefreshTasks(ctx context.Context) error {
	gen, err := s.begin()
	if err != nil {
		return err
	}
	s.startLoading()
	defer s.stopLoading()

	tasks, err := s.api.ListTasks(ctx)
	if err != nil {
		return s.fail("load tasks", err, "Failed to load tasks")
	}
	s.apply(gen, func() { s.tasks = tasks })
	return nil
}
