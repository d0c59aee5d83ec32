package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/alaincodes24/taskdeck/internal/api"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/notify"
)

// Keys of the durable session records
const (
	TokenKey = "auth_token"
	UserKey  = "user_data"
)

// saveFailedMessage is shown when the server accepted the credentials but
// the session could not be stored
const saveFailedMessage = "Could not save the session"

// ErrNoSession is returned when an operation needs a token and none is held
var ErrNoSession = errors.New("session: not logged in")

// Storage keeps the durable records across restarts
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// API is the part of the HTTP client the session needs
type API interface {
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Register(ctx context.Context, in models.RegisterInput) (api.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (models.User, error)
	SetTokenSource(ts api.TokenSource)
	OnUnauthorized(fn func())
}

// Snapshot is a read-only view of the session
type Snapshot struct {
	User            *models.User
	IsAuthenticated bool
	Loading         bool
}

// Store owns the authenticated identity and its token. It becomes the
// client's token source and drops itself whenever the client sees a 401.
type Store struct {
	api      API
	storage  Storage
	notifier notify.Notifier
	logger   *log.Logger
	now      func() time.Time

	mu        sync.RWMutex
	token     string
	user      *models.User
	loading   int
	listeners map[int]func(Snapshot)
	nextSub   int
}

// New creates a logged out session bound to client. A nil notifier or
// logger falls back to notify.Discard and log.Default().
func New(client API, storage Storage, notifier notify.Notifier, logger *log.Logger) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		api:       client,
		storage:   storage,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[int]func(Snapshot)),
	}
	client.SetTokenSource(s)
	client.OnUnauthorized(s.HandleUnauthorized)
	return s
}

// Token is the bearer token for outgoing requests
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Snapshot returns the current session state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{IsAuthenticated: s.user != nil, Loading: s.loading > 0}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Subscribe registers fn to be called after every change of the
// authenticated user. The returned func removes the subscription.
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

func (s *Store) beginLoading() func() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}
}

// Login authenticates with email and password. Failures come back as an
// *api.OpError carrying the message that was shown to the user.
func (s *Store) Login(ctx context.Context, email, password string) (models.User, error) {
	defer s.beginLoading()()

	fallback := "Invalid credentials"
	res, err := s.api.Login(ctx, email, password)
	if err == nil {
		if err = s.establish(ctx, res); err != nil {
			fallback = saveFailedMessage
		}
	}
	if err != nil {
		s.logger.Printf("session: login error: %v", err)
		opErr := api.NewOpError("login", err, fallback)
		s.notifier.Notify(notify.Notice{Level: notify.Error, Title: "Login failed", Description: opErr.Message})
		return models.User{}, opErr
	}

	s.notifier.Notify(notify.Notice{Level: notify.Success, Title: "Welcome back!", Description: "You have successfully logged in."})
	return res.User, nil
}

// Register creates an account and logs into it
func (s *Store) Register(ctx context.Context, in models.RegisterInput) (models.User, error) {
	defer s.beginLoading()()

	fallback := "Failed to create account"
	res, err := s.api.Register(ctx, in)
	if err == nil {
		if err = s.establish(ctx, res); err != nil {
			fallback = saveFailedMessage
		}
	}
	if err != nil {
		s.logger.Printf("session: registration error: %v", err)
		opErr := api.NewOpError("register", err, fallback)
		s.notifier.Notify(notify.Notice{Level: notify.Error, Title: "Registration failed", Description: opErr.Message})
		return models.User{}, opErr
	}

	s.notifier.Notify(notify.Notice{Level: notify.Success, Title: "Account created!", Description: "Welcome to the task management system."})
	return res.User, nil
}

// establish persists a fresh session and then makes it current. The token
// is written last since Restore starts from it; on failure neither record
// survives.
func (s *Store) establish(ctx context.Context, res api.AuthResult) error {
	blob, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	err = s.storage.Set(ctx, UserKey, string(blob))
	if err == nil {
		err = s.storage.Set(ctx, TokenKey, res.Token)
	}
	if err != nil {
		// drops any half written records along with an earlier session
		s.forget(ctx)
		return fmt.Errorf("save session: %w", err)
	}

	user := res.User
	s.mu.Lock()
	s.token = res.Token
	s.user = &user
	s.mu.Unlock()
	s.publish()
	return nil
}

// Logout tells the server to drop the token, then forgets the session
// locally whatever the server said
func (s *Store) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Printf("session: logout error: %v", err)
	}
	s.forget(ctx)
	s.notifier.Notify(notify.Notice{Level: notify.Success, Title: "Logged out", Description: "You have been successfully logged out."})
}

// HandleUnauthorized drops the session after the server rejected the token
func (s *Store) HandleUnauthorized() {
	s.forget(context.Background())
}

// forget clears memory and durable records
func (s *Store) forget(ctx context.Context) {
	if err := s.storage.Delete(ctx, TokenKey, UserKey); err != nil {
		s.logger.Printf("session: clearing stored session: %v", err)
	}

	s.mu.Lock()
	changed := s.token != "" || s.user != nil
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if changed {
		s.publish()
	}
}

// Restore resumes a stored session at startup. A token that cannot be
// turned into a user is forgotten without telling the user; nothing is
// retried.
func (s *Store) Restore(ctx context.Context) {
	defer s.beginLoading()()

	token, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Printf("session: reading stored token: %v", err)
		return
	}
	if token == "" {
		return
	}
	if tokenExpired(token, s.now()) {
		s.logger.Printf("session: stored token expired, discarding")
		s.forget(ctx)
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.RefreshUser(ctx); err != nil {
		s.logger.Printf("session: failed to refresh user: %v", err)
		s.forget(ctx)
	}
}

// RefreshUser fetches the profile for the current token. Unlike Restore
// it hands failures to the caller.
func (s *Store) RefreshUser(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNoSession
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.token != token {
		// logged out or replaced while the request was in flight
		s.mu.Unlock()
		return ErrNoSession
	}
	s.user = &user
	s.mu.Unlock()

	if blob, err := json.Marshal(user); err == nil {
		if err := s.storage.Set(ctx, UserKey, string(blob)); err != nil {
			s.logger.Printf("session: caching user: %v", err)
		}
	}
	s.publish()
	return nil
}
