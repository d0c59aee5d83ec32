package session

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alaincodes24/taskdeck/internal/api"
	"github.com/alaincodes24/taskdeck/internal/apitest"
	"github.com/alaincodes24/taskdeck/internal/db"
	"github.com/alaincodes24/taskdeck/internal/models"
	"github.com/alaincodes24/taskdeck/internal/notify"
)

type fixture struct {
	srv     *apitest.Server
	client  *api.Client
	storage *db.DB
	notices *notify.Recorder
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv, url := apitest.Start(t)
	storage, err := db.New(filepath.Join(t.TempDir(), "taskdeck.db"))
	if err != nil {
		t.Fatalf("db.New failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	logger := log.New(io.Discard, "", 0)
	client := api.New(api.Options{BaseURL: url, Timeout: 5 * time.Second, Logger: logger})
	notices := &notify.Recorder{}
	return &fixture{
		srv:     srv,
		client:  client,
		storage: storage,
		notices: notices,
		store:   New(client, storage, notices, logger),
	}
}

func (f *fixture) stored(t *testing.T, key string) string {
	t.Helper()
	v, err := f.storage.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get %s failed: %v", key, err)
	}
	return v
}

func TestLoginThenLogout(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()

	user, err := f.store.Login(ctx, "a@b.com", "password1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Email != "a@b.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	snap := f.store.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil || snap.User.Email != "a@b.com" {
		t.Fatalf("expected authenticated snapshot, got %+v", snap)
	}
	if f.store.Token() == "" || f.stored(t, TokenKey) != f.store.Token() {
		t.Fatal("expected token in memory and durable store")
	}
	if f.stored(t, UserKey) == "" {
		t.Fatal("expected cached user record")
	}
	if n, _ := f.notices.Last(); n.Title != "Welcome back!" || n.Level != notify.Success {
		t.Fatalf("unexpected notice %+v", n)
	}

	f.store.Logout(ctx)
	if f.store.Snapshot().IsAuthenticated || f.store.Token() != "" {
		t.Fatal("expected logged out session")
	}
	if f.stored(t, TokenKey) != "" || f.stored(t, UserKey) != "" {
		t.Fatal("expected durable records to be removed")
	}
	if n, _ := f.notices.Last(); n.Title != "Logged out" {
		t.Fatalf("unexpected notice %+v", n)
	}
	if f.srv.Requests("POST /logout") != 1 {
		t.Fatal("expected server logout call")
	}
}

func TestLoginFailureUsesServerMessage(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser("Ada", "a@b.com", "password1")

	_, err := f.store.Login(context.Background(), "a@b.com", "wrong")
	var opErr *api.OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *api.OpError, got %v", err)
	}
	if opErr.Message != "Invalid credentials" {
		t.Fatalf("unexpected message %q", opErr.Message)
	}
	if f.store.Snapshot().IsAuthenticated || f.stored(t, TokenKey) != "" {
		t.Fatal("failed login must not create a session")
	}
	n, _ := f.notices.Last()
	if n.Level != notify.Error || n.Title != "Login failed" || n.Description != "Invalid credentials" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestLoginFailureFallsBackWithoutServerMessage(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("POST /login", http.StatusBadGateway, "", true)

	_, err := f.store.Login(context.Background(), "a@b.com", "password1")
	var opErr *api.OpError
	if !errors.As(err, &opErr) || opErr.Message != "Invalid credentials" {
		t.Fatalf("expected fallback message, got %v", err)
	}
}

func TestRegisterEstablishesSession(t *testing.T) {
	f := newFixture(t)

	user, err := f.store.Register(context.Background(), models.RegisterInput{
		Name:                 "Grace",
		Email:                "grace@example.com",
		Password:             "password1",
		PasswordConfirmation: "password1",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Name != "Grace" || !f.store.Snapshot().IsAuthenticated {
		t.Fatalf("expected registered session, got %+v", f.store.Snapshot())
	}
	if n, _ := f.notices.Last(); n.Title != "Account created!" {
		t.Fatalf("unexpected notice %+v", n)
	}

	_, err = f.store.Register(context.Background(), models.RegisterInput{
		Name:                 "Grace",
		Email:                "grace@example.com",
		Password:             "password1",
		PasswordConfirmation: "password1",
	})
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if n, _ := f.notices.Last(); n.Title != "Registration failed" {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()
	if _, err := f.store.Login(ctx, "a@b.com", "password1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	f.srv.Fail("POST /logout", http.StatusInternalServerError, "down", true)
	f.store.Logout(ctx)
	if f.store.Snapshot().IsAuthenticated || f.stored(t, TokenKey) != "" {
		t.Fatal("expected local session to be cleared")
	}
}

func TestRestoreValidToken(t *testing.T) {
	f := newFixture(t)
	user := f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()
	token := f.srv.IssueToken(user.ID, time.Hour)
	if err := f.storage.Set(ctx, TokenKey, token); err != nil {
		t.Fatal(err)
	}

	f.store.Restore(ctx)
	snap := f.store.Snapshot()
	if !snap.IsAuthenticated || snap.User.ID != user.ID || snap.Loading {
		t.Fatalf("expected restored session, got %+v", snap)
	}
	if f.store.Token() != token {
		t.Fatal("expected restored token to be used")
	}
	if f.stored(t, UserKey) == "" {
		t.Fatal("expected refreshed user to be cached")
	}
	if len(f.notices.Notices()) != 0 {
		t.Fatalf("restore should be silent, got %+v", f.notices.Notices())
	}
}

func TestRestoreWithRejectedTokenForgetsSilently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.storage.Set(ctx, TokenKey, "not-a-real-token"); err != nil {
		t.Fatal(err)
	}
	if err := f.storage.Set(ctx, UserKey, `{"id":9}`); err != nil {
		t.Fatal(err)
	}

	f.store.Restore(ctx)
	if f.store.Snapshot().IsAuthenticated || f.store.Token() != "" {
		t.Fatal("expected logged out session")
	}
	if f.stored(t, TokenKey) != "" || f.stored(t, UserKey) != "" {
		t.Fatal("expected durable records to be removed")
	}
	if f.srv.Requests("GET /user") != 1 {
		t.Fatal("expected a single profile fetch")
	}
	if len(f.notices.Notices()) != 0 {
		t.Fatal("restore failure must not notify")
	}
}

func TestRestoreWithServerErrorForgets(t *testing.T) {
	f := newFixture(t)
	user := f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()
	if err := f.storage.Set(ctx, TokenKey, f.srv.IssueToken(user.ID, time.Hour)); err != nil {
		t.Fatal(err)
	}
	f.srv.Fail("GET /user", http.StatusInternalServerError, "", true)

	f.store.Restore(ctx)
	if f.store.Snapshot().IsAuthenticated || f.stored(t, TokenKey) != "" {
		t.Fatal("expected session to be forgotten")
	}
	if f.srv.Requests("GET /user") != 1 {
		t.Fatal("expected no retry")
	}
}

func TestRestoreExpiredTokenSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	user := f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()
	if err := f.storage.Set(ctx, TokenKey, f.srv.IssueToken(user.ID, -time.Minute)); err != nil {
		t.Fatal(err)
	}

	f.store.Restore(ctx)
	if f.store.Snapshot().IsAuthenticated || f.stored(t, TokenKey) != "" {
		t.Fatal("expected expired token to be discarded")
	}
	if f.srv.TotalRequests() != 0 {
		t.Fatalf("expected no requests, got %d", f.srv.TotalRequests())
	}
}

func TestRestoreWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.store.Restore(context.Background())
	if f.store.Snapshot().IsAuthenticated || f.srv.TotalRequests() != 0 {
		t.Fatal("expected nothing to happen without a stored token")
	}
}

func TestUnauthorizedResponseDropsSession(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()
	if _, err := f.store.Login(ctx, "a@b.com", "password1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	var seen []bool
	unsubscribe := f.store.Subscribe(func(s Snapshot) { seen = append(seen, s.IsAuthenticated) })
	defer unsubscribe()

	f.srv.Fail("GET /projects", http.StatusUnauthorized, "Unauthenticated.", true)
	_, err := f.client.ListProjects(ctx)
	if !api.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if f.store.Snapshot().IsAuthenticated {
		t.Fatal("expected session dropped before the error was returned")
	}
	if f.stored(t, TokenKey) != "" || f.stored(t, UserKey) != "" {
		t.Fatal("expected durable records to be removed")
	}
	if len(seen) != 1 || seen[0] {
		t.Fatalf("expected a single logged out notification, got %v", seen)
	}
}

func TestRefreshUserWithoutToken(t *testing.T) {
	f := newFixture(t)
	if err := f.store.RefreshUser(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	f := newFixture(t)
	f.srv.SeedUser("Ada", "a@b.com", "password1")
	ctx := context.Background()

	var calls int
	unsubscribe := f.store.Subscribe(func(Snapshot) { calls++ })
	if _, err := f.store.Login(ctx, "a@b.com", "password1"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected one notification after login, got %d", calls)
	}
	unsubscribe()
	f.store.Logout(ctx)
	if calls != 1 {
		t.Fatalf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"opaque", "1|abcdef", false},
		{"no exp", sign(jwt.MapClaims{"sub": "1"}), false},
		{"future", sign(jwt.MapClaims{"exp": now.Add(time.Minute).Unix()}), false},
		{"past", sign(jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), true},
		{"exactly now", sign(jwt.MapClaims{"exp": now.Unix()}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenExpired(tt.token, now); got != tt.want {
				t.Errorf("tokenExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

// failingStorage refuses writes to one key
type failingStorage struct {
	*db.DB
	failKey string
}

func (s failingStorage) Set(ctx context.Context, key, value string) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.DB.Set(ctx, key, value)
}

func TestLoginStorageFailureLeavesNoSession(t *testing.T) {
	for _, key := range []string{UserKey, TokenKey} {
		t.Run(key, func(t *testing.T) {
			f := newFixture(t)
			f.srv.SeedUser("Ada", "a@b.com", "password1")
			ctx := context.Background()
			logger := log.New(io.Discard, "", 0)
			store := New(f.client, failingStorage{DB: f.storage, failKey: key}, f.notices, logger)

			_, err := store.Login(ctx, "a@b.com", "password1")
			var opErr *api.OpError
			if !errors.As(err, &opErr) {
				t.Fatalf("expected *api.OpError, got %v", err)
			}
			if opErr.Message != saveFailedMessage {
				t.Fatalf("expected storage message, got %q", opErr.Message)
			}
			if store.Snapshot().IsAuthenticated || store.Token() != "" {
				t.Fatal("expected no session in memory")
			}
			if f.stored(t, TokenKey) != "" || f.stored(t, UserKey) != "" {
				t.Fatal("expected no durable records after a failed login")
			}

			// a restart must not bring the failed login back
			restarted := New(f.client, f.storage, notify.Discard, logger)
			restarted.Restore(ctx)
			if restarted.Snapshot().IsAuthenticated {
				t.Fatal("restore resumed a session that failed to log in")
			}
		})
	}
}
