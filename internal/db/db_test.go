package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "nested", "taskdeck.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSetGetDelete(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	if v, err := database.Get(ctx, "auth_token"); err != nil || v != "" {
		t.Fatalf("expected empty missing key, got %q, %v", v, err)
	}

	if err := database.Set(ctx, "auth_token", "abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := database.Set(ctx, "auth_token", "def"); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}
	if err := database.Set(ctx, "user_data", `{"id":1}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, err := database.Get(ctx, "auth_token")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "def" {
		t.Fatalf("expected overwritten value def, got %q", v)
	}

	if err := database.Delete(ctx, "auth_token", "user_data", "never_set"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	for _, key := range []string{"auth_token", "user_data"} {
		if v, _ := database.Get(ctx, key); v != "" {
			t.Errorf("expected %s deleted, got %q", key, v)
		}
	}
}

func TestReopenKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdeck.db")
	ctx := context.Background()

	first, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Set(ctx, "last_view", "tasks"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first.Close()

	second, err := New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()
	if v, _ := second.Get(ctx, "last_view"); v != "tasks" {
		t.Fatalf("expected persisted value, got %q", v)
	}
}
