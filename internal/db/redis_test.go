package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// Set TASKDECK_TEST_REDIS_ADDR to run against a live server
func openTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("TASKDECK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKDECK_TEST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), RedisOptions{
		Addr:   addr,
		Prefix: "taskdeck-test:" + uuid.NewString() + ":",
	})
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisSetGetDelete(t *testing.T) {
	store := openTestRedis(t)
	ctx := context.Background()

	if v, err := store.Get(ctx, "auth_token"); err != nil || v != "" {
		t.Fatalf("expected empty missing key, got %q, %v", v, err)
	}
	if err := store.Set(ctx, "auth_token", "abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := store.Get(ctx, "auth_token"); v != "abc" {
		t.Fatalf("expected abc, got %q", v)
	}
	if err := store.Delete(ctx, "auth_token", "user_data"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if v, _ := store.Get(ctx, "auth_token"); v != "" {
		t.Errorf("expected auth_token deleted, got %q", v)
	}
	if err := store.Delete(ctx); err != nil {
		t.Errorf("Delete with no keys: %v", err)
	}
}

func TestRedisUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
}
