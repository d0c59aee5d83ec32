package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TASKDECK_API_URL", "")
	t.Setenv("TASKDECK_TIMEOUT", "")
	t.Setenv("TASKDECK_STORE", "")
	t.Setenv("TASKDECK_DATA_DIR", "")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBaseURL != "http://127.0.0.1:8000/api" {
		t.Fatalf("unexpected default API URL %s", cfg.APIBaseURL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("unexpected default timeout %s", cfg.Timeout)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("expected sqlite store, got %s", cfg.Store)
	}
	if cfg.DBPath() != filepath.Join("/tmp/xdg", "taskdeck", "taskdeck.db") {
		t.Fatalf("unexpected db path %s", cfg.DBPath())
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TASKDECK_API_URL", "https://tasks.example.com/api/v1/")
	t.Setenv("TASKDECK_TIMEOUT", "")
	t.Setenv("TASKDECK_TIMEOUT_SECONDS", "3")
	t.Setenv("TASKDECK_DATA_DIR", "/var/lib/taskdeck")
	t.Setenv("TASKDECK_STORE", "REDIS")
	t.Setenv("TASKDECK_REDIS_ADDR", "cache:6380")
	t.Setenv("TASKDECK_REDIS_DB", "2")
	t.Setenv("TASKDECK_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBaseURL != "https://tasks.example.com/api/v1" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.Timeout)
	}
	if cfg.DataDir != "/var/lib/taskdeck" {
		t.Fatalf("expected data dir override, got %s", cfg.DataDir)
	}
	if cfg.Store != StoreRedis || cfg.RedisAddr != "cache:6380" || cfg.RedisDB != 2 {
		t.Fatalf("unexpected redis settings %+v", cfg)
	}
	if !cfg.Debug {
		t.Fatal("expected debug enabled")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TASKDECK_API_URL=http://dotenv.local/api\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// Setenv registers cleanup; Unsetenv lets .env supply the value.
	t.Setenv("TASKDECK_API_URL", "")
	os.Unsetenv("TASKDECK_API_URL")
	t.Setenv("TASKDECK_STORE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBaseURL != "http://dotenv.local/api" {
		t.Fatalf("expected .env value, got %s", cfg.APIBaseURL)
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TASKDECK_STORE", "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restoring working directory failed: %v", err)
		}
	})
}
