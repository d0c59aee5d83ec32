package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	appName = "taskdeck"

	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	APIBaseURL    string
	Timeout       time.Duration
	DataDir       string
	Store         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	Debug         bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first without overriding variables that
// are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	dataDir, err := dataDir()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIBaseURL:    strings.TrimRight(getenv("TASKDECK_API_URL", "http://127.0.0.1:8000/api"), "/"),
		Timeout:       getenvDuration("TASKDECK_TIMEOUT", 15*time.Second),
		DataDir:       dataDir,
		Store:         strings.ToLower(getenv("TASKDECK_STORE", StoreSQLite)),
		RedisAddr:     getenv("TASKDECK_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("TASKDECK_REDIS_PASSWORD"),
		RedisDB:       getenvInt("TASKDECK_REDIS_DB", 0),
		RedisPrefix:   getenv("TASKDECK_REDIS_PREFIX", appName+":"),
		Debug:         getenvBool("TASKDECK_DEBUG"),
	}
	if cfg.Store != StoreSQLite && cfg.Store != StoreRedis {
		return Config{}, errors.New("TASKDECK_STORE must be sqlite or redis, got " + cfg.Store)
	}
	return cfg, nil
}

// DBPath is the sqlite file holding the session records
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, appName+".db")
}

// LogPath is where debug logs go while the TUI owns the terminal
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "debug.log")
}

// dataDir resolves the XDG data directory, falling back to ~/.local/share
func dataDir() (string, error) {
	if dir := os.Getenv("TASKDECK_DATA_DIR"); dir != "" {
		return dir, nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appName), nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string) bool {
	val := strings.ToLower(os.Getenv(key))
	return val == "1" || val == "true" || val == "yes"
}
