package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alaincodes24/taskdeck/internal/api"
	"github.com/alaincodes24/taskdeck/internal/collection"
	"github.com/alaincodes24/taskdeck/internal/config"
	"github.com/alaincodes24/taskdeck/internal/db"
	"github.com/alaincodes24/taskdeck/internal/notify"
	"github.com/alaincodes24/taskdeck/internal/session"
	"github.com/alaincodes24/taskdeck/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// store holds the durable session records and app settings
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("taskdeck %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file or nowhere
	if cfg.Debug {
		f, err := tea.LogToFile(cfg.LogPath(), "taskdeck")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	logger := log.Default()

	storage, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing storage: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close()

	events := ui.NewEvents()
	notifier := notify.Multi(events, notify.Logger{L: logger})

	client := api.New(api.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	sessions := session.New(client, storage, notifier, logger)
	collections := collection.New(client, sessions, notifier, logger)
	defer collections.Close()

	// Create and run the application
	app := ui.NewApp(ui.Deps{
		Sessions:    sessions,
		Collections: collections,
		Settings:    storage,
		Events:      events,
		Logger:      logger,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (store, error) {
	if cfg.Store == config.StoreRedis {
		return db.NewRedisStore(context.Background(), db.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	}
	return db.New(cfg.DBPath())
}
