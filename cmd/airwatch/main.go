package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/airwatch/internal/api"
	"github.com/nhle/airwatch/internal/app"
	"github.com/nhle/airwatch/internal/credential"
	"github.com/nhle/airwatch/internal/geocode"
	"github.com/nhle/airwatch/internal/keys"
	"github.com/nhle/airwatch/internal/model"
	"github.com/nhle/airwatch/internal/notify"
	"github.com/nhle/airwatch/internal/session"
	"github.com/nhle/airwatch/internal/store"
	"github.com/nhle/airwatch/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "airwatch: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource opened at startup, so its deferred closes run
// before main exits.
func run(args []string) error {
	flags := flag.NewFlagSet("airwatch", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("AIRWATCH_CONFIG")
	}
	if path == "" {
		path = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The terminal belongs to the UI; log lines only go to a file.
	if cfg.Log.File != "" {
		f, err := tea.LogToFile(cfg.Log.File, "airwatch")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}
	log.Printf("Configuration loaded from %s, backend %s", path, cfg.API.BaseURL)

	db, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	vault, err := credential.Open()
	if err != nil {
		return fmt.Errorf("opening keyring: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	var sessions *session.Manager
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), api.TokenFunc(func() string {
		return sessions.Token()
	}))
	sessions = session.NewManager(db, vault, client)
	if err := sessions.Restore(ctx); err != nil {
		log.Printf("Restoring session: %v", err)
	}

	notices := notify.NewCenter(db)
	if err := notices.Load(ctx); err != nil {
		log.Printf("Loading notifications: %v", err)
	}

	env := &ui.Env{
		Ctx:        ctx,
		API:        client,
		Session:    sessions,
		Notices:    notices,
		Geocoder:   geocode.NewResolver(cfg.Geocode.URL, cfg.Geocode.CacheSize, time.Duration(cfg.Geocode.CacheTTLMin)*time.Minute),
		Keys:       keys.DefaultKeyMap(),
		Config:     cfg,
		ConfigPath: path,
		Prefs:      model.DefaultPreferences(),
	}

	p := tea.NewProgram(app.New(env), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Shutdown()
	}
	if err != nil && ctx.Err() == nil {
		log.Printf("Program failed: %v", err)
		return fmt.Errorf("running program: %w", err)
	}
	log.Println("AirWatch stopped")
	return nil
}
