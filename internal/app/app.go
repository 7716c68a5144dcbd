// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires devdock's components together and runs them.
package app

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/devdock/internal/api"
	"github.com/wingedpig/devdock/internal/config"
	"github.com/wingedpig/devdock/internal/events"
	"github.com/wingedpig/devdock/internal/logs"
	"github.com/wingedpig/devdock/internal/project"
	"github.com/wingedpig/devdock/internal/supervisor"
	"github.com/wingedpig/devdock/internal/watcher"
)

// shutdownTimeout bounds the whole shutdown sequence.
const shutdownTimeout = 30 * time.Second

// App is the main application container.
type App struct {
	mu sync.RWMutex

	configPath string // empty when running on built-in defaults
	version    string
	config     *config.Config

	eventBus   *events.MemoryBus
	logs       *logs.Buffer
	supervisor *supervisor.Supervisor
	registry   *project.Registry
	controller *project.Controller
	watcher    *watcher.FileWatcher
	apiServer  *api.Server

	ready        chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string // optional; defaults are used when empty
	Host       string // overrides server.host
	Port       int    // overrides server.port; -1 picks a free port
	NoWatch    bool   // disables config reloading
	Version    string
}

// New loads configuration and builds every component. Nothing is started
// until Run.
func New(opts Options) (*App, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.NewLoader().LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	switch {
	case opts.Port > 0:
		cfg.Server.Port = opts.Port
	case opts.Port < 0:
		cfg.Server.Port = 0
	}
	if opts.NoWatch {
		cfg.Watch.Disabled = true
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		config:     cfg,
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}

	app.eventBus = events.NewMemoryBus(events.BusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})
	app.logs = logs.NewBuffer(cfg.Logging.BufferSize, app.eventBus)
	app.supervisor = supervisor.New(app.logs, supervisor.NewNotifier(app.eventBus), supervisor.Options{
		StopTimeout: cfg.Supervisor.GetStopTimeout(),
		ForceGrace:  cfg.Supervisor.GetForceGrace(),
		ForceColor:  cfg.Supervisor.IsForceColor(),
		AugmentPath: cfg.Supervisor.IsAugmentPath(),
	})
	app.registry = project.NewRegistry(app.logs, app.eventBus)
	app.controller = project.NewController(app.registry, app.supervisor, app.eventBus)

	created, _ := app.registry.Sync(declarations(cfg))
	if created > 0 {
		log.Printf("Registered %d project(s) from config", created)
	}
	// Nothing can be running yet; clear whatever the declarations carried.
	app.registry.ResetAllToStopped()

	app.apiServer = api.NewServer(api.ServerConfig{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, api.Dependencies{
		Controller: app.controller,
		Logs:       app.logs,
		EventBus:   app.eventBus,
	})

	return app, nil
}

func declarations(cfg *config.Config) []project.Declaration {
	decls := make([]project.Declaration, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		decls = append(decls, project.Declaration{
			ID:             p.ID,
			Name:           p.Name,
			Path:           p.Path,
			PackageManager: p.PackageManager,
			StartCommand:   p.StartCommand,
		})
	}
	return decls
}

// Controller returns the project controller.
func (app *App) Controller() *project.Controller {
	return app.controller
}

// EventBus returns the event bus.
func (app *App) EventBus() events.EventBus {
	return app.eventBus
}

// Config returns the active configuration.
func (app *App) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// Ready is closed once Run has bound the API listener.
func (app *App) Ready() <-chan struct{} {
	return app.ready
}

// Addr returns the API server's address.
func (app *App) Addr() string {
	return app.apiServer.Addr()
}

// Start binds the API listener and begins watching the config file.
func (app *App) Start(ctx context.Context) error {
	if err := app.apiServer.Listen(); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	cfg := app.Config()
	if app.configPath != "" && !cfg.Watch.Disabled {
		debounce := config.ParseDuration(cfg.Watch.Debounce, 250*time.Millisecond)
		w, err := watcher.NewFileWatcher(debounce, func(key, path string) {
			if err := app.Reload(context.Background()); err != nil {
				log.Printf("Config reload failed: %v", err)
			}
		})
		if err != nil {
			log.Printf("Warning: config watching disabled: %v", err)
		} else if err := w.Watch("config", app.configPath); err != nil {
			log.Printf("Warning: config watching disabled: %v", err)
			w.Close()
		} else {
			app.watcher = w
		}
	}

	return nil
}

// Run starts the app and blocks until a signal arrives, ctx is cancelled,
// Stop is called, or the API server fails.
func (app *App) Run(ctx context.Context) error {
	if err := app.Start(ctx); err != nil {
		app.Shutdown(context.Background())
		return err
	}

	close(app.ready)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.apiServer.ListenAndServe()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			log.Printf("Shutting down: %v", context.Cause(gctx))
		case <-app.done:
			log.Printf("Shutdown requested...")
		}
		return app.Shutdown(context.Background())
	})

	return g.Wait()
}

// Reload re-reads the config file and merges its project declarations.
// An invalid file is reported and the running config is kept.
func (app *App) Reload(ctx context.Context) error {
	if app.configPath == "" {
		return nil
	}

	cfg, err := config.NewLoader().LoadWithDefaults(ctx, app.configPath)
	if err != nil {
		return err
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	created, updated := app.registry.Sync(declarations(cfg))
	log.Printf("Config reloaded: %d project(s) added, %d refreshed", created, updated)

	app.mu.Lock()
	// Server and supervisor settings only apply at startup.
	app.config.Projects = cfg.Projects
	app.config.Watch.Debounce = cfg.Watch.Debounce
	app.mu.Unlock()

	if app.watcher != nil {
		app.watcher.SetDebounce(config.ParseDuration(cfg.Watch.Debounce, 250*time.Millisecond))
	}

	if err := app.eventBus.Publish(ctx, events.Event{
		Type: events.EventConfigReloaded,
		Payload: map[string]interface{}{
			"path":    app.configPath,
			"created": created,
			"updated": updated,
		},
	}); err != nil {
		log.Printf("Failed to publish %s: %v", events.EventConfigReloaded, err)
	}
	return nil
}

// Shutdown stops the API, stops every dev server and closes the bus. Only
// the first call does any work.
func (app *App) Shutdown(ctx context.Context) error {
	app.shutdownOnce.Do(func() {
		app.shutdownErr = app.shutdown(ctx)
	})
	return app.shutdownErr
}

func (app *App) shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Stop accepting requests first.
	if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}

	if app.watcher != nil {
		app.watcher.Close()
	}

	var firstErr error
	if err := app.supervisor.StopAllAndWait(shutdownCtx); err != nil {
		log.Printf("Error stopping projects: %v", err)
		firstErr = err
	}

	app.eventBus.Close()

	log.Println("Shutdown complete")
	return firstErr
}

// Stop signals Run to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
