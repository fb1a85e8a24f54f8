// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/scratchpad/internal/api"
	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/sse"
	"github.com/starford/scratchpad/internal/web"
	"github.com/starford/scratchpad/internal/workspace"
)

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("runlog_path", cfg.RunLog.Path),
		slog.String("run_endpoint", cfg.Run.Endpoint),
		slog.String("web_dir", cfg.Web.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := app.openRunLog()
	if err != nil {
		return err
	}
	defer db.Close()

	exec := app.executor(db, logger)

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	store := workspace.NewStore(cfg.Workspace.IdleTTL, cfg.Workspace.MaxOpen, broker.PublishNodeEvent)

	tmpl, err := web.NewTemplates(cfg.Web.Dir, logger)
	if err != nil {
		return fmt.Errorf("init templates: %w", err)
	}

	apiHandler := api.NewHandler(api.Deps{
		Store:    store,
		Executor: exec,
		Runs:     db,
		Broker:   broker,
		Endpoint: cfg.Run.Endpoint,
		Client:   &http.Client{Timeout: cfg.Exec.Timeout + 30*time.Second},
		Logger:   logger,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Editor pages and the per-language run endpoint they post to.
	web.NewHandler(tmpl, cfg.Web.Languages).Register(r)
	r.Post("/lang/{language}/{version}", apiHandler.Exec)

	// Mount API routes under /api; event streams are per workspace.
	r.Mount("/api", api.NewRouter(apiHandler))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload templates from disk on change.
	g.Go(func() error {
		return tmpl.Watch(gCtx)
	})

	// Drop workspaces whose session went idle.
	g.Go(func() error {
		store.RunSweeper(gCtx, cfg.Workspace.SweepInterval, logger)
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher and sweeper stop with the server.
var errShutdown = errors.New("shutdown")

// logger initializes the structured JSON logger.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) openRunLog() (*runlog.DB, error) {
	if dir := filepath.Dir(a.config.RunLog.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create runlog dir: %w", err)
		}
	}
	db, err := runlog.Open(a.config.RunLog.Path)
	if err != nil {
		return nil, fmt.Errorf("init runlog: %w", err)
	}
	return db, nil
}

func (a *application) executor(db *runlog.DB, logger *slog.Logger) *executor.Executor {
	c := a.config.Exec
	return executor.New(executor.Config{
		Shell:          c.Shell,
		Timeout:        c.Timeout,
		MaxOutputBytes: c.MaxOutputBytes,
		MaxConcurrent:  c.MaxConcurrent,
		WorkDir:        c.WorkDir,
	}, db, logger)
}
