package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/mcpserver"
	"github.com/starford/scratchpad/internal/runner"
	"github.com/starford/scratchpad/internal/storage"
	"github.com/starford/scratchpad/internal/workspace"
)

// RunMCP serves a single workspace over MCP stdio until stdin closes.
// Runs use the configured endpoint when set, the local executor otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger()

	db, err := app.openRunLog()
	if err != nil {
		return err
	}
	defer db.Close()

	ws, err := workspace.NewStore(0, 1, nil).New("")
	if err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}

	if app.importDir != "" {
		fsys, err := storage.NewFS(app.importDir, storage.WithSkipDirs(".git"))
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		n, err := workspace.Import(ws, fsys, "")
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		logger.Info("Workspace imported", slog.String("dir", fsys.Root()), slog.Int("files", n))
	}

	var r runner.Runner
	if cfg.Run.Endpoint != "" {
		r = runner.NewDispatcher(cfg.Run.Endpoint,
			runner.WithHTTPClient(&http.Client{Timeout: cfg.Exec.Timeout + 30*time.Second}))
	} else {
		r = runner.NewLocal(app.executor(db, logger), executor.Meta{Workspace: ws.ID()})
	}

	logger.Info("MCP server starting", slog.String("workspace", ws.ID()))
	srv := mcpserver.New(ws, r, db)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
