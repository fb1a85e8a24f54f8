package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/runner"
	"github.com/starford/scratchpad/internal/storage"
	"github.com/starford/scratchpad/internal/workspace"
)

// RunDir loads dir into a fresh workspace, runs cmd against it once and
// streams the output to out. Without a configured endpoint the command runs
// on this host and is recorded in the run log.
func RunDir(ctx context.Context, out io.Writer, dir, cmd string, env []string, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger()

	fsys, err := storage.NewFS(dir, storage.WithSkipDirs(".git"))
	if err != nil {
		return fmt.Errorf("open dir: %w", err)
	}
	ws := workspace.New("cli")
	n, err := workspace.Import(ws, fsys, "")
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	logger.Debug("Workspace imported", slog.String("dir", fsys.Root()), slog.Int("files", n))

	var r runner.Runner
	if cfg.Run.Endpoint != "" {
		r = runner.NewDispatcher(cfg.Run.Endpoint,
			runner.WithHTTPClient(&http.Client{Timeout: cfg.Exec.Timeout + 30*time.Second}),
			runner.WithProgress(func(loaded, total int64) {
				logger.Debug("Receiving output", slog.Int64("loaded", loaded), slog.Int64("total", total))
			}))
	} else {
		db, err := app.openRunLog()
		if err != nil {
			return err
		}
		defer db.Close()
		r = runner.NewLocal(app.executor(db, logger), executor.Meta{Workspace: ws.ID()})
	}

	outcome := r.Run(ctx, models.RunRequest{Cmd: cmd, Env: env, Files: ws.Snapshot()}, out)
	if outcome.Status != runner.StatusCompleted {
		if outcome.Err != nil {
			return fmt.Errorf("run %s: %w", outcome.Status, outcome.Err)
		}
		return fmt.Errorf("run %s", outcome.Status)
	}
	return nil
}
