// Package executor runs a posted working directory on this host: it writes
// the files into a fresh work area, runs the command line through a shell
// and streams the combined output back as plain text.
//
// No isolation is applied beyond a timeout, an output cap and a limit on
// concurrent runs.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/models"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/storage"
)

// Run statuses recorded in the run log.
const (
	StatusOK      = "ok"
	StatusExit    = "exit"
	StatusTimeout = "timeout"
	StatusError   = "error"
)

// Config controls how commands are run.
type Config struct {
	Shell          string
	Timeout        time.Duration
	MaxOutputBytes int64
	MaxConcurrent  int64
	WorkDir        string // parent for per-run work areas; "" means os.TempDir()
}

// Meta identifies where a run came from.
type Meta struct {
	Workspace string
	Language  string
	Version   string
}

// Result describes a finished command.
type Result struct {
	ExitCode  int
	Status    string
	Bytes     int64
	Truncated bool
	Duration  time.Duration
}

// Executor runs requests. It is safe for concurrent use.
type Executor struct {
	cfg    Config
	sem    *semaphore.Weighted
	rec    runlog.Recorder
	logger *slog.Logger
}

// New creates an Executor. rec may be nil to disable run logging; a nil
// logger means slog.Default().
func New(cfg Config, rec runlog.Recorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &Executor{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		rec:    rec,
		logger: logger,
	}
}

// Execute materializes req.Files, runs req.Cmd and writes the combined
// stdout/stderr to out. A non-zero exit is reported in the Result, not as
// an error. Errors mean the command could not be run at all.
func (e *Executor) Execute(ctx context.Context, req models.RunRequest, meta Meta, out io.Writer) (*Result, error) {
	if strings.TrimSpace(req.Cmd) == "" {
		return nil, fmt.Errorf("executor: empty command: %w", apperr.ErrInvalidRequest)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("executor: wait for slot: %w", err)
	}
	defer e.sem.Release(1)

	area, err := os.MkdirTemp(e.cfg.WorkDir, "scratchpad-run-*")
	if err != nil {
		return nil, fmt.Errorf("executor: create work area: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(area); rmErr != nil {
			e.logger.Warn("executor: cleanup failed", slog.String("dir", area), slog.String("error", rmErr.Error()))
		}
	}()

	store, err := storage.NewFS(area)
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}
	for _, f := range req.Files {
		if err := store.Write(f.Name, []byte(f.Data)); err != nil {
			return nil, fmt.Errorf("executor: file %q: %v: %w", f.Name, err, apperr.ErrInvalidRequest)
		}
	}

	runCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	lw := &limitedWriter{w: out, limit: e.cfg.MaxOutputBytes}
	cmd := exec.CommandContext(runCtx, e.cfg.Shell, "-c", req.Cmd)
	cmd.Dir = store.Root()
	cmd.Env = e.environ(store.Root(), req.Env, meta)
	cmd.Stdout = lw
	cmd.Stderr = lw
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	res := &Result{
		Duration:  time.Since(start),
		Bytes:     lw.written,
		Truncated: lw.truncated,
		Status:    StatusOK,
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Status = StatusTimeout
		res.ExitCode = -1
		_, _ = fmt.Fprintf(out, "\n[timed out after %s]\n", e.cfg.Timeout)
	case ctx.Err() != nil:
		res.Status = StatusError
		res.ExitCode = -1
		runErr = ctx.Err()
	case errors.As(runErr, &exitErr):
		res.Status = StatusExit
		res.ExitCode = exitErr.ExitCode()
		runErr = nil
	case runErr != nil:
		res.Status = StatusError
		res.ExitCode = -1
	}
	if lw.truncated {
		_, _ = fmt.Fprintf(out, "\n[output truncated at %d bytes]\n", e.cfg.MaxOutputBytes)
	}

	e.record(req, meta, res)

	e.logger.Info("executor: run finished",
		slog.String("workspace", meta.Workspace),
		slog.String("language", meta.Language),
		slog.String("status", res.Status),
		slog.Int("exit_code", res.ExitCode),
		slog.Int("files", len(req.Files)),
		slog.Duration("duration", res.Duration))

	if runErr != nil && res.Status == StatusError {
		return res, fmt.Errorf("executor: run: %w", runErr)
	}
	return res, nil
}

func (e *Executor) environ(dir string, extra []string, meta Meta) []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"PWD=" + dir,
	}
	if meta.Language != "" {
		env = append(env, "LANGUAGE="+meta.Language)
	}
	if meta.Version != "" {
		env = append(env, "LANGUAGE_VERSION="+meta.Version)
	}
	return append(env, extra...)
}

func (e *Executor) record(req models.RunRequest, meta Meta, res *Result) {
	if e.rec == nil {
		return
	}
	// Detached: ctx may already be cancelled by the time the run ends.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := e.rec.Record(ctx, runlog.Entry{
		Workspace:   meta.Workspace,
		Language:    meta.Language,
		Version:     meta.Version,
		Cmd:         req.Cmd,
		FileCount:   len(req.Files),
		ExitCode:    res.ExitCode,
		Status:      res.Status,
		DurationMS:  res.Duration.Milliseconds(),
		OutputBytes: res.Bytes,
		StartedAt:   time.Now().Add(-res.Duration),
	})
	if err != nil {
		e.logger.Warn("executor: record run failed", slog.String("error", err.Error()))
	}
}

// limitedWriter passes through at most limit bytes (no cap when limit <= 0)
// and silently drops the rest so the command never blocks on a full pipe.
type limitedWriter struct {
	w         io.Writer
	limit     int64
	written   int64
	truncated bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	chunk := p
	if l.limit > 0 {
		room := l.limit - l.written
		if room <= 0 {
			l.truncated = true
			return len(p), nil
		}
		if int64(len(chunk)) > room {
			chunk = chunk[:room]
			l.truncated = true
		}
	}
	n, err := l.w.Write(chunk)
	l.written += int64(n)
	if err != nil {
		return n, err
	}
	return len(p), nil
}
