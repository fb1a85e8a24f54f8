// Package testutil provides shared test helpers for setting up workspaces,
// executors and run logs.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/scratchpad/internal/executor"
	"github.com/starford/scratchpad/internal/runlog"
	"github.com/starford/scratchpad/internal/storage"
	"github.com/starford/scratchpad/internal/workspace"
)

// TestRunLog creates a temporary SQLite run log that is automatically cleaned up.
func TestRunLog(t *testing.T) *runlog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scratchpad-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := runlog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDir creates a temporary directory with a storage.Provider.
func TestDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestWorkspace returns a workspace holding files (path -> content).
func TestWorkspace(t *testing.T, files map[string]string) *workspace.Workspace {
	t.Helper()
	ws := workspace.New("test-ws")
	for p, content := range files {
		if err := ws.WriteFile(p, content); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return ws
}

// TestExecutor returns an executor running /bin/sh with small limits.
// rec may be nil.
func TestExecutor(t *testing.T, rec runlog.Recorder) *executor.Executor {
	t.Helper()
	return executor.New(executor.Config{
		Shell:          "/bin/sh",
		Timeout:        5 * time.Second,
		MaxOutputBytes: 64 << 10,
		MaxConcurrent:  2,
		WorkDir:        t.TempDir(),
	}, rec, Logger())
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
