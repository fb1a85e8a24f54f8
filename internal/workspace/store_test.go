package workspace

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/scratchpad/internal/apperr"
	"github.com/starford/scratchpad/internal/storage"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(0, 0, nil)
	ws, err := s.New("main.go")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ws.Active() != "main.go" {
		t.Errorf("initial file should be active, got %q", ws.Active())
	}
	got, err := s.Get(ws.ID())
	if err != nil || got != ws {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Remove(ws.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ws.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after remove err = %v", err)
	}
	if err := s.Remove(ws.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Remove err = %v", err)
	}
}

func TestStoreInvalidInitialFile(t *testing.T) {
	s := NewStore(0, 0, nil)
	if _, err := s.New("a/b"); !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("err = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("failed New must not register a workspace")
	}
}

func TestStoreLimit(t *testing.T) {
	s := NewStore(0, 1, nil)
	if _, err := s.New(""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.New(""); !errors.Is(err, apperr.ErrLimitReached) {
		t.Errorf("err = %v, want limit reached", err)
	}
}

func TestStoreSweep(t *testing.T) {
	s := NewStore(time.Minute, 0, nil)
	ws, _ := s.New("")
	if n := s.Sweep(time.Now()); n != 0 {
		t.Errorf("swept %d fresh workspaces", n)
	}
	if n := s.Sweep(ws.LastTouched().Add(2 * time.Minute)); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d", s.Len())
	}
}

func TestStoreSweeperStopsOnCancel(t *testing.T) {
	s := NewStore(time.Millisecond, 0, nil)
	_, _ = s.New("")
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond, logger)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Error("sweeper did not expire idle workspace")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStoreEventsTaggedWithID(t *testing.T) {
	var mu sync.Mutex
	var got []string
	s := NewStore(0, 0, func(id, kind, path string) {
		mu.Lock()
		got = append(got, id+":"+kind+":"+path)
		mu.Unlock()
	})
	ws, _ := s.New("")
	_, _ = ws.Create("", "a.txt", KindFile)
	_, _ = ws.Write("a.txt", "x", "")

	mu.Lock()
	defer mu.Unlock()
	want := []string{ws.ID() + ":created:a.txt", ws.ID() + ":updated:a.txt"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestStoreReportsClosedSessions(t *testing.T) {
	var mu sync.Mutex
	var closed []string
	s := NewStore(time.Minute, 0, func(id, kind, path string) {
		if kind != "closed" {
			return
		}
		mu.Lock()
		closed = append(closed, id)
		mu.Unlock()
	})
	removed, _ := s.New("")
	idle, _ := s.New("")

	if err := s.Remove(removed.ID()); err != nil {
		t.Fatal(err)
	}
	if n := s.Sweep(idle.LastTouched().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(closed) != 2 || closed[0] != removed.ID() || closed[1] != idle.ID() {
		t.Errorf("closed = %v", closed)
	}
}

func TestHoldReleaseRefreshesIdleTime(t *testing.T) {
	s := NewStore(time.Minute, 0, nil)
	ws, _ := s.New("")
	start := ws.LastTouched()

	time.Sleep(5 * time.Millisecond)
	ws.Hold()()
	if !ws.LastTouched().After(start) {
		t.Fatal("release did not advance last-touched time")
	}
	if n := s.Sweep(start.Add(time.Minute + time.Millisecond)); n != 0 {
		t.Errorf("touched workspace swept")
	}
}

func TestHeldWorkspaceNotSwept(t *testing.T) {
	s := NewStore(time.Minute, 0, nil)
	ws, _ := s.New("")
	release := ws.Hold()

	if n := s.Sweep(time.Now().Add(time.Hour)); n != 0 {
		t.Fatalf("held workspace swept")
	}
	release()
	release() // second call is a no-op

	if n := s.Sweep(ws.LastTouched().Add(2 * time.Minute)); n != 1 {
		t.Errorf("released workspace not swept: %d", n)
	}
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("main.go", []byte("package main"))
	_ = store.Write("pkg/util.go", []byte("package pkg"))

	w := New("ws")
	n, err := Import(w, store, "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}
	v, err := w.Select("pkg/util.go")
	if err != nil || v.Content != "package pkg" {
		t.Errorf("Select = %+v, %v", v, err)
	}
}
