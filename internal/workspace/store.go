package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scratchpad/internal/apperr"
)

// StoreEventCallback receives workspace mutations tagged with the workspace ID.
type StoreEventCallback func(workspaceID, kind, path string)

// Store holds the open workspaces, one per editor session. A workspace
// idle for longer than the TTL is treated as an ended session and dropped.
type Store struct {
	ttl time.Duration
	max int
	cb  StoreEventCallback

	mu    sync.Mutex
	items map[string]*Workspace
}

// NewStore creates a store. ttl <= 0 disables expiry, max <= 0 means unbounded.
func NewStore(ttl time.Duration, max int, cb StoreEventCallback) *Store {
	return &Store{
		ttl:   ttl,
		max:   max,
		cb:    cb,
		items: make(map[string]*Workspace),
	}
}

// New opens a workspace. When initialFile is non-empty the workspace starts
// with that file created and active.
func (s *Store) New(initialFile string) (*Workspace, error) {
	ws := New(uuid.NewString())
	if initialFile != "" {
		if _, err := ws.Create("", initialFile, KindFile); err != nil {
			return nil, err
		}
	}
	if s.cb != nil {
		id := ws.ID()
		ws.OnEvent(func(kind, path string) { s.cb(id, kind, path) })
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max > 0 && len(s.items) >= s.max {
		return nil, fmt.Errorf("workspace: %d open workspaces: %w", len(s.items), apperr.ErrLimitReached)
	}
	s.items[ws.ID()] = ws
	return ws, nil
}

// Get returns the workspace with the given ID.
func (s *Store) Get(id string) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("workspace %q: %w", id, apperr.ErrNotFound)
	}
	return ws, nil
}

// Remove closes the workspace with the given ID, dropping all its buffers.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("workspace %q: %w", id, apperr.ErrNotFound)
	}
	delete(s.items, id)
	s.mu.Unlock()

	s.closed(id)
	return nil
}

// closed reports the end of a session as a "closed" event with no path.
func (s *Store) closed(ids ...string) {
	if s.cb == nil {
		return
	}
	for _, id := range ids {
		s.cb(id, "closed", "")
	}
}

// Len returns the number of open workspaces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep drops workspaces idle since before now-ttl and returns how many
// were removed. Held workspaces are skipped.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	var expired []string
	for id, ws := range s.items {
		if since, idle := ws.idleSince(); idle && now.Sub(since) > s.ttl {
			delete(s.items, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	s.closed(expired...)
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Sweep(now); n > 0 {
				logger.Info("workspace: expired idle sessions", slog.Int("count", n))
			}
		}
	}
}
