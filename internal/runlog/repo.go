package runlog

import (
	"context"
	"fmt"
	"time"
)

// Entry is one recorded run.
type Entry struct {
	ID          int64     `json:"id"`
	Workspace   string    `json:"workspace,omitempty"`
	Language    string    `json:"language,omitempty"`
	Version     string    `json:"version,omitempty"`
	Cmd         string    `json:"cmd"`
	FileCount   int       `json:"file_count"`
	ExitCode    int       `json:"exit_code"`
	Status      string    `json:"status"`
	DurationMS  int64     `json:"duration_ms"`
	OutputBytes int64     `json:"output_bytes"`
	StartedAt   time.Time `json:"started_at"`
}

// Recorder is the write side used by the executor.
type Recorder interface {
	Record(ctx context.Context, e Entry) (int64, error)
}

var _ Recorder = (*DB)(nil)

// Record inserts e and returns its ID.
func (db *DB) Record(ctx context.Context, e Entry) (int64, error) {
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (workspace, language, version, cmd, file_count, exit_code, status, duration_ms, output_bytes, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Workspace, e.Language, e.Version, e.Cmd, e.FileCount, e.ExitCode, e.Status, e.DurationMS, e.OutputBytes, e.StartedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("runlog: insert: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent runs, newest first. workspace filters when
// non-empty. limit <= 0 defaults to 50.
func (db *DB) List(ctx context.Context, workspace string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, workspace, language, version, cmd, file_count, exit_code, status, duration_ms, output_bytes, started_at
		FROM runs
		WHERE ? = '' OR workspace = ?
		ORDER BY id DESC
		LIMIT ?
	`, workspace, workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: list: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Workspace, &e.Language, &e.Version, &e.Cmd, &e.FileCount,
			&e.ExitCode, &e.Status, &e.DurationMS, &e.OutputBytes, &e.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
