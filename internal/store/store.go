// Package store keeps an optional SQLite history of runs and cycles.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; avoids SQLITE_BUSY between the loop and kactl.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		cycles INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	CREATE INDEX IF NOT EXISTS idx_cycles_run ON cycles(run_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StartRun records the start of a run.
func (s *Store) StartRun(ctx context.Context, id, mode string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at) VALUES (?, ?, ?)
	`, id, mode, startedAt.UTC())
	return err
}

// FinishRun stamps the end of a run with its cycle count and overall outcome.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, cycles int, outcome string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, cycles = ?, outcome = ? WHERE id = ?
	`, finishedAt.UTC(), cycles, outcome, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("store: unknown run " + id)
	}
	return nil
}

// RecordCycle appends one cycle result to a run.
func (s *Store) RecordCycle(ctx context.Context, runID string, r types.CycleResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (run_id, seq, started_at, duration_ms, status, outcome, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, r.Seq, r.StartedAt.UTC(), r.Duration.Milliseconds(), string(r.Status), string(r.Outcome), r.Reason)
	return err
}

// RecentCycles returns the latest cycles, newest first.
func (s *Store) RecentCycles(ctx context.Context, limit int) ([]Cycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, seq, started_at, duration_ms, status, outcome, COALESCE(reason, '')
		FROM cycles
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		var ms int64
		if err := rows.Scan(&c.ID, &c.RunID, &c.Seq, &c.StartedAt, &ms, &c.Status, &c.Outcome, &c.Reason); err != nil {
			return nil, err
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, mode, started_at, finished_at, cycles, outcome FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Mode, &r.StartedAt, &finished, &r.Cycles, &r.Outcome)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}
