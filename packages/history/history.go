// Package history keeps a log of executed actions in a SQLite database
// inside the data directory.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// DefaultFile is the history database file name inside the data directory.
const DefaultFile = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS invocations (
	id          TEXT PRIMARY KEY,
	action      TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_action ON invocations(action, created_at);
`

// Entry is one executed invocation. Request data and credentials are never stored.
type Entry struct {
	ID         string
	Action     string
	StatusCode int
	Duration   time.Duration
	Error      string
	Timestamp  time.Time
}

// Failed reports whether the invocation did not produce a response.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Store is the history database.
type Store struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	return &Store{
		db:           db,
		path:         path,
		queryTimeout: 30 * time.Second,
	}, nil
}

// OpenDir opens the default history database inside dataDir.
func OpenDir(dataDir string) (*Store, error) {
	return Open(filepath.Join(dataDir, DefaultFile))
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts an entry, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invocations (id, action, status_code, duration_ms, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.StatusCode, entry.Duration.Milliseconds(), entry.Error, entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty action returns
// entries for every action.
func (s *Store) Recent(ctx context.Context, action string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, action, status_code, duration_ms, error, created_at FROM invocations`
	args := []any{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMs int64
			createdAt  int64
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.StatusCode, &durationMs, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Timestamp = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}
