// Package history keeps a SQLite ledger of rendered jobs so repeated batch
// runs can be compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions = 0750

	defaultLimit = 50
	maxLimit     = 1000

	busyTimeoutMs = 5000
)

// Job statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const schema = `CREATE TABLE IF NOT EXISTS jobs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	engine      TEXT    NOT NULL,
	scene       TEXT    NOT NULL,
	resolution  INTEGER NOT NULL,
	output_path TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	created_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_run ON jobs(run_id);`

// Entry is one recorded job.
type Entry struct {
	ID         int64
	RunID      string
	Engine     string
	Scene      string
	Resolution int
	OutputPath string
	Status     string
	Duration   time.Duration
	Error      string
	CreatedAt  time.Time
}

// Ledger is an open job ledger.
type Ledger struct {
	db   *sql.DB
	path string
}

// NewRunID returns a fresh identifier grouping the jobs of one batch run.
func NewRunID() string { return uuid.NewString() }

// Open opens (creating if needed) the ledger at path and applies the schema.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("verifying history connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &Ledger{db: db, path: path}, nil
}

// dsn builds the connection URI for path. The path is percent-escaped so
// that '?', '#' and '%' in file names survive.
// See: https://github.com/mattn/go-sqlite3#connection-string
func dsn(path string) string {
	u := url.URL{Path: path}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", u.EscapedPath(), busyTimeoutMs)
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("closing history: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

// Record inserts e. A zero CreatedAt is set to now.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, engine, scene, resolution, output_path, status, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID,
		e.Engine,
		e.Scene,
		e.Resolution,
		e.OutputPath,
		e.Status,
		e.Duration.Milliseconds(),
		e.Error,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first (default 50, max 1000).
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, engine, scene, resolution, output_path, status, duration_ms, error, created_at
		 FROM jobs
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var ms int64
		var createdAt string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Engine, &e.Scene, &e.Resolution, &e.OutputPath,
			&e.Status, &ms, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}
