// Package storage provides the SQLite storage layer for Junshu: the
// content archive with its verification queue, the agent activity log,
// and persisted workflow reports.
//
// The driver is modernc.org/sqlite (pure Go, no cgo). A single DB handle
// is shared by the workflow engine and the HTTP surface; SQLite's own
// locking plus database/sql's connection pool handle concurrent access.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrEmptyContent is the designated archiver error path: archiving empty
// content is always rejected. Resilience scenarios rely on this to
// exercise failure containment without corrupting real state.
var ErrEmptyContent = errors.New("storage: archive: empty content")

const schema = `
CREATE TABLE IF NOT EXISTS archive_entries (
	id          TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	source      TEXT NOT NULL,
	operation   TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	archived_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS verification_queue (
	id          TEXT PRIMARY KEY,
	archive_id  TEXT NOT NULL REFERENCES archive_entries(id),
	status      TEXT NOT NULL DEFAULT 'pending',
	confidence  REAL,
	enqueued_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_verification_queue_status ON verification_queue(status);

CREATE TABLE IF NOT EXISTS activity_log (
	id         TEXT PRIMARY KEY,
	agent_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	data       TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_log_agent ON activity_log(agent_id, created_at);

CREATE TABLE IF NOT EXISTS workflow_reports (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	agent_id   TEXT NOT NULL,
	report     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflow_reports_agent ON workflow_reports(agent_id, created_at);
`

// DB wraps the SQLite handle.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	if path == ":memory:" {
		// WAL mode is meaningless in memory, and each connection gets its
		// own database unless the cache is shared.
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	// modernc sqlite serializes writes per connection; a single
	// connection avoids SQLITE_BUSY churn under concurrent cycles.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}

	return &DB{db: db, logger: logger}, nil
}

// Ping checks that the database still answers. Resilience scenarios use
// this as their post-fault stability probe.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close shuts down the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
