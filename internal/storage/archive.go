package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Archive stores content in the archive and enqueues it for
// verification. It returns the archive entry ID. Empty content is
// rejected with ErrEmptyContent; any other input is accepted.
func (d *DB) Archive(ctx context.Context, content, source, operation string, metadata map[string]any) (string, error) {
	if content == "" {
		return "", ErrEmptyContent
	}

	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("storage: marshal metadata: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage: begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archive_entries (id, content, source, operation, metadata, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, content, source, operation, string(meta), now,
	); err != nil {
		return "", fmt.Errorf("storage: insert archive entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO verification_queue (id, archive_id, status, enqueued_at)
		 VALUES (?, ?, 'pending', ?)`,
		uuid.New().String(), id, now,
	); err != nil {
		return "", fmt.Errorf("storage: enqueue verification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage: commit archive: %w", err)
	}
	return id, nil
}

// PendingVerifications counts queue entries still awaiting verification.
func (d *DB) PendingVerifications(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_queue WHERE status = 'pending'`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count pending verifications: %w", err)
	}
	return n, nil
}

// MarkVerified resolves the queue entry for an archive ID with the
// verifier's confidence. Returns ErrNotFound when no pending entry exists.
func (d *DB) MarkVerified(ctx context.Context, archiveID string, confidence float64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE verification_queue
		 SET status = 'verified', confidence = ?, resolved_at = ?
		 WHERE archive_id = ? AND status = 'pending'`,
		confidence, time.Now().UTC(), archiveID,
	)
	if err != nil {
		return fmt.Errorf("storage: mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: mark verified rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveCount returns the number of archived entries.
func (d *DB) ArchiveCount(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count archive entries: %w", err)
	}
	return n, nil
}
