package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityEntry is one row of the agent activity log.
type ActivityEntry struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// LogActivity appends an audit record for an agent. Callers treat this as
// fire-and-forget: failures are reported but never abort a cycle.
func (d *DB) LogActivity(ctx context.Context, agentID, kind, message string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("storage: marshal activity data: %w", err)
	}
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, agent_id, kind, message, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), agentID, kind, message, string(payload), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage: insert activity: %w", err)
	}
	return nil
}

// RecentActivity returns the newest activity entries for an agent,
// newest first, capped at limit.
func (d *DB) RecentActivity(ctx context.Context, agentID string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, agent_id, kind, message, data, created_at
		 FROM activity_log WHERE agent_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query activity: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var data string
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Kind, &e.Message, &data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, fmt.Errorf("storage: decode activity data: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
