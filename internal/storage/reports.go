package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashita-ai/junshu/internal/model"
)

// SaveReport persists a workflow report as a JSON blob keyed by agent
// and timestamp. Report write failures do not affect a run's completed
// status; the caller only logs them.
func (d *DB) SaveReport(ctx context.Context, report model.WorkflowReport) error {
	blob, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("storage: marshal report: %w", err)
	}
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO workflow_reports (id, run_id, agent_id, report, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), report.RunID.String(), report.AgentID, string(blob), report.GeneratedAt,
	); err != nil {
		return fmt.Errorf("storage: insert report: %w", err)
	}
	return nil
}

// GetReport loads the report persisted for a run. Returns ErrNotFound
// when the run never completed or reporting failed.
func (d *DB) GetReport(ctx context.Context, runID uuid.UUID) (model.WorkflowReport, error) {
	var blob string
	err := d.db.QueryRowContext(ctx,
		`SELECT report FROM workflow_reports WHERE run_id = ? ORDER BY created_at DESC LIMIT 1`,
		runID.String(),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WorkflowReport{}, ErrNotFound
	}
	if err != nil {
		return model.WorkflowReport{}, fmt.Errorf("storage: query report: %w", err)
	}

	var report model.WorkflowReport
	if err := json.Unmarshal([]byte(blob), &report); err != nil {
		return model.WorkflowReport{}, fmt.Errorf("storage: decode report: %w", err)
	}
	return report, nil
}

// ListReports returns report metadata for an agent, newest first.
func (d *DB) ListReports(ctx context.Context, agentID string, limit int) ([]model.WorkflowReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT report FROM workflow_reports WHERE agent_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query reports: %w", err)
	}
	defer rows.Close()

	var reports []model.WorkflowReport
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("storage: scan report: %w", err)
		}
		var report model.WorkflowReport
		if err := json.Unmarshal([]byte(blob), &report); err != nil {
			return nil, fmt.Errorf("storage: decode report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
