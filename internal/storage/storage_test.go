package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/junshu/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestArchiveEnqueuesVerification(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.Archive(ctx, "archived content", "test", "archive", map[string]any{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	pending, err := db.PendingVerifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	count, err := db.ArchiveCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, db.MarkVerified(ctx, id, 0.85))
	pending, err = db.PendingVerifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	// Resolving twice finds no pending entry.
	assert.ErrorIs(t, db.MarkVerified(ctx, id, 0.85), ErrNotFound)
}

func TestArchiveRejectsEmptyContent(t *testing.T) {
	db := testDB(t)

	_, err := db.Archive(context.Background(), "", "test", "archive", nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	// The failed archive left no partial state behind.
	pending, err := db.PendingVerifications(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestActivityLogRoundtrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.LogActivity(ctx, "agent-1", "cycle_start", "scenario selected", map[string]any{"scenario": "archive-basic"}))
	require.NoError(t, db.LogActivity(ctx, "agent-1", "cycle_end", "scenario finished", nil))
	require.NoError(t, db.LogActivity(ctx, "agent-2", "cycle_start", "other agent", nil))

	entries, err := db.RecentActivity(ctx, "agent-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "agent-1", e.AgentID)
	}
}

func TestReportRoundtrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	trend := 0.12
	report := model.WorkflowReport{
		RunID:            uuid.New(),
		AgentID:          "agent-1",
		GeneratedAt:      time.Now().UTC().Truncate(time.Second),
		TotalCycles:      50,
		SuccessfulCycles: 41,
		AverageScore:     0.83,
		ComplianceRate:   0.82,
		FinalCompliance:  0.87,
		ImprovementTrend: &trend,
		CriticalIssues:   []string{"storage: archive: empty content"},
		Recommendations:  []string{"review archiver input validation"},
	}
	require.NoError(t, db.SaveReport(ctx, report))

	got, err := db.GetReport(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report, got)

	_, err = db.GetReport(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	reports, err := db.ListReports(ctx, "agent-1", 10)
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
