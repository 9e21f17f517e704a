package workflow

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/junshu/internal/catalog"
	"github.com/ashita-ai/junshu/internal/correction"
	"github.com/ashita-ai/junshu/internal/cycle"
	"github.com/ashita-ai/junshu/internal/model"
	"github.com/ashita-ai/junshu/internal/verify"
)

// fakeArchiver is a happy-path archiver. Setting block makes Archive
// hang until the context is cancelled, which keeps a run alive for
// busy/cancellation tests.
type fakeArchiver struct {
	block bool
}

func (f *fakeArchiver) Archive(ctx context.Context, content, source, operation string, metadata map[string]any) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return uuid.NewString(), nil
}

func (f *fakeArchiver) LogActivity(ctx context.Context, agentID, kind, message string, data map[string]any) error {
	return nil
}

func (f *fakeArchiver) PendingVerifications(ctx context.Context) (int, error) { return 1, nil }

func (f *fakeArchiver) MarkVerified(ctx context.Context, archiveID string, confidence float64) error {
	return nil
}

func (f *fakeArchiver) Ping(ctx context.Context) error { return nil }

type captureStore struct {
	mu      sync.Mutex
	reports []model.WorkflowReport
	err     error
}

func (c *captureStore) SaveReport(ctx context.Context, report model.WorkflowReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.reports = append(c.reports, report)
	return nil
}

func (c *captureStore) saved() []model.WorkflowReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.WorkflowReport(nil), c.reports...)
}

func passingScenarios() []model.TestScenario {
	return []model.TestScenario{{
		ID:               "archive-smoke",
		Name:             "Archive smoke test",
		Category:         model.CategoryFunctional,
		Priority:         1,
		InputData:        map[string]any{"operation": "archive", "content": "hello"},
		ExpectedOutcomes: []string{"data_archived", "archive_id"},
	}}
}

func newTestManager(t *testing.T, archiver *fakeArchiver, store ReportStore, scenarios []model.TestScenario) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cat, err := catalog.New(scenarios, 7)
	require.NoError(t, err)

	verifier := verify.New(0.7, logger)
	executor := cycle.New(archiver, verifier, logger)
	engine := correction.New(logger)
	return New(cat, executor, engine, store, logger)
}

func waitForRun(t *testing.T, m *Manager, runID uuid.UUID) model.RunState {
	t.Helper()
	done, err := m.Done(runID)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish in time")
	}
	state, err := m.Status(runID)
	require.NoError(t, err)
	return state
}

func TestRegisterAgentValidation(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())

	agent, err := m.RegisterAgent("agent-1", []string{"archive"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", agent.ID)
	assert.Equal(t, model.DefaultTuning(), agent.Tuning)

	_, err = m.RegisterAgent("bad agent id!", nil, nil)
	assert.Error(t, err)
}

func TestRegisterAgentIdempotent(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())

	first, err := m.RegisterAgent("agent-1", []string{"archive"}, nil)
	require.NoError(t, err)

	second, err := m.RegisterAgent("agent-1", []string{"archive", "verify"}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.RegisteredAt, second.RegisteredAt)
	assert.Equal(t, []string{"archive", "verify"}, second.Capabilities)

	// Explicit tuning replaces the stored tuning.
	custom := model.DefaultTuning()
	custom.BatchSize = 5
	third, err := m.RegisterAgent("agent-1", nil, &custom)
	require.NoError(t, err)
	assert.Equal(t, 5, third.Tuning.BatchSize)
}

func TestStartWorkflowUnknownAgent(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())

	_, err := m.StartWorkflow("nobody", 5, 0.8)
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestStartWorkflowInputBounds(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	_, err = m.StartWorkflow("agent-1", 0, 1.5)
	assert.Error(t, err)

	_, err = m.StartWorkflow("agent-1", maxTargetCycles+1, 0.8)
	assert.Error(t, err)
}

func TestWorkflowCompletesAndPersistsReport(t *testing.T) {
	store := &captureStore{}
	m := newTestManager(t, &fakeArchiver{}, store, passingScenarios())
	_, err := m.RegisterAgent("agent-1", []string{"archive"}, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 5, 0.99)
	require.NoError(t, err)

	state := waitForRun(t, m, runID)
	assert.Equal(t, model.RunStatusCompleted, state.Status)
	assert.Equal(t, 5, state.CyclesCompleted)
	assert.False(t, state.EndTime.IsZero())

	reports := store.saved()
	require.Len(t, reports, 1)
	report := reports[0]
	assert.Equal(t, runID, report.RunID)
	assert.Equal(t, 5, report.TotalCycles)
	assert.Equal(t, 5, report.SuccessfulCycles)
	assert.InDelta(t, 1.0, report.AverageScore, 1e-9)
	assert.InDelta(t, 1.0, report.ComplianceRate, 1e-9)
	assert.Nil(t, report.ImprovementTrend)
	assert.Empty(t, report.CriticalIssues)
}

func TestWorkflowStopsEarlyAtComplianceTarget(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 50, 0.5)
	require.NoError(t, err)

	state := waitForRun(t, m, runID)
	assert.Equal(t, model.RunStatusCompleted, state.Status)
	assert.True(t, state.ComplianceAchieved)
	assert.Equal(t, checkpointInterval, state.CyclesCompleted)
	assert.GreaterOrEqual(t, state.LastCompliance, 0.5)
}

func TestStartWorkflowRejectsBusyAgent(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{block: true}, nil, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 100, 0.99)
	require.NoError(t, err)

	_, err = m.StartWorkflow("agent-1", 5, 0.8)
	assert.ErrorIs(t, err, ErrAgentBusy)

	// A different agent is unaffected.
	_, err = m.RegisterAgent("agent-2", nil, nil)
	require.NoError(t, err)
	otherID, err := m.StartWorkflow("agent-2", 1, 0.99)
	require.NoError(t, err)

	require.NoError(t, m.Stop(runID))
	require.NoError(t, m.Stop(otherID))
	waitForRun(t, m, runID)
	waitForRun(t, m, otherID)

	// Once the first run finished, the agent is free again.
	_, err = m.StartWorkflow("agent-1", 1, 0.99)
	assert.NoError(t, err)
}

func TestStopCancelsCooperatively(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{block: true}, nil, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 1000, 0.99)
	require.NoError(t, err)

	require.NoError(t, m.Stop(runID))
	state := waitForRun(t, m, runID)

	// Cancellation is clean completion, not an error.
	assert.Equal(t, model.RunStatusCompleted, state.Status)
	assert.Empty(t, state.Error)
	assert.Less(t, state.CyclesCompleted, 1000)

	// The run record survives for later status queries.
	again, err := m.Status(runID)
	require.NoError(t, err)
	assert.Equal(t, state.RunID, again.RunID)
}

func TestStatusUnknownRun(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())

	_, err := m.Status(uuid.New())
	assert.ErrorIs(t, err, ErrUnknownRun)
	err = m.Stop(uuid.New())
	assert.ErrorIs(t, err, ErrUnknownRun)
	_, err = m.Done(uuid.New())
	assert.ErrorIs(t, err, ErrUnknownRun)
}

func TestReportFailureDoesNotFailRun(t *testing.T) {
	store := &captureStore{err: context.DeadlineExceeded}
	m := newTestManager(t, &fakeArchiver{}, store, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 3, 0.99)
	require.NoError(t, err)

	state := waitForRun(t, m, runID)
	assert.Equal(t, model.RunStatusCompleted, state.Status)
	assert.Empty(t, store.saved())
}

func TestAgentSummaryReflectsHistory(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())

	_, err := m.AgentSummary("nobody")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	_, err = m.RegisterAgent("agent-1", []string{"archive"}, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 4, 0.99)
	require.NoError(t, err)
	waitForRun(t, m, runID)

	summary, err := m.AgentSummary("agent-1")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.CycleCount)
	assert.InDelta(t, 1.0, summary.RecentScore, 1e-9)
	assert.InDelta(t, 100.0, summary.RecentSuccessPct, 1e-9)
	assert.False(t, summary.LastActivity.IsZero())
}

func TestShutdownCancelsActiveRuns(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{block: true}, nil, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	runID, err := m.StartWorkflow("agent-1", 1000, 0.99)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Shutdown(ctx)

	state, err := m.Status(runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, state.Status)
}

func TestRunsListsEveryRun(t *testing.T) {
	m := newTestManager(t, &fakeArchiver{}, nil, passingScenarios())
	_, err := m.RegisterAgent("agent-1", nil, nil)
	require.NoError(t, err)

	first, err := m.StartWorkflow("agent-1", 1, 0.99)
	require.NoError(t, err)
	waitForRun(t, m, first)

	second, err := m.StartWorkflow("agent-1", 1, 0.99)
	require.NoError(t, err)
	waitForRun(t, m, second)

	ids := make(map[uuid.UUID]bool)
	for _, state := range m.Runs() {
		ids[state.RunID] = true
	}
	assert.True(t, ids[first])
	assert.True(t, ids[second])
}
