// Package workflow orchestrates compliance runs: it owns the agent
// registry and the per-run state, executes cycles in a background
// goroutine per run, applies corrections to underperforming cycles, and
// stops when the cycle budget is exhausted or the compliance target is
// met at a 10-cycle checkpoint.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/junshu/internal/catalog"
	"github.com/ashita-ai/junshu/internal/compliance"
	"github.com/ashita-ai/junshu/internal/correction"
	"github.com/ashita-ai/junshu/internal/cycle"
	"github.com/ashita-ai/junshu/internal/model"
	"github.com/ashita-ai/junshu/internal/telemetry"
)

var (
	ErrUnknownAgent = errors.New("workflow: unknown agent")
	ErrAgentBusy    = errors.New("workflow: agent already has a running workflow")
	ErrUnknownRun   = errors.New("workflow: unknown run")
)

const (
	// Compliance is checked every checkpointInterval cycles, over a
	// trailing window of the same size.
	checkpointInterval = 10

	// A cycle below correctionCutoff (or any failed cycle) triggers a
	// correction pass; below retryCutoff the corrected scenario is
	// re-executed as well.
	correctionCutoff = 0.8
	retryCutoff      = 0.5

	// Final report persistence gets its own deadline because the run's
	// context may already be cancelled by the time the loop finishes.
	reportSaveTimeout = 10 * time.Second

	defaultTargetCycles     = 50
	defaultTargetCompliance = 0.85
	maxTargetCycles         = 10_000
)

// ReportStore persists final workflow reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report model.WorkflowReport) error
}

// run pairs a RunState with its cancellation token and result history.
// All fields are guarded by the manager mutex except done, which is
// closed exactly once by the run goroutine.
type run struct {
	state   model.RunState
	results []model.CycleResult
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager owns agents and runs. All exported methods are safe for
// concurrent use.
type Manager struct {
	catalog     *catalog.Catalog
	executor    *cycle.Executor
	corrections *correction.Engine
	reports     ReportStore
	logger      *slog.Logger

	mu     sync.Mutex
	agents map[string]*model.AgentRecord
	runs   map[uuid.UUID]*run

	// rootCtx parents every run context so Shutdown can cancel them all.
	rootCtx    context.Context
	cancelRoot context.CancelFunc

	cycleCounter metric.Int64Counter
	scoreHist    metric.Float64Histogram

	defaultCycles     int
	defaultCompliance float64
}

// New creates a workflow manager. The report store may be nil, in which
// case final reports are only logged.
func New(cat *catalog.Catalog, executor *cycle.Executor, corrections *correction.Engine, reports ReportStore, logger *slog.Logger) *Manager {
	rootCtx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		catalog:     cat,
		executor:    executor,
		corrections: corrections,
		reports:     reports,
		logger:      logger,
		agents:      make(map[string]*model.AgentRecord),
		runs:        make(map[uuid.UUID]*run),
		rootCtx:     rootCtx,
		cancelRoot:  cancel,

		defaultCycles:     defaultTargetCycles,
		defaultCompliance: defaultTargetCompliance,
	}

	meter := telemetry.Meter("junshu/workflow")
	m.cycleCounter, _ = meter.Int64Counter("junshu.workflow.cycles",
		metric.WithDescription("Total workflow cycles executed"))
	m.scoreHist, _ = meter.Float64Histogram("junshu.workflow.cycle_score",
		metric.WithDescription("Blended cycle score distribution"))

	return m
}

// SetDefaults overrides the fallback target cycles and compliance used
// when StartWorkflow receives non-positive values. Out-of-range inputs
// are ignored.
func (m *Manager) SetDefaults(targetCycles int, targetCompliance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if targetCycles > 0 && targetCycles <= maxTargetCycles {
		m.defaultCycles = targetCycles
	}
	if targetCompliance > 0 && targetCompliance <= 1.0 {
		m.defaultCompliance = targetCompliance
	}
}

func (m *Manager) defaults() (int, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultCycles, m.defaultCompliance
}

// RegisterAgent adds an agent to the registry. A nil tuning gets the
// defaults. Re-registering an existing agent refreshes its capabilities
// and tuning but keeps its performance history.
func (m *Manager) RegisterAgent(agentID string, capabilities []string, tuning *model.AgentTuning) (model.AgentRecord, error) {
	if err := model.ValidateAgentID(agentID); err != nil {
		return model.AgentRecord{}, fmt.Errorf("workflow: register agent: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		agent = &model.AgentRecord{
			ID:           agentID,
			Tuning:       model.DefaultTuning(),
			RegisteredAt: time.Now().UTC(),
		}
		m.agents[agentID] = agent
	}
	agent.Capabilities = append([]string(nil), capabilities...)
	if tuning != nil {
		agent.Tuning = *tuning
	}

	m.logger.Info("workflow: agent registered", "agent_id", agentID, "capabilities", len(capabilities))
	return *agent, nil
}

// AgentSummary returns a point-in-time summary of an agent's state and
// recent performance.
func (m *Manager) AgentSummary(agentID string) (model.AgentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return model.AgentSummary{}, ErrUnknownAgent
	}

	recent := agent.PerformanceHistory
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	var scoreSum float64
	successes := 0
	for _, sample := range recent {
		scoreSum += sample.Score
		if sample.Success {
			successes++
		}
	}
	summary := model.AgentSummary{
		AgentID:      agent.ID,
		Capabilities: append([]string(nil), agent.Capabilities...),
		Tuning:       agent.Tuning,
		RegisteredAt: agent.RegisteredAt,
		CycleCount:   agent.CycleCount,
		LastActivity: agent.LastActivity,
	}
	if len(recent) > 0 {
		summary.RecentScore = scoreSum / float64(len(recent))
		summary.RecentSuccessPct = float64(successes) / float64(len(recent)) * 100
	}
	return summary, nil
}

// StartWorkflow launches a background run for the given agent and
// returns its run ID. The RunState is registered before the goroutine
// starts, so Status can never miss a run it was just handed. An agent
// can have at most one running workflow at a time.
func (m *Manager) StartWorkflow(agentID string, targetCycles int, targetCompliance float64) (uuid.UUID, error) {
	fallbackCycles, fallbackCompliance := m.defaults()
	if targetCycles <= 0 {
		targetCycles = fallbackCycles
	}
	if targetCycles > maxTargetCycles {
		return uuid.Nil, fmt.Errorf("workflow: target cycles %d exceeds limit %d", targetCycles, maxTargetCycles)
	}
	if targetCompliance <= 0 {
		targetCompliance = fallbackCompliance
	}
	if targetCompliance > 1.0 {
		return uuid.Nil, fmt.Errorf("workflow: target compliance %.2f out of range (0, 1]", targetCompliance)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return uuid.Nil, ErrUnknownAgent
	}
	for _, r := range m.runs {
		if r.state.AgentID == agentID && r.state.Status == model.RunStatusRunning {
			return uuid.Nil, ErrAgentBusy
		}
	}

	runCtx, cancel := context.WithCancel(m.rootCtx)
	r := &run{
		state: model.RunState{
			RunID:            uuid.New(),
			AgentID:          agentID,
			TargetCycles:     targetCycles,
			TargetCompliance: targetCompliance,
			Status:           model.RunStatusRunning,
			StartTime:        time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.runs[r.state.RunID] = r

	m.logger.Info("workflow: run started",
		"run_id", r.state.RunID,
		"agent_id", agentID,
		"target_cycles", targetCycles,
		"target_compliance", targetCompliance,
	)

	go m.execute(runCtx, r, agent)
	return r.state.RunID, nil
}

// Status returns a snapshot of the run's state. The snapshot is always
// well-formed; an unknown run ID is the only error condition.
func (m *Manager) Status(runID uuid.UUID) (model.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		return model.RunState{}, ErrUnknownRun
	}
	return r.state, nil
}

// Runs returns snapshots of every run the manager knows about, in no
// particular order. Finished runs are retained for the process lifetime.
func (m *Manager) Runs() []model.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]model.RunState, 0, len(m.runs))
	for _, r := range m.runs {
		states = append(states, r.state)
	}
	return states
}

// Stop requests cooperative cancellation of a run. The loop observes the
// cancellation at its next cycle boundary, so completion may lag by up
// to one full cycle. Stopping an already-finished run is a no-op.
func (m *Manager) Stop(runID uuid.UUID) error {
	m.mu.Lock()
	r, ok := m.runs[runID]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownRun
	}
	r.cancel()
	return nil
}

// Done returns a channel closed when the run's goroutine has finished,
// including its final report attempt.
func (m *Manager) Done(runID uuid.UUID) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		return nil, ErrUnknownRun
	}
	return r.done, nil
}

// Shutdown cancels every active run and waits for their goroutines to
// finish, up to the context deadline.
func (m *Manager) Shutdown(ctx context.Context) {
	m.cancelRoot()

	m.mu.Lock()
	waiting := make([]<-chan struct{}, 0, len(m.runs))
	for _, r := range m.runs {
		waiting = append(waiting, r.done)
	}
	m.mu.Unlock()

	for _, done := range waiting {
		select {
		case <-done:
		case <-ctx.Done():
			m.logger.Warn("workflow: shutdown timed out waiting for runs")
			return
		}
	}
}

// execute is the per-run loop. It never panics out: any escape from the
// cycle machinery is recorded as a run-level error status.
func (m *Manager) execute(ctx context.Context, r *run, agent *model.AgentRecord) {
	defer close(r.done)
	defer r.cancel()

	err := m.runCycles(ctx, r, agent)

	m.mu.Lock()
	if err != nil {
		r.state.Status = model.RunStatusError
		r.state.Error = err.Error()
	} else {
		r.state.Status = model.RunStatusCompleted
	}
	r.state.EndTime = time.Now().UTC()
	state := r.state
	results := r.results
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("workflow: run failed",
			"run_id", state.RunID, "agent_id", state.AgentID,
			"cycles_completed", state.CyclesCompleted, "error", err)
		return
	}

	m.logger.Info("workflow: run finished",
		"run_id", state.RunID,
		"agent_id", state.AgentID,
		"cycles_completed", state.CyclesCompleted,
		"compliance_achieved", state.ComplianceAchieved,
		"last_compliance", state.LastCompliance,
	)

	if len(results) > 0 {
		m.persistReport(buildReport(state, results))
	}
}

// runCycles executes cycles until the budget is exhausted, the
// compliance target is met, or the run is cancelled. Cancellation is not
// an error; the run completes over the cycles it managed to execute.
func (m *Manager) runCycles(ctx context.Context, r *run, agent *model.AgentRecord) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("workflow: run panic: %v", rec)
		}
	}()

	for cycleNum := range r.state.TargetCycles {
		if ctx.Err() != nil {
			m.logger.Info("workflow: run cancelled",
				"run_id", r.state.RunID, "after_cycles", cycleNum)
			return nil
		}

		m.mu.Lock()
		history := append([]model.CycleResult(nil), r.results...)
		m.mu.Unlock()

		scenario, err := m.catalog.Select(history)
		if err != nil {
			return fmt.Errorf("workflow: select scenario: %w", err)
		}

		result := m.executor.Run(ctx, scenario, r.state.AgentID)
		result = m.correctIfWeak(ctx, result, scenario, agent)

		m.mu.Lock()
		agent.RecordCycle(result)
		r.results = append(r.results, result)
		r.state.CyclesCompleted = cycleNum + 1
		m.mu.Unlock()

		m.cycleCounter.Add(ctx, 1)
		m.scoreHist.Record(ctx, result.Score)

		if (cycleNum+1)%checkpointInterval == 0 {
			m.mu.Lock()
			window := r.results
			if len(window) > checkpointInterval {
				window = window[len(window)-checkpointInterval:]
			}
			score := compliance.Compute(window)
			r.state.LastCompliance = score
			achieved := score >= r.state.TargetCompliance
			if achieved {
				r.state.ComplianceAchieved = true
			}
			m.mu.Unlock()

			m.logger.Info("workflow: compliance checkpoint",
				"run_id", r.state.RunID,
				"cycle", cycleNum+1,
				"compliance", score,
				"target", r.state.TargetCompliance,
			)
			if achieved {
				return nil
			}
		}
	}
	return nil
}

// correctIfWeak runs the correction pass for a weak cycle: generate
// tags, apply them to the agent's tuning, and when the score is very low
// re-execute a relaxed clone of the scenario. The corrected result
// replaces the original only if the retry actually succeeded; either
// way the surviving result carries the correction tags.
func (m *Manager) correctIfWeak(ctx context.Context, result model.CycleResult, scenario model.TestScenario, agent *model.AgentRecord) model.CycleResult {
	if result.Success && result.Score >= correctionCutoff {
		return result
	}

	m.mu.Lock()
	corrections := m.corrections.Generate(result, agent)
	applied := m.corrections.Apply(&agent.Tuning, corrections)
	m.mu.Unlock()

	result.CorrectionsMade = model.Kinds(corrections)
	m.logger.Info("workflow: corrections applied",
		"agent_id", result.AgentID,
		"scenario_id", scenario.ID,
		"score", result.Score,
		"generated", len(corrections),
		"applied", applied,
	)

	if result.Score >= retryCutoff {
		return result
	}

	retryScenario := correction.CorrectedScenario(scenario)
	retry := m.executor.Run(ctx, retryScenario, result.AgentID)
	if !retry.Success {
		m.logger.Info("workflow: corrected retry still failing, keeping original result",
			"agent_id", result.AgentID, "scenario_id", scenario.ID, "retry_score", retry.Score)
		return result
	}

	retry.CorrectionsMade = result.CorrectionsMade
	return retry
}

// persistReport writes the final report with its own deadline. Storage
// failures are logged and swallowed: a finished run stays completed.
func (m *Manager) persistReport(report model.WorkflowReport) {
	if m.reports == nil {
		m.logger.Info("workflow: no report store configured, skipping report persistence",
			"run_id", report.RunID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reportSaveTimeout)
	defer cancel()

	if err := m.reports.SaveReport(ctx, report); err != nil {
		m.logger.Error("workflow: report persistence failed",
			"run_id", report.RunID, "agent_id", report.AgentID, "error", err)
		return
	}
	m.logger.Info("workflow: report persisted", "run_id", report.RunID, "agent_id", report.AgentID)
}
