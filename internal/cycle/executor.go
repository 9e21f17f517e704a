// Package cycle executes one scenario for one agent: it dispatches to a
// category handler, applies the scenario's validation criteria, and
// blends the handler score with the criteria pass fraction.
//
// Run never returns an error. Every failure mode inside a cycle —
// collaborator errors, handler errors, even panics — is converted into a
// CycleResult with success=false, so one bad cycle can never take down a
// workflow run.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/junshu/internal/model"
	"github.com/ashita-ai/junshu/internal/verify"
)

// Archiver is the archival collaborator the executor drives. Failures
// from any of these methods are recoverable cycle-level events.
type Archiver interface {
	Archive(ctx context.Context, content, source, operation string, metadata map[string]any) (string, error)
	LogActivity(ctx context.Context, agentID, kind, message string, data map[string]any) error
	PendingVerifications(ctx context.Context) (int, error)
	MarkVerified(ctx context.Context, archiveID string, confidence float64) error
	Ping(ctx context.Context) error
}

// Verifier is the confidence-scored verification collaborator.
type Verifier interface {
	Verify(ctx context.Context, content, dataType, source, operation string) (verify.Result, error)
}

// Score blend weights: the handler's own score dominates, the generic
// criteria checks contribute the rest. When a scenario has no criteria
// intersecting the handler details, the handler score stands unchanged.
const (
	baseScoreWeight    = 0.7
	criteriaPassWeight = 0.3
)

// resilienceContainedScore is what a resilience cycle earns when the
// induced failure was contained and the system still answers.
const resilienceContainedScore = 0.8

// Executor runs scenarios against the collaborators.
type Executor struct {
	archiver Archiver
	verifier Verifier
	logger   *slog.Logger
}

// New creates an executor.
func New(archiver Archiver, verifier Verifier, logger *slog.Logger) *Executor {
	return &Executor{archiver: archiver, verifier: verifier, logger: logger}
}

// handlerOutcome is what a category handler reports back.
type handlerOutcome struct {
	success bool
	score   float64
	details map[string]any
	errors  []string
}

// Run executes one scenario for one agent and returns the cycle result.
func (e *Executor) Run(ctx context.Context, scenario model.TestScenario, agentID string) (result model.CycleResult) {
	result = model.CycleResult{
		CycleID:   uuid.New(),
		AgentID:   agentID,
		Scenario:  scenario,
		StartTime: time.Now().UTC(),
		Details:   map[string]any{},
	}

	// A handler bug must not escape the cycle boundary.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("cycle: handler panic",
				"scenario", scenario.ID, "agent_id", agentID, "panic", r)
			result.Success = false
			result.Score = 0
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", r))
		}
		result.EndTime = time.Now().UTC()
	}()

	// Record the invocation in the audit sink. Fire-and-forget: archiver
	// trouble here is log noise, not a cycle failure.
	if err := e.archiver.LogActivity(ctx, agentID, "cycle_start", "executing scenario", map[string]any{
		"scenario_id": scenario.ID,
		"category":    string(scenario.Category),
	}); err != nil {
		e.logger.Warn("cycle: activity log failed", "scenario", scenario.ID, "error", err)
	}

	var out handlerOutcome
	switch scenario.Category {
	case model.CategoryFunctional:
		out = e.runFunctional(ctx, scenario)
	case model.CategoryIntegration:
		out = e.runIntegration(ctx, scenario)
	case model.CategoryPerformance:
		out = e.runPerformance(ctx, scenario)
	case model.CategoryResilience:
		out = e.runResilience(ctx, scenario)
	default:
		out = e.runGeneric(ctx, scenario, agentID)
	}

	result.Details = out.details
	result.Errors = out.errors
	result.VerificationResults = checkCriteria(scenario.ValidationCriteria, out.details)
	result.Score = clamp01(blendScore(out.score, result.VerificationResults))

	// Success demands a clean error list — except for resilience cycles,
	// where the contained failure message is the evidence of a pass.
	// That carve-out is deliberate policy: "did not crash" is the win
	// condition, and the triggering error rides along for the audit trail.
	if scenario.Category == model.CategoryResilience {
		result.Success = out.success
	} else {
		result.Success = out.success && len(result.Errors) == 0
	}

	return result
}

// blendScore combines the handler's base score with the criteria pass
// fraction. No applicable criteria means the base score stands.
func blendScore(base float64, checks []model.VerificationCheck) float64 {
	if len(checks) == 0 {
		return base
	}
	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	frac := float64(passed) / float64(len(checks))
	return base*baseScoreWeight + frac*criteriaPassWeight
}

// outcomeScore derives success and score from the expected-outcome flags:
// full success scores 1.0, anything less scores the satisfied fraction.
func outcomeScore(expected []string, details map[string]any) (bool, float64) {
	if len(expected) == 0 {
		return true, 1.0
	}
	satisfied := 0
	for _, name := range expected {
		if model.Truthy(details[name]) {
			satisfied++
		}
	}
	if satisfied == len(expected) {
		return true, 1.0
	}
	return false, float64(satisfied) / float64(len(expected))
}

func clamp01(f float64) float64 {
	return min(1.0, max(0.0, f))
}
