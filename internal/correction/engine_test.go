package correction

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/junshu/internal/model"
)

func testEngine() *Engine {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(logger)
}

func agentWithAverage(avg float64) *model.AgentRecord {
	agent := &model.AgentRecord{ID: "agent-1", Tuning: model.DefaultTuning()}
	for range 10 {
		agent.PerformanceHistory = append(agent.PerformanceHistory, model.PerformanceSample{Score: avg})
	}
	return agent
}

func kinds(corrections []model.Correction) map[model.CorrectionKind]bool {
	set := make(map[model.CorrectionKind]bool, len(corrections))
	for _, c := range corrections {
		set[c.Kind] = true
	}
	return set
}

func TestGenerateDeterministic(t *testing.T) {
	e := testEngine()
	agent := agentWithAverage(0.7)
	result := model.CycleResult{
		Score:   0.45,
		Success: false,
		Errors:  []string{"operation timeout after 30s", "connection refused"},
		Details: map[string]any{
			"data_archived":              false,
			"confidence_above_threshold": false,
		},
	}

	first := e.Generate(result, agent)
	second := e.Generate(result, agent)
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)

	// Deduplicated set: no kind appears twice.
	seen := map[model.CorrectionKind]int{}
	for _, c := range first {
		seen[c.Kind]++
	}
	for kind, n := range seen {
		assert.Equal(t, 1, n, "kind %s duplicated", kind)
	}
}

func TestReactiveLayerMatchesErrorText(t *testing.T) {
	e := testEngine()
	agent := agentWithAverage(0.9)

	result := model.CycleResult{
		Score:   0.95,
		Success: true,
		Errors:  []string{"Timeout waiting for archive", "verification model disagreement"},
	}
	set := kinds(e.Generate(result, agent))

	assert.True(t, set[model.CorrIncreaseTimeout])
	assert.True(t, set[model.CorrProgressiveTimeout])
	assert.True(t, set[model.CorrTimeoutRecovery])
	assert.True(t, set[model.CorrRecalibrateVerifier])
	assert.False(t, set[model.CorrConnectionRetry])
	// Score 0.95 and success: no strategic tags.
	assert.False(t, set[model.CorrPredictiveAnalysis])
	assert.False(t, set[model.CorrEmergencyMode])
}

func TestAdaptiveConfidenceTargetTracksHistory(t *testing.T) {
	e := testEngine()
	result := model.CycleResult{
		Score:   0.7,
		Details: map[string]any{"confidence_above_threshold": false},
	}

	find := func(corrections []model.Correction) model.Correction {
		for _, c := range corrections {
			if c.Kind == model.CorrAdjustConfidence {
				return c
			}
		}
		t.Fatal("adjust_confidence_threshold not generated")
		return model.Correction{}
	}

	assert.InDelta(t, 0.75, find(e.Generate(result, agentWithAverage(0.85))).Threshold, 1e-9)
	assert.InDelta(t, 0.5, find(e.Generate(result, agentWithAverage(0.65))).Threshold, 1e-9)
	assert.InDelta(t, 0.3, find(e.Generate(result, agentWithAverage(0.2))).Threshold, 1e-9)
}

func TestStrategicLayerBands(t *testing.T) {
	e := testEngine()
	agent := agentWithAverage(0.7)

	// Low score: emergency tags plus the broad predictive pair.
	set := kinds(e.Generate(model.CycleResult{Score: 0.3}, agent))
	assert.True(t, set[model.CorrEmergencyMode])
	assert.True(t, set[model.CorrFundamentalsDrill])
	assert.True(t, set[model.CorrPredictiveAnalysis])

	// High score but failed: precision tags, no emergency.
	set = kinds(e.Generate(model.CycleResult{Score: 0.85, Success: false}, agent))
	assert.True(t, set[model.CorrPrecisionTuning])
	assert.True(t, set[model.CorrStrictValidation])
	assert.False(t, set[model.CorrEmergencyMode])

	// More than two prior corrections: consistency enforcement.
	set = kinds(e.Generate(model.CycleResult{
		Score:           0.7,
		CorrectionsMade: []model.CorrectionKind{"a", "b", "c"},
	}, agent))
	assert.True(t, set[model.CorrConsistencyEnforcement])
}

func TestApplyMutatesTuning(t *testing.T) {
	e := testEngine()
	tuning := model.DefaultTuning()

	applied := e.Apply(&tuning, []model.Correction{
		{Kind: model.CorrIncreaseTimeout},
		{Kind: model.CorrReduceBatchSize},
		{Kind: model.CorrAdjustConfidence, Threshold: 0.5},
		{Kind: model.CorrIncreaseRetryBudget},
	})

	assert.Equal(t, 4, applied)
	assert.Equal(t, 45*time.Second, tuning.Timeout)
	assert.Equal(t, model.DefaultBatchSize/2, tuning.BatchSize)
	assert.InDelta(t, 0.5, tuning.MinConfidence, 1e-9)
	assert.Equal(t, model.DefaultRetryAttempts+1, tuning.RetryAttempts)
}

func TestApplyTimeoutCapped(t *testing.T) {
	e := testEngine()
	tuning := model.DefaultTuning()

	for range 10 {
		e.Apply(&tuning, []model.Correction{{Kind: model.CorrIncreaseTimeout}})
	}
	assert.Equal(t, model.MaxTimeout, tuning.Timeout)

	for range 10 {
		e.Apply(&tuning, []model.Correction{{Kind: model.CorrIncreaseRetryBudget}})
	}
	assert.Equal(t, model.MaxRetryAttempts, tuning.RetryAttempts)

	for range 10 {
		e.Apply(&tuning, []model.Correction{{Kind: model.CorrReduceBatchSize}})
	}
	assert.Equal(t, model.MinBatchSize, tuning.BatchSize)
}

func TestApplyEmergencyModeSetsSeveralKnobs(t *testing.T) {
	e := testEngine()
	tuning := model.DefaultTuning()

	applied := e.Apply(&tuning, []model.Correction{{Kind: model.CorrEmergencyMode}})
	assert.Equal(t, 1, applied)
	assert.True(t, tuning.EmergencyMode)
	assert.Equal(t, model.EmergencyBatchSize, tuning.BatchSize)
	assert.Equal(t, model.MaxTimeout, tuning.Timeout)
	assert.Equal(t, model.MaxRetryAttempts, tuning.RetryAttempts)
}

func TestApplyCountNeverExceedsInput(t *testing.T) {
	e := testEngine()
	tuning := model.DefaultTuning()

	corrections := []model.Correction{
		{Kind: model.CorrSelfHealing},
		{Kind: model.CorrAdjustConfidence, Threshold: 7.5}, // out of range: skipped
		{Kind: ""},                                         // zero value: skipped
	}
	applied := e.Apply(&tuning, corrections)
	assert.Equal(t, 1, applied)
	assert.LessOrEqual(t, applied, len(corrections))
	assert.GreaterOrEqual(t, applied, 0)
}

func TestCorrectedScenarioRelaxesOnce(t *testing.T) {
	original := model.TestScenario{
		ID:                 "verify-confidence",
		Category:           model.CategoryFunctional,
		Priority:           2,
		InputData:          map[string]any{"operation": "verify"},
		ValidationCriteria: map[string]any{"min_confidence": 0.9},
	}

	clone := CorrectedScenario(original)
	assert.Equal(t, "verify-confidence_corrected", clone.ID)
	assert.InDelta(t, 0.7, clone.MinConfidence(0), 1e-9)

	// The original is untouched.
	assert.InDelta(t, 0.9, original.MinConfidence(0), 1e-9)

	// Cloning the original again yields the same relaxation, and cloning
	// an already-corrected clone does not compound it.
	again := CorrectedScenario(original)
	assert.InDelta(t, 0.7, again.MinConfidence(0), 1e-9)
	double := CorrectedScenario(clone)
	assert.InDelta(t, 0.7, double.MinConfidence(0), 1e-9)
	assert.Equal(t, clone.ID, double.ID)
}

func TestCorrectedScenarioFloor(t *testing.T) {
	original := model.TestScenario{
		ID:                 "verify-low",
		Category:           model.CategoryFunctional,
		Priority:           2,
		ValidationCriteria: map[string]any{"min_confidence": 0.55},
	}
	clone := CorrectedScenario(original)
	assert.InDelta(t, 0.5, clone.MinConfidence(0), 1e-9)

	// Absent criterion: relax from the default.
	noCriteria := model.TestScenario{ID: "plain", Category: model.CategoryGeneric, Priority: 3}
	clone = CorrectedScenario(noCriteria)
	assert.InDelta(t, model.DefaultMinConfidence-0.2, clone.MinConfidence(0), 1e-9)
}
