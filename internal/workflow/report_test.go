package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/junshu/internal/model"
)

func cycleResults(n int, score float64, success bool, errs ...string) []model.CycleResult {
	results := make([]model.CycleResult, n)
	for i := range results {
		results[i] = model.CycleResult{
			Success: success,
			Score:   score,
			Errors:  append([]string(nil), errs...),
		}
	}
	return results
}

func TestBuildReportTotals(t *testing.T) {
	state := model.RunState{
		RunID:              uuid.New(),
		AgentID:            "agent-1",
		LastCompliance:     0.91,
		ComplianceAchieved: true,
	}
	results := append(cycleResults(6, 1.0, true), cycleResults(4, 0.2, false)...)

	report := buildReport(state, results)
	assert.Equal(t, state.RunID, report.RunID)
	assert.Equal(t, 10, report.TotalCycles)
	assert.Equal(t, 6, report.SuccessfulCycles)
	assert.InDelta(t, 0.68, report.AverageScore, 1e-9)
	assert.InDelta(t, 0.6, report.ComplianceRate, 1e-9)
	assert.InDelta(t, 0.91, report.FinalCompliance, 1e-9)
	assert.True(t, report.ComplianceAchieved)
	assert.Nil(t, report.ImprovementTrend, "trend needs at least 40 cycles")
}

func TestBuildReportImprovementTrend(t *testing.T) {
	// First 20 cycles at 0.4, last 20 at 0.9: trend is +0.5.
	results := append(cycleResults(20, 0.4, false), cycleResults(20, 0.9, true)...)
	report := buildReport(model.RunState{}, results)

	require.NotNil(t, report.ImprovementTrend)
	assert.InDelta(t, 0.5, *report.ImprovementTrend, 1e-9)

	// Declining scores produce a negative trend and a recommendation.
	results = append(cycleResults(20, 0.9, true), cycleResults(20, 0.4, false)...)
	report = buildReport(model.RunState{}, results)
	require.NotNil(t, report.ImprovementTrend)
	assert.InDelta(t, -0.5, *report.ImprovementTrend, 1e-9)
	assert.NotEmpty(t, report.Recommendations)
}

func TestCriticalIssuesThreshold(t *testing.T) {
	// 20 cycles: "timeout" in 3 (15% — critical), "blip" in 1 (5% — not).
	results := cycleResults(16, 1.0, true)
	results = append(results, cycleResults(3, 0.0, false, "timeout waiting for archiver")...)
	results = append(results, cycleResults(1, 0.0, false, "blip")...)

	report := buildReport(model.RunState{}, results)
	require.Len(t, report.CriticalIssues, 1)
	assert.Contains(t, report.CriticalIssues[0], "timeout waiting for archiver")
	assert.Contains(t, report.CriticalIssues[0], "3 of 20")
}

func TestCriticalIssuesCountsPerCycleOnce(t *testing.T) {
	// The same message repeated within one cycle counts once.
	results := cycleResults(19, 1.0, true)
	results = append(results, model.CycleResult{
		Success: false,
		Errors:  []string{"dup", "dup", "dup"},
	})
	report := buildReport(model.RunState{}, results)
	assert.Empty(t, report.CriticalIssues, "1 of 20 cycles is below the 10%% threshold")
}

func TestRecommendationsForHealthyRun(t *testing.T) {
	state := model.RunState{ComplianceAchieved: true, LastCompliance: 0.95}
	report := buildReport(state, cycleResults(10, 0.95, true))
	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "on target")
}

func TestRecommendationsForWeakRun(t *testing.T) {
	report := buildReport(model.RunState{}, cycleResults(10, 0.3, false, "timeout"))
	assert.GreaterOrEqual(t, len(report.Recommendations), 3)
	assert.NotEmpty(t, report.CriticalIssues)
}
