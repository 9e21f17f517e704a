package workflow

import (
	"fmt"
	"sort"
	"time"

	"github.com/ashita-ai/junshu/internal/model"
)

const (
	// A run needs at least trendMinCycles cycles before the first-20 vs
	// last-20 score comparison says anything useful.
	trendMinCycles = 40
	trendSegment   = 20

	// An error string recurring in more than this fraction of cycles is
	// flagged as a critical issue.
	criticalIssueRate = 0.10
)

// buildReport aggregates a finished run's results into the persisted
// report artifact.
func buildReport(state model.RunState, results []model.CycleResult) model.WorkflowReport {
	report := model.WorkflowReport{
		RunID:              state.RunID,
		AgentID:            state.AgentID,
		GeneratedAt:        time.Now().UTC(),
		TotalCycles:        len(results),
		FinalCompliance:    state.LastCompliance,
		ComplianceAchieved: state.ComplianceAchieved,
	}

	var scoreSum float64
	for _, result := range results {
		scoreSum += result.Score
		if result.Success {
			report.SuccessfulCycles++
		}
	}
	report.AverageScore = scoreSum / float64(len(results))
	report.ComplianceRate = float64(report.SuccessfulCycles) / float64(len(results))

	if len(results) >= trendMinCycles {
		trend := meanScore(results[len(results)-trendSegment:]) - meanScore(results[:trendSegment])
		report.ImprovementTrend = &trend
	}

	report.CriticalIssues = criticalIssues(results)
	report.Recommendations = recommendations(report)
	return report
}

func meanScore(results []model.CycleResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

// criticalIssues flags error strings that recurred in more than 10% of
// the run's cycles. Each cycle counts an error string at most once.
func criticalIssues(results []model.CycleResult) []string {
	counts := make(map[string]int)
	for _, result := range results {
		seen := make(map[string]bool, len(result.Errors))
		for _, msg := range result.Errors {
			if seen[msg] {
				continue
			}
			seen[msg] = true
			counts[msg]++
		}
	}

	total := len(results)
	var issues []string
	for msg, n := range counts {
		if float64(n)/float64(total) > criticalIssueRate {
			issues = append(issues, fmt.Sprintf("%s (in %d of %d cycles)", msg, n, total))
		}
	}
	sort.Strings(issues)
	return issues
}

// recommendations derives short operator-facing guidance from the
// aggregate numbers. Rule-based, most severe first.
func recommendations(report model.WorkflowReport) []string {
	var recs []string

	if !report.ComplianceAchieved {
		recs = append(recs, fmt.Sprintf(
			"Compliance target not reached (final %.2f). Consider a longer cycle budget or reviewing the agent's tuning.",
			report.FinalCompliance))
	}
	if report.AverageScore < 0.6 {
		recs = append(recs, fmt.Sprintf(
			"Average cycle score is %.2f. Focus on fundamentals: low-priority scenarios are masking basic failures.",
			report.AverageScore))
	}
	if report.ComplianceRate < 0.5 {
		recs = append(recs, fmt.Sprintf(
			"Only %d of %d cycles succeeded. Investigate the critical issues list before rerunning.",
			report.SuccessfulCycles, report.TotalCycles))
	}
	if len(report.CriticalIssues) > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d recurring error(s) detected. Address these before raising the compliance target.",
			len(report.CriticalIssues)))
	}
	if report.ImprovementTrend != nil && *report.ImprovementTrend < 0 {
		recs = append(recs, fmt.Sprintf(
			"Scores declined by %.2f over the run. Corrections are not holding; review the agent's configuration drift.",
			-*report.ImprovementTrend))
	}
	if len(recs) == 0 {
		recs = append(recs, "Performance is on target. Maintain the current configuration.")
	}
	return recs
}
