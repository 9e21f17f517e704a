package catalog

import "github.com/ashita-ai/junshu/internal/model"

// Defaults returns the built-in scenario set used when no scenario file
// is configured. Every category is covered at least once, with the
// foundational archive/verify paths at the highest priorities.
//
// Handlers publish measured values into result details under the
// criterion names (e.g. min_confidence), so the generic criteria checks
// engage for the functional and integration scenarios. Performance and
// resilience criteria deliberately do not intersect the detail keys:
// their scores are fully determined by the handler formulas.
func Defaults() []model.TestScenario {
	return []model.TestScenario{
		{
			ID:          "archive-basic",
			Name:        "Archive basic content",
			Description: "Archive a small document and confirm it is queued for verification.",
			Category:    model.CategoryFunctional,
			Priority:    1,
			InputData: map[string]any{
				"operation": "archive",
				"content":   "Baseline compliance probe: archival of a short text document.",
				"source":    "workflow",
			},
			ExpectedOutcomes:   []string{"data_archived", "queued_for_verification"},
			ValidationCriteria: map[string]any{"data_archived": true},
		},
		{
			ID:          "verify-confidence",
			Name:        "Verify content confidence",
			Description: "Verify a factual statement and require the blended confidence to clear the threshold.",
			Category:    model.CategoryFunctional,
			Priority:    2,
			InputData: map[string]any{
				"operation": "verify",
				"content":   "Archived records carry timestamps, source attribution, and operation metadata.",
				"data_type": "text",
			},
			ExpectedOutcomes:   []string{"verified_successfully", "confidence_above_threshold"},
			ValidationCriteria: map[string]any{"min_confidence": 0.6},
		},
		{
			ID:          "archive-verify-pipeline",
			Name:        "Archive then verify pipeline",
			Description: "Remember a fact end to end: archive it, verify it, and confirm the verification queue was touched.",
			Category:    model.CategoryIntegration,
			Priority:    1,
			InputData: map[string]any{
				"fact":   "The workflow engine records every scenario invocation in the activity log.",
				"source": "workflow",
			},
			ExpectedOutcomes:   []string{"data_archived", "verified_successfully", "queue_checked"},
			ValidationCriteria: map[string]any{"queue_checked": true},
		},
		{
			ID:          "parallel-archive",
			Name:        "Parallel archive burst",
			Description: "Archive a batch of documents across a bounded worker pool within the time budget.",
			Category:    model.CategoryPerformance,
			Priority:    3,
			InputData: map[string]any{
				"concurrent_operations": 10,
				"content":               "Performance probe payload for parallel archival.",
			},
			ValidationCriteria: map[string]any{"max_processing_time": 30},
		},
		{
			ID:          "sustained-archive",
			Name:        "Sustained archive load",
			Description: "Larger archive batch with the same completion and latency requirements.",
			Category:    model.CategoryPerformance,
			Priority:    5,
			InputData: map[string]any{
				"concurrent_operations": 25,
				"content":               "Sustained load probe payload.",
			},
			ValidationCriteria: map[string]any{"max_processing_time": 30},
		},
		{
			ID:          "archiver-fault",
			Name:        "Archiver fault containment",
			Description: "Feed the archiver content that triggers its error path; passing means the failure was contained and the system still answers.",
			Category:    model.CategoryResilience,
			Priority:    2,
			InputData: map[string]any{
				"content": "",
			},
			ExpectedOutcomes:   []string{"error_handled", "system_stable"},
			ValidationCriteria: map[string]any{"max_recovery_time": 5},
		},
		{
			ID:          "activity-probe",
			Name:        "Activity log probe",
			Description: "Log a workflow heartbeat through the activity sink.",
			Category:    model.CategoryGeneric,
			Priority:    4,
			InputData: map[string]any{
				"note": "generic workflow heartbeat",
			},
		},
	}
}
