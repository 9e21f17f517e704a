// Package correction turns poor cycle outcomes into symbolic correction
// tags and applies them to an agent's tuning knobs.
//
// Generation is layered: reactive tags keyed on error text, adaptive
// tags keyed on outcome flags and score, and strategic tags keyed on
// score bands and the correction count already carried by the result.
// Generation is fully deterministic for a given result and agent history.
package correction

import (
	"log/slog"
	"strings"

	"github.com/ashita-ai/junshu/internal/model"
)

// Confidence-threshold retuning bands: the agent's trailing-10 average
// score picks the new target.
const (
	confidenceTargetHigh = 0.75
	confidenceTargetMid  = 0.5
	confidenceTargetLow  = 0.3

	confidenceBandHigh = 0.8
	confidenceBandMid  = 0.6
)

// Strategic layer score bands.
const (
	strategicScoreCutoff = 0.9
	emergencyScoreCutoff = 0.6
	precisionScoreFloor  = 0.8
	adaptiveRetryCutoff  = 0.4
)

// Engine generates and applies corrections.
type Engine struct {
	logger *slog.Logger
}

// New creates a correction engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Generate produces the deduplicated union of all three correction
// layers for a cycle result. The agent record supplies the performance
// history the adaptive layer consults; it is read, never written.
func (e *Engine) Generate(result model.CycleResult, agent *model.AgentRecord) []model.Correction {
	var out []model.Correction
	seen := make(map[model.CorrectionKind]bool)

	add := func(corrections ...model.Correction) {
		for _, c := range corrections {
			if !seen[c.Kind] {
				seen[c.Kind] = true
				out = append(out, c)
			}
		}
	}

	add(reactiveLayer(result)...)
	add(adaptiveLayer(result, agent)...)
	add(strategicLayer(result)...)

	e.logger.Debug("correction: generated",
		"scenario", result.Scenario.ID,
		"agent_id", result.AgentID,
		"score", result.Score,
		"count", len(out))

	return out
}

// reactiveLayer matches error text against known failure categories.
func reactiveLayer(result model.CycleResult) []model.Correction {
	var out []model.Correction
	text := strings.ToLower(strings.Join(result.Errors, " "))
	if text == "" {
		return nil
	}

	if strings.Contains(text, "timeout") {
		out = append(out,
			model.Correction{Kind: model.CorrIncreaseTimeout},
			model.Correction{Kind: model.CorrProgressiveTimeout},
			model.Correction{Kind: model.CorrTimeoutRecovery},
		)
	}
	if strings.Contains(text, "connection") {
		out = append(out,
			model.Correction{Kind: model.CorrConnectionRetry},
			model.Correction{Kind: model.CorrConnectionPooling},
			model.Correction{Kind: model.CorrConnectionHealthChecks},
		)
	}
	if strings.Contains(text, "memory") {
		out = append(out,
			model.Correction{Kind: model.CorrReduceBatchSize},
			model.Correction{Kind: model.CorrMemoryOptimization},
		)
	}
	if strings.Contains(text, "verif") {
		out = append(out,
			model.Correction{Kind: model.CorrRecalibrateVerifier},
			model.Correction{Kind: model.CorrVerificationFallback},
			model.Correction{Kind: model.CorrVerificationDiagnostic},
		)
	}
	return out
}

// adaptiveLayer inspects the outcome flags the handlers set and the
// numeric score.
func adaptiveLayer(result model.CycleResult, agent *model.AgentRecord) []model.Correction {
	var out []model.Correction

	if flagPresentAndFalse(result.Details, "data_archived") {
		out = append(out,
			model.Correction{Kind: model.CorrArchiveBatching},
			model.Correction{Kind: model.CorrArchiveRetry},
		)
	}
	if flagPresentAndFalse(result.Details, "verified_successfully") {
		out = append(out, model.Correction{Kind: model.CorrVerifierEnsemble})
	}
	if flagPresentAndFalse(result.Details, "confidence_above_threshold") {
		out = append(out, model.Correction{
			Kind:      model.CorrAdjustConfidence,
			Threshold: confidenceTarget(agent.TrailingAverageScore(10)),
		})
	}
	if result.Score < adaptiveRetryCutoff {
		out = append(out, model.Correction{Kind: model.CorrIncreaseRetryBudget})
	}
	return out
}

// strategicLayer emits broader tags from score bands and the correction
// count the result already carries.
func strategicLayer(result model.CycleResult) []model.Correction {
	var out []model.Correction

	if result.Score < strategicScoreCutoff {
		out = append(out,
			model.Correction{Kind: model.CorrPredictiveAnalysis},
			model.Correction{Kind: model.CorrSelfHealing},
		)
	}
	if len(result.CorrectionsMade) > 2 {
		out = append(out, model.Correction{Kind: model.CorrConsistencyEnforcement})
	}
	if result.Score < emergencyScoreCutoff {
		out = append(out,
			model.Correction{Kind: model.CorrEmergencyMode},
			model.Correction{Kind: model.CorrFundamentalsDrill},
		)
	}
	if result.Score >= precisionScoreFloor && !result.Success {
		out = append(out,
			model.Correction{Kind: model.CorrPrecisionTuning},
			model.Correction{Kind: model.CorrStrictValidation},
		)
	}
	return out
}

// confidenceTarget picks the new min-confidence threshold from the
// agent's trailing average score.
func confidenceTarget(trailingAvg float64) float64 {
	switch {
	case trailingAvg >= confidenceBandHigh:
		return confidenceTargetHigh
	case trailingAvg >= confidenceBandMid:
		return confidenceTargetMid
	default:
		return confidenceTargetLow
	}
}

// flagPresentAndFalse reports whether the handler set the flag and it
// came out falsy. An absent flag means the handler never exercised that
// path, which is not evidence of a problem.
func flagPresentAndFalse(details map[string]any, name string) bool {
	v, ok := details[name]
	return ok && !model.Truthy(v)
}
