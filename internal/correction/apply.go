package correction

import (
	"maps"
	"strings"

	"github.com/ashita-ai/junshu/internal/model"
)

// Corrected-retry clone parameters: the clone relaxes min_confidence by
// a fixed step with a hard floor, always derived from the original
// scenario so repeated cloning never compounds.
const (
	confidenceRelaxStep  = 0.2
	confidenceRelaxFloor = 0.5

	correctedIDSuffix = "_corrected"
)

// Apply mutates the agent tuning for each correction and returns how
// many were applied. The count is always <= len(corrections): a
// correction whose payload is unusable (e.g. an out-of-range confidence
// target) is skipped, and the remaining corrections are still attempted.
func (e *Engine) Apply(tuning *model.AgentTuning, corrections []model.Correction) int {
	applied := 0
	for _, c := range corrections {
		if applyOne(tuning, c) {
			applied++
		} else {
			e.logger.Warn("correction: not applicable", "kind", c.Kind)
		}
	}
	return applied
}

func applyOne(tuning *model.AgentTuning, c model.Correction) bool {
	switch c.Kind {
	case model.CorrIncreaseTimeout:
		if tuning.Timeout <= 0 {
			tuning.Timeout = model.DefaultTimeout
		}
		tuning.Timeout = min(model.MaxTimeout, tuning.Timeout*3/2)
	case model.CorrProgressiveTimeout:
		tuning.ProgressiveTimeout = true
	case model.CorrTimeoutRecovery:
		tuning.TimeoutRecovery = true

	case model.CorrConnectionRetry:
		tuning.ConnectionRetry = true
	case model.CorrConnectionPooling:
		tuning.ConnectionPooling = true
	case model.CorrConnectionHealthChecks:
		tuning.ConnectionHealthChecks = true

	case model.CorrReduceBatchSize:
		tuning.BatchSize = max(model.MinBatchSize, tuning.BatchSize/2)
	case model.CorrMemoryOptimization:
		tuning.MemoryOptimization = true

	case model.CorrRecalibrateVerifier:
		tuning.VerifierRecalibration = true
	case model.CorrVerificationFallback:
		tuning.VerifierFallback = true
	case model.CorrVerificationDiagnostic:
		tuning.VerificationDiagnostics = true

	case model.CorrArchiveBatching:
		tuning.ArchiveBatching = true
	case model.CorrArchiveRetry:
		tuning.ArchiveRetry = true
	case model.CorrVerifierEnsemble:
		tuning.VerifierEnsemble = true
	case model.CorrAdjustConfidence:
		if c.Threshold <= 0 || c.Threshold > 1 {
			return false
		}
		tuning.MinConfidence = c.Threshold
	case model.CorrIncreaseRetryBudget:
		tuning.RetryAttempts = min(model.MaxRetryAttempts, tuning.RetryAttempts+1)

	case model.CorrPredictiveAnalysis:
		tuning.PredictiveCorrections = true
	case model.CorrSelfHealing:
		tuning.SelfHealing = true
	case model.CorrConsistencyEnforcement:
		tuning.ConsistencyEnforcement = true
	case model.CorrEmergencyMode:
		tuning.EmergencyMode = true
		tuning.BatchSize = model.EmergencyBatchSize
		tuning.MinConfidence = model.EmergencyMinConfWidth
		tuning.RetryAttempts = model.MaxRetryAttempts
		tuning.Timeout = model.MaxTimeout
	case model.CorrFundamentalsDrill:
		tuning.FundamentalsDrill = true
	case model.CorrPrecisionTuning:
		tuning.PrecisionTuning = true
	case model.CorrStrictValidation:
		tuning.StrictValidation = true

	default:
		return false
	}
	return true
}

// CorrectedScenario derives the retry variant of a scenario: same
// content, relaxed min_confidence (one fixed step down, floored), and a
// marked ID. The relaxation is computed from the scenario passed in; a
// scenario that is already a corrected clone is returned as a plain copy
// so the relaxation is never compounded.
func CorrectedScenario(original model.TestScenario) model.TestScenario {
	clone := original
	clone.InputData = maps.Clone(original.InputData)
	clone.ValidationCriteria = maps.Clone(original.ValidationCriteria)
	clone.ExpectedOutcomes = append([]string(nil), original.ExpectedOutcomes...)

	if strings.HasSuffix(original.ID, correctedIDSuffix) {
		return clone
	}

	clone.ID = original.ID + correctedIDSuffix
	if clone.ValidationCriteria == nil {
		clone.ValidationCriteria = map[string]any{}
	}
	clone.ValidationCriteria["min_confidence"] = max(
		confidenceRelaxFloor,
		original.MinConfidence(model.DefaultMinConfidence)-confidenceRelaxStep,
	)
	return clone
}
