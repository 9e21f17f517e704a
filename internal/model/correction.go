package model

// CorrectionKind is a symbolic correction tag generated from a poor cycle
// outcome. The closed set of constants makes an unrecognized tag
// impossible by construction; values keep the symbolic snake_case names
// so tags remain readable in logs, reports and activity records.
type CorrectionKind string

// Layer 1 — reactive corrections, keyed on error text.
const (
	CorrIncreaseTimeout    CorrectionKind = "increase_timeout_settings"
	CorrProgressiveTimeout CorrectionKind = "implement_progressive_timeout"
	CorrTimeoutRecovery    CorrectionKind = "add_timeout_recovery_mechanism"

	CorrConnectionRetry        CorrectionKind = "add_connection_retry_logic"
	CorrConnectionPooling      CorrectionKind = "enable_connection_pooling"
	CorrConnectionHealthChecks CorrectionKind = "add_connection_health_checks"

	CorrReduceBatchSize    CorrectionKind = "reduce_batch_size"
	CorrMemoryOptimization CorrectionKind = "enable_memory_optimization"

	CorrRecalibrateVerifier    CorrectionKind = "recalibrate_verification_models"
	CorrVerificationFallback   CorrectionKind = "add_verification_fallback_path"
	CorrVerificationDiagnostic CorrectionKind = "capture_verification_diagnostics"
)

// Layer 2 — adaptive corrections, keyed on detail flags and score.
const (
	CorrArchiveBatching     CorrectionKind = "enable_archive_batching"
	CorrArchiveRetry        CorrectionKind = "add_archive_retry"
	CorrVerifierEnsemble    CorrectionKind = "enable_verifier_ensemble"
	CorrAdjustConfidence    CorrectionKind = "adjust_confidence_threshold"
	CorrIncreaseRetryBudget CorrectionKind = "increase_retry_budget"
)

// Layer 3 — strategic corrections, keyed on score bands and correction count.
const (
	CorrPredictiveAnalysis     CorrectionKind = "enable_predictive_corrections"
	CorrSelfHealing            CorrectionKind = "enable_self_healing_mode"
	CorrConsistencyEnforcement CorrectionKind = "enforce_correction_consistency"
	CorrEmergencyMode          CorrectionKind = "activate_emergency_compliance_mode"
	CorrFundamentalsDrill      CorrectionKind = "schedule_fundamentals_drill"
	CorrPrecisionTuning        CorrectionKind = "enable_precision_tuning"
	CorrStrictValidation       CorrectionKind = "tighten_validation_margins"
)

// Correction is a tagged variant: the kind plus the strongly-typed payload
// the apply step needs. Only the confidence-threshold adjustment carries a
// payload today; the zero value of Threshold is ignored by every other kind.
type Correction struct {
	Kind CorrectionKind `json:"kind"`

	// Threshold is the new min-confidence target for
	// CorrAdjustConfidence; unused otherwise.
	Threshold float64 `json:"threshold,omitempty"`
}

// Kinds extracts the tag list from a correction set, preserving order.
func Kinds(corrections []Correction) []CorrectionKind {
	kinds := make([]CorrectionKind, len(corrections))
	for i, c := range corrections {
		kinds[i] = c.Kind
	}
	return kinds
}
