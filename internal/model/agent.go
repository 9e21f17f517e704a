package model

import "time"

// MaxPerformanceHistory bounds the per-agent performance ring; the oldest
// entries are trimmed first.
const MaxPerformanceHistory = 100

// AgentTuning holds the named knobs the correction engine adjusts.
// Most knobs are advisory instrumentation: the workflow core reads back
// only MinConfidence (when building corrected retry scenarios) and
// RetryAttempts; the rest exist so operators and downstream subsystems
// can observe what the engine decided.
type AgentTuning struct {
	Timeout       time.Duration `json:"timeout"`
	BatchSize     int           `json:"batch_size"`
	MinConfidence float64       `json:"min_confidence"`
	RetryAttempts int           `json:"retry_attempts"`

	ProgressiveTimeout     bool `json:"progressive_timeout"`
	TimeoutRecovery        bool `json:"timeout_recovery"`
	ConnectionRetry        bool `json:"connection_retry"`
	ConnectionPooling      bool `json:"connection_pooling"`
	ConnectionHealthChecks bool `json:"connection_health_checks"`
	MemoryOptimization     bool `json:"memory_optimization"`

	ArchiveBatching         bool `json:"archive_batching"`
	ArchiveRetry            bool `json:"archive_retry"`
	VerifierEnsemble        bool `json:"verifier_ensemble"`
	VerifierFallback        bool `json:"verifier_fallback"`
	VerifierRecalibration   bool `json:"verifier_recalibration"`
	VerificationDiagnostics bool `json:"verification_diagnostics"`

	PredictiveCorrections  bool `json:"predictive_corrections"`
	SelfHealing            bool `json:"self_healing"`
	ConsistencyEnforcement bool `json:"consistency_enforcement"`
	EmergencyMode          bool `json:"emergency_mode"`
	FundamentalsDrill      bool `json:"fundamentals_drill"`
	PrecisionTuning        bool `json:"precision_tuning"`
	StrictValidation       bool `json:"strict_validation"`
}

// Tuning knob bounds and defaults.
const (
	DefaultTimeout        = 30 * time.Second
	MaxTimeout            = 120 * time.Second
	DefaultBatchSize      = 50
	MinBatchSize          = 1
	DefaultMinConfidence  = 0.7
	DefaultRetryAttempts  = 3
	MaxRetryAttempts      = 5
	EmergencyBatchSize    = 10
	EmergencyMinConfWidth = 0.5
)

// DefaultTuning returns the knobs every agent starts from.
func DefaultTuning() AgentTuning {
	return AgentTuning{
		Timeout:       DefaultTimeout,
		BatchSize:     DefaultBatchSize,
		MinConfidence: DefaultMinConfidence,
		RetryAttempts: DefaultRetryAttempts,
	}
}

// PerformanceSample is one entry in an agent's performance history.
type PerformanceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Success   bool      `json:"success"`
}

// AgentRecord is the per-agent mutable state owned by the workflow
// manager. All mutation happens under the manager's lock; AgentRecord
// itself carries no synchronization.
type AgentRecord struct {
	ID           string      `json:"id"`
	Capabilities []string    `json:"capabilities"`
	Tuning       AgentTuning `json:"tuning"`
	RegisteredAt time.Time   `json:"registered_at"`
	CycleCount   int         `json:"cycle_count"`
	LastActivity time.Time   `json:"last_activity"`

	// PerformanceHistory keeps the trailing MaxPerformanceHistory samples.
	PerformanceHistory []PerformanceSample `json:"performance_history"`
}

// RecordCycle appends a performance sample, bumps the cycle counter, and
// trims the history to MaxPerformanceHistory.
func (a *AgentRecord) RecordCycle(result CycleResult) {
	a.CycleCount++
	a.LastActivity = result.EndTime
	a.PerformanceHistory = append(a.PerformanceHistory, PerformanceSample{
		Timestamp: result.EndTime,
		Score:     result.Score,
		Success:   result.Success,
	})
	if n := len(a.PerformanceHistory) - MaxPerformanceHistory; n > 0 {
		a.PerformanceHistory = a.PerformanceHistory[n:]
	}
}

// TrailingAverageScore returns the mean score of the most recent n
// history samples, or 0 when the history is empty.
func (a *AgentRecord) TrailingAverageScore(n int) float64 {
	h := a.PerformanceHistory
	if len(h) == 0 || n <= 0 {
		return 0
	}
	if n > len(h) {
		n = len(h)
	}
	var sum float64
	for _, s := range h[len(h)-n:] {
		sum += s.Score
	}
	return sum / float64(n)
}
