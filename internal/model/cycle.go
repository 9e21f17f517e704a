package model

import (
	"time"

	"github.com/google/uuid"
)

// VerificationCheck records the outcome of one validation-criteria
// comparison for a cycle.
type VerificationCheck struct {
	Criterion string `json:"criterion"`
	Expected  any    `json:"expected"`
	Actual    any    `json:"actual"`
	Passed    bool   `json:"passed"`
}

// CycleResult is the outcome of running one scenario once for one agent.
//
// Invariants: Score is in [0,1], and Success implies Errors is empty —
// except for resilience cycles, where containment of an induced failure
// is itself the pass condition, so Success=true coexists with the
// contained error message in Errors.
type CycleResult struct {
	CycleID   uuid.UUID    `json:"cycle_id"`
	AgentID   string       `json:"agent_id"`
	Scenario  TestScenario `json:"scenario"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Success   bool         `json:"success"`
	Score     float64      `json:"score"`

	// Details holds the outcome flags populated by the category handler.
	Details map[string]any `json:"details"`

	Errors              []string            `json:"errors,omitempty"`
	VerificationResults []VerificationCheck `json:"verification_results,omitempty"`

	// CorrectionsMade lists the correction tags applied before this
	// result was recorded. Empty unless a correction pass ran. When a
	// corrected retry replaces the original result, the tags survive on
	// the replacement.
	CorrectionsMade []CorrectionKind `json:"corrections_made,omitempty"`
}

// Duration returns the wall-clock time the cycle took.
func (r CycleResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
