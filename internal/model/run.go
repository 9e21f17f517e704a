package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a workflow run.
// Transitions: running → completed | error (terminal).
// A cancelled run finishes as completed with ComplianceAchieved as-is.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusError     RunStatus = "error"
)

// RunState is one invocation of the workflow manager for a given agent,
// bounded by a cycle budget or a compliance target. Created before the
// execution goroutine starts so a caller can never observe a run it
// started but the manager does not know about.
type RunState struct {
	RunID            uuid.UUID `json:"run_id"`
	AgentID          string    `json:"agent_id"`
	TargetCycles     int       `json:"target_cycles"`
	TargetCompliance float64   `json:"target_compliance"`
	Status           RunStatus `json:"status"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time,omitzero"`

	CyclesCompleted    int     `json:"cycles_completed"`
	ComplianceAchieved bool    `json:"compliance_achieved"`
	LastCompliance     float64 `json:"last_compliance"`

	// Error holds the failure message when Status is error.
	Error string `json:"error,omitempty"`
}

// WorkflowReport is the final aggregate persisted when a run finishes.
type WorkflowReport struct {
	RunID       uuid.UUID `json:"run_id"`
	AgentID     string    `json:"agent_id"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalCycles        int     `json:"total_cycles"`
	SuccessfulCycles   int     `json:"successful_cycles"`
	AverageScore       float64 `json:"average_score"`
	ComplianceRate     float64 `json:"compliance_rate"`
	FinalCompliance    float64 `json:"final_compliance"`
	ComplianceAchieved bool    `json:"compliance_achieved"`

	// ImprovementTrend compares the first-20 and last-20 cycle score
	// averages; nil when fewer than 40 cycles ran.
	ImprovementTrend *float64 `json:"improvement_trend,omitempty"`

	// CriticalIssues lists error strings that occurred in more than 10%
	// of the run's cycles.
	CriticalIssues []string `json:"critical_issues,omitempty"`

	Recommendations []string `json:"recommendations,omitempty"`
}
