package model

import (
	"fmt"
	"regexp"
	"time"
)

// Agent ID constraints, shared by the HTTP and MCP surfaces.
const MaxAgentIDLen = 128

var agentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateAgentID checks the agent identifier format.
func ValidateAgentID(id string) error {
	if id == "" {
		return fmt.Errorf("agent_id is required")
	}
	if len(id) > MaxAgentIDLen {
		return fmt.Errorf("agent_id exceeds maximum length of %d characters", MaxAgentIDLen)
	}
	if !agentIDPattern.MatchString(id) {
		return fmt.Errorf("agent_id may only contain letters, digits, '.', '_' and '-'")
	}
	return nil
}

// RegisterAgentRequest is the body of POST /v1/agents.
type RegisterAgentRequest struct {
	AgentID      string       `json:"agent_id"`
	Capabilities []string     `json:"capabilities,omitempty"`
	Tuning       *AgentTuning `json:"tuning,omitempty"`
}

// StartWorkflowRequest is the body of POST /v1/workflows.
type StartWorkflowRequest struct {
	AgentID          string  `json:"agent_id"`
	CycleCount       int     `json:"cycle_count"`
	TargetCompliance float64 `json:"target_compliance"`
}

// StartWorkflowResponse returns the run handle.
type StartWorkflowResponse struct {
	RunID string `json:"run_id"`
}

// AgentSummary is the aggregate view of one agent returned by
// GET /v1/agents/{agent_id}/summary.
type AgentSummary struct {
	AgentID          string      `json:"agent_id"`
	Capabilities     []string    `json:"capabilities"`
	Tuning           AgentTuning `json:"tuning"`
	RegisteredAt     time.Time   `json:"registered_at"`
	CycleCount       int         `json:"cycle_count"`
	LastActivity     time.Time   `json:"last_activity,omitzero"`
	RecentScore      float64     `json:"recent_score"`
	RecentSuccessPct float64     `json:"recent_success_pct"`
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta is attached to every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes used in ErrorDetail.Code.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)
