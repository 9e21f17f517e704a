package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/junshu/internal/model"
	"github.com/ashita-ai/junshu/internal/storage"
	"github.com/ashita-ai/junshu/internal/workflow"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	manager             *workflow.Manager
	db                  *storage.DB
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// DB may be nil when the server runs without persistence.
type HandlersDeps struct {
	Manager             *workflow.Manager
	DB                  *storage.DB
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		manager:             d.Manager,
		db:                  d.DB,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleRegisterAgent handles POST /v1/agents.
func (h *Handlers) HandleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterAgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateAgentID(req.AgentID); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	agent, err := h.manager.RegisterAgent(req.AgentID, req.Capabilities, req.Tuning)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	writeJSON(w, r, http.StatusCreated, agent)
}

// HandleAgentSummary handles GET /v1/agents/{agent_id}/summary.
func (h *Handlers) HandleAgentSummary(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("agent_id")
	summary, err := h.manager.AgentSummary(agentID)
	if err != nil {
		if errors.Is(err, workflow.ErrUnknownAgent) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found: "+agentID)
			return
		}
		h.writeInternalError(w, r, "agent summary failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// HandleStartWorkflow handles POST /v1/workflows.
func (h *Handlers) HandleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	var req model.StartWorkflowRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.AgentID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "agent_id is required")
		return
	}

	runID, err := h.manager.StartWorkflow(req.AgentID, req.CycleCount, req.TargetCompliance)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrUnknownAgent):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "agent not found: "+req.AgentID)
		case errors.Is(err, workflow.ErrAgentBusy):
			writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "agent already has a running workflow")
		default:
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		}
		return
	}
	writeJSON(w, r, http.StatusAccepted, model.StartWorkflowResponse{RunID: runID.String()})
}

// HandleListWorkflows handles GET /v1/workflows.
func (h *Handlers) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.manager.Runs())
}

// HandleWorkflowStatus handles GET /v1/workflows/{run_id}. A known run
// always yields a well-formed snapshot, whatever its status.
func (h *Handlers) HandleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.parseRunID(w, r)
	if !ok {
		return
	}
	state, err := h.manager.Status(runID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found: "+runID.String())
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// HandleStopWorkflow handles DELETE /v1/workflows/{run_id}. Cancellation
// is cooperative: the run observes it at its next cycle boundary.
func (h *Handlers) HandleStopWorkflow(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.parseRunID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Stop(runID); err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "run not found: "+runID.String())
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"run_id": runID.String(), "status": "stopping"})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Error("health check: database unreachable", "error", err)
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, r, httpStatus, map[string]any{
		"status":         status,
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handlers) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	runID, err := uuid.Parse(r.PathValue("run_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid run_id")
		return uuid.Nil, false
	}
	return runID, true
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}
