// Package mcp implements the Model Context Protocol surface for Junshu.
//
// It exposes the workflow manager's public operations as MCP tools so
// MCP-compatible agents can register themselves, launch compliance
// workflows, and inspect run state without going through the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/junshu/internal/workflow"
)

// Server wraps the MCP server around the workflow manager.
type Server struct {
	mcpServer *mcpserver.MCPServer
	manager   *workflow.Manager
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all tools registered.
func New(manager *workflow.Manager, version string, logger *slog.Logger) *Server {
	s := &Server{
		manager: manager,
		logger:  logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"junshu",
		version,
		mcpserver.WithToolCapabilities(true),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	// junshu_register_agent — add an agent to the registry.
	s.mcpServer.AddTool(
		mcplib.NewTool("junshu_register_agent",
			mcplib.WithDescription("Register an agent for compliance workflows"),
			mcplib.WithString("agent_id", mcplib.Description("Agent identifier"), mcplib.Required()),
			mcplib.WithString("capabilities", mcplib.Description("Comma-separated capability list")),
		),
		s.handleRegisterAgent,
	)

	// junshu_start_workflow — launch a background compliance run.
	s.mcpServer.AddTool(
		mcplib.NewTool("junshu_start_workflow",
			mcplib.WithDescription("Start a compliance workflow for a registered agent; returns the run ID"),
			mcplib.WithString("agent_id", mcplib.Description("Agent identifier"), mcplib.Required()),
			mcplib.WithNumber("cycle_count", mcplib.Description("Cycle budget (default 50)")),
			mcplib.WithNumber("target_compliance", mcplib.Description("Compliance target 0.0-1.0 (default 0.85)")),
		),
		s.handleStartWorkflow,
	)

	// junshu_workflow_status — snapshot of a run.
	s.mcpServer.AddTool(
		mcplib.NewTool("junshu_workflow_status",
			mcplib.WithDescription("Get the current state of a workflow run"),
			mcplib.WithString("run_id", mcplib.Description("Run identifier"), mcplib.Required()),
		),
		s.handleWorkflowStatus,
	)

	// junshu_agent_summary — aggregate view of one agent.
	s.mcpServer.AddTool(
		mcplib.NewTool("junshu_agent_summary",
			mcplib.WithDescription("Get an agent's tuning and recent performance summary"),
			mcplib.WithString("agent_id", mcplib.Description("Agent identifier"), mcplib.Required()),
		),
		s.handleAgentSummary,
	)
}

func (s *Server) handleRegisterAgent(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}
	capabilities := splitList(request.GetString("capabilities", ""))

	agent, err := s.manager.RegisterAgent(agentID, capabilities, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("register failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"agent_id":      agent.ID,
		"capabilities":  agent.Capabilities,
		"registered_at": agent.RegisteredAt,
		"status":        "registered",
	})
}

func (s *Server) handleStartWorkflow(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}
	cycleCount := request.GetInt("cycle_count", 0)
	targetCompliance := request.GetFloat("target_compliance", 0)

	runID, err := s.manager.StartWorkflow(agentID, cycleCount, targetCompliance)
	if err != nil {
		return errorResult(fmt.Sprintf("start failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"run_id": runID.String(),
		"status": "running",
	})
}

func (s *Server) handleWorkflowStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	runID, err := uuid.Parse(request.GetString("run_id", ""))
	if err != nil {
		return errorResult("run_id must be a valid UUID"), nil
	}

	state, err := s.manager.Status(runID)
	if err != nil {
		return errorResult(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(state)
}

func (s *Server) handleAgentSummary(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	agentID := request.GetString("agent_id", "")
	if agentID == "" {
		return errorResult("agent_id is required"), nil
	}

	summary, err := s.manager.AgentSummary(agentID)
	if err != nil {
		return errorResult(fmt.Sprintf("summary failed: %v", err)), nil
	}
	return jsonResult(summary)
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal failed: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// splitList parses a comma-separated capability string, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
