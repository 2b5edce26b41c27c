package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/report"
	"github.com/kalambet/psychtrend/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *pipeline.Service
	Version string
}

// NewMCPServer creates an MCP server that exposes the chat and report
// operations as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"psychtrend",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("psychtrend runs a short conversational interview about how someone handles everyday situations and reports the behavioral trends it observes. It is not a diagnostic tool."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("start_session",
			mcp.WithDescription("Start a new interview session and return its id and the opening message."),
		),
		mcpStartSession(deps),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send the user's answer to a session and return the next question."),
			mcp.WithString("session_id", mcp.Description("Session id from start_session"), mcp.Required()),
			mcp.WithString("message", mcp.Description("The user's answer"), mcp.Required()),
		),
		mcpSendMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("get_analysis",
			mcp.WithDescription("Return the raw trend analysis for a session as JSON."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpGetAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("get_report",
			mcp.WithDescription("Return the behavioral report for a session. With enhanced=true the local model rewrites it in plain language when available."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
			mcp.WithBoolean("enhanced", mcp.Description("Return the LLM-enhanced markdown report (default false)")),
		),
		mcpGetReport(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"psychtrend://disclaimer",
			"Disclaimer",
			mcp.WithResourceDescription("How psychtrend reports must be read"),
			mcp.WithMIMEType("text/plain"),
		),
		mcpResourceDisclaimer,
	)

	return s
}

func mcpStartSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		started, err := deps.Service.StartSession(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to start session: %v", err)), nil
		}
		return mcpJSON(started)
	}
}

func mcpSendMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		reply, err := deps.Service.Chat(ctx, id, message)
		if err != nil {
			return mcpServiceError(err), nil
		}
		return mcpJSON(reply)
	}
}

func mcpGetAnalysis(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		a, err := deps.Service.Analysis(ctx, id)
		if err != nil {
			return mcpServiceError(err), nil
		}
		return mcpJSON(a)
	}
}

func mcpGetReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		if !req.GetBool("enhanced", false) {
			r, err := deps.Service.Report(ctx, id)
			if err != nil {
				return mcpServiceError(err), nil
			}
			return mcpJSON(r)
		}

		e, err := deps.Service.EnhancedReport(ctx, id)
		if err != nil {
			return mcpServiceError(err), nil
		}
		return mcpText(e.FullReportMarkdown), nil
	}
}

func mcpResourceDisclaimer(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     report.Disclaimer,
		},
	}, nil
}

func mcpServiceError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return mcpError("session not found")
	case errors.Is(err, pipeline.ErrInsufficientData):
		return mcpError(err.Error())
	default:
		return mcpError(fmt.Sprintf("request failed: %v", err))
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
