package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/psychtrend/internal/flow"
	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/report"
	"github.com/kalambet/psychtrend/internal/storage"
)

// --- helpers ---

func newTestService(t *testing.T) (*pipeline.Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bank, err := flow.DefaultBank()
	if err != nil {
		t.Fatalf("DefaultBank: %v", err)
	}
	ctrl := flow.New(bank, 7).WithFollowUpRate(0)
	return pipeline.New(store, ctrl, nil, pipeline.Options{}), store
}

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	svc, store := newTestService(t)
	return MCPDeps{Service: svc, Version: "test"}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

var scriptedAnswers = []string{
	"Sam",
	"I achieved my goal and felt proud of the team",
	"I learned so much and grew as a person",
	"It was stressful but I adapted and kept going",
}

// answerAll drives a session to completion through the tool handler.
func answerAll(t *testing.T, deps MCPDeps, id string) {
	t.Helper()
	handler := mcpSendMessage(deps)
	for i := 0; i < 60; i++ {
		res, err := handler(context.Background(), makeCallToolRequest("send_message", map[string]interface{}{
			"session_id": id,
			"message":    scriptedAnswers[min(i, len(scriptedAnswers)-1)],
		}))
		if err != nil {
			t.Fatalf("send_message: %v", err)
		}
		if res.IsError {
			t.Fatalf("send_message error: %s", toolText(t, res))
		}
		var reply pipeline.Reply
		if err := json.Unmarshal([]byte(toolText(t, res)), &reply); err != nil {
			t.Fatalf("decoding reply: %v", err)
		}
		if reply.IsComplete {
			return
		}
	}
	t.Fatal("session never completed")
}

func startMCPSession(t *testing.T, deps MCPDeps) string {
	t.Helper()
	res, err := mcpStartSession(deps)(context.Background(), makeCallToolRequest("start_session", nil))
	if err != nil {
		t.Fatalf("start_session: %v", err)
	}
	if res.IsError {
		t.Fatalf("start_session error: %s", toolText(t, res))
	}
	var started pipeline.Started
	if err := json.Unmarshal([]byte(toolText(t, res)), &started); err != nil {
		t.Fatalf("decoding start_session: %v", err)
	}
	if started.SessionID == "" || started.Message == "" {
		t.Fatalf("started = %+v", started)
	}
	return started.SessionID
}

// --- tests ---

func TestMCPTool_StartSession(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	id := startMCPSession(t, deps)

	if _, err := store.GetSession(id); err != nil {
		t.Fatalf("session not stored: %v", err)
	}
}

func TestMCPTool_SendMessage(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	id := startMCPSession(t, deps)

	res, err := mcpSendMessage(deps)(context.Background(), makeCallToolRequest("send_message", map[string]interface{}{
		"session_id": id,
		"message":    "Sam",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", toolText(t, res))
	}
	var reply pipeline.Reply
	if err := json.Unmarshal([]byte(toolText(t, res)), &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if !strings.Contains(reply.Message, "Sam") {
		t.Errorf("reply should greet the user by name, got %q", reply.Message)
	}
	if reply.IsComplete {
		t.Error("session should not be complete after the introduction")
	}
}

func TestMCPTool_SendMessage_MissingArgs(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSendMessage(deps)

	res, _ := handler(context.Background(), makeCallToolRequest("send_message", map[string]interface{}{
		"message": "hello",
	}))
	if !res.IsError {
		t.Error("expected error without session_id")
	}

	res, _ = handler(context.Background(), makeCallToolRequest("send_message", map[string]interface{}{
		"session_id": "abc",
	}))
	if !res.IsError {
		t.Error("expected error without message")
	}
}

func TestMCPTool_SendMessage_UnknownSession(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	res, err := mcpSendMessage(deps)(context.Background(), makeCallToolRequest("send_message", map[string]interface{}{
		"session_id": "missing",
		"message":    "hello there",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError || toolText(t, res) != "session not found" {
		t.Errorf("result = %+v", res)
	}
}

func TestMCPTool_GetAnalysis_Insufficient(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	id := startMCPSession(t, deps)

	res, err := mcpGetAnalysis(deps)(context.Background(), makeCallToolRequest("get_analysis", map[string]interface{}{
		"session_id": id,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", toolText(t, res))
	}
	var a report.Analysis
	if err := json.Unmarshal([]byte(toolText(t, res)), &a); err != nil {
		t.Fatalf("decoding analysis: %v", err)
	}
	if a.Status != report.StatusInsufficientData {
		t.Errorf("status = %q, want %q", a.Status, report.StatusInsufficientData)
	}
}

func TestMCPTool_GetReport(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	id := startMCPSession(t, deps)
	answerAll(t, deps, id)

	res, err := mcpGetReport(deps)(context.Background(), makeCallToolRequest("get_report", map[string]interface{}{
		"session_id": id,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", toolText(t, res))
	}
	var r report.Report
	if err := json.Unmarshal([]byte(toolText(t, res)), &r); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if r.SessionID != id || r.ResponseCount == 0 {
		t.Errorf("report = %+v", r)
	}
}

func TestMCPTool_GetReport_EnhancedFallback(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	id := startMCPSession(t, deps)
	answerAll(t, deps, id)

	res, err := mcpGetReport(deps)(context.Background(), makeCallToolRequest("get_report", map[string]interface{}{
		"session_id": id,
		"enhanced":   true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", toolText(t, res))
	}
	text := toolText(t, res)
	if !strings.Contains(text, report.Disclaimer) {
		t.Errorf("markdown report should carry the disclaimer, got:\n%s", text)
	}
}

func TestMCPTool_GetReport_EnhancedInsufficient(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	id := startMCPSession(t, deps)

	res, _ := mcpGetReport(deps)(context.Background(), makeCallToolRequest("get_report", map[string]interface{}{
		"session_id": id,
		"enhanced":   true,
	}))
	if !res.IsError {
		t.Fatal("expected error for a session without answers")
	}
	if !strings.Contains(toolText(t, res), "at least 3 responses") {
		t.Errorf("message = %q", toolText(t, res))
	}
}

func TestMCPResource_Disclaimer(t *testing.T) {
	contents, err := mcpResourceDisclaimer(context.Background(), makeReadResourceRequest("psychtrend://disclaimer"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.Text != report.Disclaimer || tc.URI != "psychtrend://disclaimer" {
		t.Errorf("contents = %+v", tc)
	}
}

func TestNewMCPServer_Registers(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
