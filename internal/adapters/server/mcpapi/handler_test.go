package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/colibri-os/rlab/internal/adapters/server/common"
	"github.com/colibri-os/rlab/internal/app"
	"github.com/colibri-os/rlab/internal/domain"
)

// stubReputationService provides deterministic responses for MCP tool tests.
type stubReputationService struct {
	progress     common.Progress
	timeline     common.Timeline
	submitted    common.SubmitEventResult
	err          error
	lastTimeline common.TimelineRequest
	lastSubmit   common.SubmitEventRequest
}

// Progress returns the configured snapshot.
func (s *stubReputationService) Progress(context.Context) (common.Progress, error) {
	if s.err != nil {
		return common.Progress{}, s.err
	}
	return s.progress, nil
}

// Timeline records the latest request and returns one fixture result.
func (s *stubReputationService) Timeline(_ context.Context, req common.TimelineRequest) (common.Timeline, error) {
	s.lastTimeline = req
	if s.err != nil {
		return common.Timeline{}, s.err
	}
	return s.timeline, nil
}

// Categories returns the fixed category table.
func (s *stubReputationService) Categories(context.Context) ([]domain.Category, error) {
	return domain.Categories(), nil
}

// Levels returns the default ladder.
func (s *stubReputationService) Levels(context.Context) ([]domain.Level, error) {
	return domain.DefaultLevels(), nil
}

// SubmitEvent records and returns one fixture result.
func (s *stubReputationService) SubmitEvent(_ context.Context, req common.SubmitEventRequest) (common.SubmitEventResult, error) {
	s.lastSubmit = req
	if s.err != nil {
		return common.SubmitEventResult{}, s.err
	}
	return s.submitted, nil
}

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map for stable assertions.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "rlab-test",
				"version": "1.0.0",
			},
		},
	}
}

// callToolResultText decodes the first textual content block from a CallToolResult.
func callToolResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatalf("result = nil, want non-nil")
	}
	if len(result.Content) == 0 {
		t.Fatalf("result content is empty")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] has unexpected type %T", result.Content[0])
	}
	return text.Text
}

// newTestServer starts one httptest server over a fresh MCP handler.
func newTestServer(t *testing.T, service common.ReputationService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, service)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// TestNewHandlerRequiresService verifies nil services are rejected.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("NewHandler(nil) error = nil, want error")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubReputationService{})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersTools verifies tool discovery lists every progress tool.
func TestHandlerRegistersTools(t *testing.T) {
	server := newTestServer(t, &stubReputationService{})
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, want := range []string{"rlab.progress", "rlab.timeline", "rlab.submit_event", "rlab.categories", "rlab.levels"} {
		if !slices.Contains(toolNames, want) {
			t.Fatalf("tool list missing %s: %#v", want, toolNames)
		}
	}
}

// TestHandlerProgressToolReturnsStructuredContent verifies the snapshot is returned as structured JSON.
func TestHandlerProgressToolReturnsStructuredContent(t *testing.T) {
	snapshot := app.Compute(app.DemoEvents(), app.DefaultProgressRules())
	server := newTestServer(t, &stubReputationService{progress: common.Progress{ProgressSnapshot: snapshot}})

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "rlab.progress", map[string]any{}))
	result := toolResultStructured(t, callResp.Result)
	if got, _ := result["completion_index"].(float64); got != 17 {
		t.Fatalf("completion_index = %v, want 17", result["completion_index"])
	}
	next, ok := result["next_level"].(map[string]any)
	if !ok || next["id"] != "n1" {
		t.Fatalf("unexpected next_level %#v", result["next_level"])
	}
}

// TestHandlerTimelineToolPassesFilters verifies timeline arguments reach the service.
func TestHandlerTimelineToolPassesFilters(t *testing.T) {
	svc := &stubReputationService{timeline: common.Timeline{
		Events: []common.Event{{ID: "ev-004", Kind: "evidencia", Category: "C1"}},
		Counts: app.TimelineCounts{Total: 6, Evidence: 1},
	}}
	server := newTestServer(t, svc)

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "rlab.timeline", map[string]any{
		"category": "C1",
		"kind":     "evidencia",
	}))
	result := toolResultStructured(t, callResp.Result)
	events, ok := result["events"].([]any)
	if !ok || len(events) != 1 {
		t.Fatalf("unexpected events %#v", result["events"])
	}
	if svc.lastTimeline.Category != "C1" || svc.lastTimeline.Kind != "evidencia" {
		t.Fatalf("unexpected timeline request %#v", svc.lastTimeline)
	}
}

// TestHandlerSubmitEventToolCallPaths verifies required-arg, success, and mapped-service paths.
func TestHandlerSubmitEventToolCallPaths(t *testing.T) {
	svc := &stubReputationService{submitted: common.SubmitEventResult{
		Event:   common.Event{ID: "local-1", Kind: "microaccion", Category: "C2"},
		Message: "Microacción registrada en tu panel. Ya aparece en el Timeline.",
	}}
	server := newTestServer(t, svc)

	_, missingArgResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(2, "rlab.submit_event", map[string]any{
		"kind": "microaccion",
	}))
	if isError, _ := missingArgResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", missingArgResp.Result["isError"])
	}
	if got := toolResultText(t, missingArgResp.Result); !strings.Contains(got, `required argument "title" not found`) {
		t.Fatalf("error text = %q, want required title message", got)
	}

	_, okResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "rlab.submit_event", map[string]any{
		"kind":                  "microaccion",
		"category":              "C2",
		"title":                 "Acuerdo de roles",
		"description":           "Definimos responsables",
		"registered_externally": true,
	}))
	result := toolResultStructured(t, okResp.Result)
	if got, _ := result["message"].(string); !strings.HasPrefix(got, "Microacción registrada") {
		t.Fatalf("message = %q, want confirmation", got)
	}
	if !svc.lastSubmit.RegisteredExternally || svc.lastSubmit.Category != "C2" {
		t.Fatalf("unexpected submit request %#v", svc.lastSubmit)
	}

	svc.err = errors.Join(common.ErrInvalidRequest, domain.ErrInvalidDescription)
	_, mappedErrResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "rlab.submit_event", map[string]any{
		"kind":        "microaccion",
		"category":    "C2",
		"title":       "x",
		"description": "y",
	}))
	if isError, _ := mappedErrResp.Result["isError"].(bool); !isError {
		t.Fatalf("isError = %v, want true", mappedErrResp.Result["isError"])
	}
	if got := toolResultText(t, mappedErrResp.Result); !strings.HasPrefix(got, "invalid_request:") {
		t.Fatalf("error text = %q, want prefix invalid_request:", got)
	}
}

// TestHandlerCategoriesTool verifies the category table is listed.
func TestHandlerCategoriesTool(t *testing.T) {
	server := newTestServer(t, &stubReputationService{})

	_, callResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "rlab.categories", map[string]any{}))
	result := toolResultStructured(t, callResp.Result)
	categories, ok := result["categories"].([]any)
	if !ok || len(categories) != 7 {
		t.Fatalf("unexpected categories %#v", result["categories"])
	}
}

// TestToolResultFromError verifies MCP error prefixes for each transport sentinel.
func TestToolResultFromError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantPrefix string
	}{
		{name: "nil", err: nil, wantPrefix: "unknown error"},
		{name: "invalid", err: common.ErrInvalidRequest, wantPrefix: "invalid_request:"},
		{name: "not found", err: common.ErrNotFound, wantPrefix: "not_found:"},
		{name: "storage", err: common.ErrStorageUnavailable, wantPrefix: "storage_unavailable:"},
		{name: "conflict", err: common.ErrConflict, wantPrefix: "conflict:"},
		{name: "internal", err: errors.New("boom"), wantPrefix: "internal_error:"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result := toolResultFromError(tt.err)
			if !result.IsError {
				t.Fatalf("IsError = false, want true")
			}
			if got := callToolResultText(t, result); !strings.HasPrefix(got, tt.wantPrefix) {
				t.Fatalf("text = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
