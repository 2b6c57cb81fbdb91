package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quickadd/internal/model"
	"quickadd/internal/quickadd"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

func (r callToolResult) text() string {
	if len(r.Content) == 0 {
		return ""
	}
	return r.Content[0].Text
}

// state decodes the popup state a successful tool call returned.
func (r callToolResult) state(t *testing.T) PopupState {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool returned error: %s", r.text())
	}
	var st PopupState
	if err := json.Unmarshal([]byte(r.text()), &st); err != nil {
		t.Fatalf("Failed to parse popup state: %v\n%s", err, r.text())
	}
	return st
}

// callTool invokes an MCP tool within a session and returns its result.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args any) callToolResult {
	t.Helper()

	rawArgs, _ := json.Marshal(args)
	callReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params: toolCallParams{
			Name:      name,
			Arguments: rawArgs,
		},
	}

	body, _ := json.Marshal(callReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("%s: Status = %d, want %d\nBody: %s", name, w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("%s: unexpected JSON-RPC error: %+v", name, resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

func TestMCPServerCreation(t *testing.T) {
	env := newTestEnv(t)

	if env.h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if env.h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	env := newTestEnv(t)

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo": map[string]string{
				"name":    "test-client",
				"version": "1.0.0",
			},
			"capabilities": map[string]any{},
		},
	}

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	env.mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Error("Expected result in response")
	}
}

func TestMCPToolsList(t *testing.T) {
	env := newTestEnv(t)
	sessionID := initMCPSession(t, env.mux)

	listReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/list",
	}

	listBody, _ := json.Marshal(listReq)
	listHttpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(listBody))
	setMCPHeaders(listHttpReq, sessionID)
	listW := httptest.NewRecorder()

	env.mux.ServeHTTP(listW, listHttpReq)

	if listW.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", listW.Code, http.StatusOK, listW.Body.String())
	}

	jsonData, err := parseSSEResponse(listW.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"open_product":    false,
		"select_option":   false,
		"toggle_dropdown": false,
		"add_to_cart":     false,
		"close_popup":     false,
		"get_popup":       false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPQuickAddFlow(t *testing.T) {
	env := newTestEnv(t)
	sessionID := initMCPSession(t, env.mux)

	st := callTool(t, env.mux, sessionID, "open_product", map[string]any{"handle": "hoodie"}).state(t)
	if !st.Open || st.Title != "Hoodie" {
		t.Fatalf("open_product state = %+v", st)
	}
	if st.VariantID != "101" || st.Resolution != "matched" || !st.SubmitEnabled {
		t.Errorf("preselected state = %+v, want variant 101 enabled", st)
	}

	st = callTool(t, env.mux, sessionID, "select_option", map[string]any{"option": "size", "value": "M"}).state(t)
	if st.VariantID != "102" || st.Price != "52.00 USD" {
		t.Errorf("after select: variant %s price %s, want 102 52.00 USD", st.VariantID, st.Price)
	}

	st = callTool(t, env.mux, sessionID, "add_to_cart", map[string]any{}).state(t)
	if st.Open {
		t.Error("popup should close after a successful add")
	}
	if st.NavigatedTo != "/cart" {
		t.Errorf("NavigatedTo = %q, want /cart", st.NavigatedTo)
	}
	if st.Cart == nil || st.Cart.ItemCount != 2 {
		t.Fatalf("Cart = %+v, want 2 items", st.Cart)
	}
	if st.Cart.Items[0].VariantID != "102" || st.Cart.Items[1].VariantID != string(testAddOn) {
		t.Errorf("cart items = %+v, want [102, add-on]", st.Cart.Items)
	}

	carts := env.cartMocks()
	if len(carts) != 1 {
		t.Fatalf("carts opened = %d, want 1", len(carts))
	}
	adds := carts[0].Adds()
	if len(adds) != 2 || adds[0].ID != "102" || adds[0].Quantity != 1 || adds[1].ID != testAddOn {
		t.Errorf("adds = %+v", adds)
	}
}

func TestMCPAddToCartFailure(t *testing.T) {
	env := newTestEnv(t)
	env.setAddFunc(func(ctx context.Context, id model.ID, quantity int) error {
		return model.NewAddToCartError(id.String(), errors.New("422 sold out"))
	})
	sessionID := initMCPSession(t, env.mux)

	callTool(t, env.mux, sessionID, "open_product", map[string]any{"handle": "hoodie"}).state(t)

	result := callTool(t, env.mux, sessionID, "add_to_cart", map[string]any{})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(result.text(), quickadd.MsgAddFailed) {
		t.Errorf("error text = %q, want alert %q", result.text(), quickadd.MsgAddFailed)
	}
	if !strings.Contains(result.text(), "ADD_TO_CART_FAILED") {
		t.Errorf("error text = %q, want error code", result.text())
	}

	// Popup stays open and usable.
	st := callTool(t, env.mux, sessionID, "get_popup", map[string]any{}).state(t)
	if !st.Open || !st.SubmitEnabled || st.Submitting {
		t.Errorf("state after failure = %+v, want open and re-enabled", st)
	}
	if len(st.Alerts) != 0 {
		t.Errorf("alerts should be drained, got %v", st.Alerts)
	}
}

func TestMCPOpenUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	sessionID := initMCPSession(t, env.mux)

	result := callTool(t, env.mux, sessionID, "open_product", map[string]any{"handle": "missing"})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(result.text(), quickadd.MsgLoadFailed) {
		t.Errorf("error text = %q, want load alert", result.text())
	}

	st := callTool(t, env.mux, sessionID, "get_popup", map[string]any{}).state(t)
	if st.Open {
		t.Error("popup should stay closed after a failed open")
	}
}

func TestMCPToolErrors(t *testing.T) {
	tests := []struct {
		name     string
		open     bool
		tool     string
		args     map[string]any
		wantText string
	}{
		{"select before open", false, "select_option", map[string]any{"option": "Size", "value": "M"}, "popup is not open"},
		{"submit before open", false, "add_to_cart", map[string]any{}, "popup is not open"},
		{"toggle before open", false, "toggle_dropdown", map[string]any{"option": "Size"}, "popup is not open"},
		{"unknown option", true, "select_option", map[string]any{"option": "Fit", "value": "Slim"}, "unknown option"},
		{"unknown value", true, "select_option", map[string]any{"option": "Size", "value": "XXL"}, "value not offered"},
		{"toggle swatch", true, "toggle_dropdown", map[string]any{"option": "Color"}, "not rendered with that control"},
		{"toggle unknown", true, "toggle_dropdown", map[string]any{"option": "Fit"}, "unknown option"},
		{"empty handle", false, "open_product", map[string]any{"handle": ""}, "handle is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			sessionID := initMCPSession(t, env.mux)

			if tt.open {
				callTool(t, env.mux, sessionID, "open_product", map[string]any{"handle": "hoodie"}).state(t)
			}

			result := callTool(t, env.mux, sessionID, tt.tool, tt.args)
			if !result.IsError {
				t.Fatalf("expected tool error, got %s", result.text())
			}
			if !strings.Contains(result.text(), tt.wantText) {
				t.Errorf("error text = %q, want containing %q", result.text(), tt.wantText)
			}
		})
	}
}

func TestMCPSelectIncomplete(t *testing.T) {
	env := newTestEnv(t)
	sessionID := initMCPSession(t, env.mux)

	callTool(t, env.mux, sessionID, "open_product", map[string]any{"handle": "hoodie"}).state(t)
	st := callTool(t, env.mux, sessionID, "select_option", map[string]any{"option": "Color", "value": "Blue"}).state(t)
	if st.SubmitEnabled {
		t.Error("sold-out variant should disable submit")
	}
	st = callTool(t, env.mux, sessionID, "select_option", map[string]any{"option": "Size", "value": "M"}).state(t)
	if st.Resolution != "no_match" || st.VariantID != "" || st.Price != "—" {
		t.Errorf("state = %+v, want no_match with placeholder price", st)
	}

	result := callTool(t, env.mux, sessionID, "add_to_cart", map[string]any{})
	if !result.IsError || !strings.Contains(result.text(), quickadd.MsgSelectAll) {
		t.Errorf("add_to_cart = %+v, want select-all alert", result)
	}
	if got := len(env.cartMocks()[0].Adds()); got != 0 {
		t.Errorf("adds = %d, want no cart request", got)
	}
}

func TestMCPToggleAndClose(t *testing.T) {
	env := newTestEnv(t)
	sessionID := initMCPSession(t, env.mux)

	callTool(t, env.mux, sessionID, "open_product", map[string]any{"handle": "hoodie"}).state(t)

	st := callTool(t, env.mux, sessionID, "toggle_dropdown", map[string]any{"option": "Size"}).state(t)
	if !st.Options[1].Open {
		t.Error("Size dropdown should be open")
	}
	st = callTool(t, env.mux, sessionID, "toggle_dropdown", map[string]any{"option": "size"}).state(t)
	if st.Options[1].Open {
		t.Error("Size dropdown should be closed again")
	}

	st = callTool(t, env.mux, sessionID, "close_popup", map[string]any{}).state(t)
	if st.Open {
		t.Error("popup should be closed")
	}

	st = callTool(t, env.mux, sessionID, "get_popup", map[string]any{"include_cart": true}).state(t)
	if st.Cart == nil || st.Cart.ItemCount != 0 {
		t.Errorf("Cart = %+v, want empty cart", st.Cart)
	}
}

func TestMCPSessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	first := initMCPSession(t, env.mux)
	second := initMCPSession(t, env.mux)
	if first == second {
		t.Skip("transport did not assign distinct session ids")
	}

	callTool(t, env.mux, first, "open_product", map[string]any{"handle": "hoodie"}).state(t)

	st := callTool(t, env.mux, second, "get_popup", map[string]any{}).state(t)
	if st.Open {
		t.Error("second session sees the first session's popup")
	}
	if got := len(env.cartMocks()); got != 2 {
		t.Errorf("carts opened = %d, want 2", got)
	}
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]any{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}
