// Package protocol defines the JSON-RPC 2.0 value types exchanged with the
// target server and the fixed method and tool names of the conformance
// conversation. The wire framing (one JSON object per line) lives in
// internal/transport; this package only models the payloads.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version sent on every request.
const Version = "2.0"

// MCPProtocolVersion is the MCP revision advertised during initialize.
const MCPProtocolVersion = "2024-11-05"

// Methods driven by the harness, in conversation order.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Tool names of the analysis server under test.
const (
	ToolStartSession = "start_analysis_session"
	ToolSendMessage  = "send_message"
	ToolCloseSession = "close_session"
)

// Request is a JSON-RPC request or, when ID is nil, a notification.
// Requests with an ID expect exactly one correlated response; notifications
// expect none.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      *int64 `json:"id,omitempty"`
}

// NewRequest builds a request carrying a correlation id.
func NewRequest(id int64, method string, params any) Request {
	return Request{JSONRPC: Version, Method: method, Params: params, ID: &id}
}

// NewNotification builds a request without an id; no response is expected.
func NewNotification(method string, params any) Request {
	return Request{JSONRPC: Version, Method: method, Params: params}
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a failed response. It satisfies the error
// interface so a response-carried failure can flow through normal error
// handling.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Err returns the response's error member as an error, or nil.
func (r *Response) Err() error {
	if r.Error != nil {
		return r.Error
	}
	return nil
}

// InitializeParams is the params shape of the initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies the harness to the server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallToolParams is the params shape of a tools/call request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolInfo is the subset of a tools/list entry the harness inspects.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListToolsResult is the result shape of a tools/list response.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}
