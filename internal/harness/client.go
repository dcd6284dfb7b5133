package harness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"mcpconform/internal/protocol"
	"mcpconform/internal/transport"
	"mcpconform/pkg/logging"
)

// clientName identifies the harness in the initialize handshake.
const (
	clientName    = "mcpconform"
	clientVersion = "1.0.0"
)

// rpcClient implements Client over a newline-delimited JSON connection.
// Ids increase monotonically from 1; each request is fully exchanged before
// the next is sent.
type rpcClient struct {
	conn   *transport.Conn
	nextID int64
	logger *slog.Logger
}

// NewClient creates the concrete protocol client used against a live
// target process.
func NewClient(conn *transport.Conn, logger *slog.Logger) Client {
	return &rpcClient{conn: conn, nextID: 1, logger: logging.OrDiscard(logger)}
}

// call performs one request/response exchange and returns the raw result.
func (c *rpcClient) call(method string, params any, timeout time.Duration) (json.RawMessage, error) {
	id := c.nextID
	c.nextID++

	if err := c.conn.Send(protocol.NewRequest(id, method, params)); err != nil {
		return nil, err
	}
	resp, err := c.conn.Receive(timeout)
	if err != nil {
		return nil, err
	}
	if resp.ID != id {
		return nil, fmt.Errorf("response id %d does not correlate with request id %d", resp.ID, id)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *rpcClient) Initialize(timeout time.Duration) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.MCPProtocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo: protocol.ClientInfo{
			Name:    clientName,
			Version: clientVersion,
		},
	}
	_, err := c.call(protocol.MethodInitialize, params, timeout)
	return err
}

func (c *rpcClient) NotifyInitialized() error {
	return c.conn.Send(protocol.NewNotification(protocol.MethodInitialized, nil))
}

func (c *rpcClient) ListTools(timeout time.Duration) ([]protocol.ToolInfo, error) {
	raw, err := c.call(protocol.MethodToolsList, nil, timeout)
	if err != nil {
		return nil, err
	}
	var result protocol.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding tools/list result: %w", err)
	}
	return result.Tools, nil
}

func (c *rpcClient) CallTool(name string, args map[string]any, timeout time.Duration) (json.RawMessage, error) {
	c.logger.Debug("calling tool", "tool", name)
	return c.call(protocol.MethodToolsCall, protocol.CallToolParams{Name: name, Arguments: args}, timeout)
}
