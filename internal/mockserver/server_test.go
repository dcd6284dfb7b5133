package mockserver

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpconform/internal/config"
	"mcpconform/internal/harness"
	"mcpconform/internal/protocol"
	"mcpconform/internal/session"
	"mcpconform/internal/transport"
)

// dialMock serves the mock over in-memory pipes and returns a protocol
// client connected to it, handshake not yet performed.
func dialMock(t *testing.T, opts Options) harness.Client {
	t.Helper()

	serverRd, clientWr := io.Pipe()
	clientRd, serverWr := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		clientWr.Close()
		serverWr.Close()
	})

	go func() {
		_ = New(opts, nil).Serve(ctx, serverRd, serverWr)
	}()

	conn := transport.NewConn(clientWr, clientRd, nil)
	return harness.NewClient(conn, nil)
}

// startMock is dialMock plus the initialize handshake.
func startMock(t *testing.T, opts Options) harness.Client {
	t.Helper()
	client := dialMock(t, opts)
	require.NoError(t, client.Initialize(2*time.Second))
	require.NoError(t, client.NotifyInitialized())
	return client
}

// toolResult is the decoded shape of a tools/call result.
type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func decodeResult(t *testing.T, raw json.RawMessage) toolResult {
	t.Helper()
	var res toolResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.NotEmpty(t, res.Content)
	return res
}

func TestMockAdvertisesAnalysisTools(t *testing.T) {
	client := startMock(t, Options{})

	tools, err := client.ListTools(2 * time.Second)
	require.NoError(t, err)

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{"start_analysis_session", "send_message", "close_session"}, names)
}

func TestMockSessionLifecycle(t *testing.T) {
	client := startMock(t, Options{})

	raw, err := client.CallTool("start_analysis_session", map[string]any{
		"binary_path": "/bin/true",
		"task":        "describe entry point",
	}, 2*time.Second)
	require.NoError(t, err)

	sess, ok := session.Extract(raw)
	require.True(t, ok, "started session must carry an extractable id")

	raw, err = client.CallTool("send_message", map[string]any{
		"session_id": sess.ID,
		"message":    "what did you find?",
	}, 2*time.Second)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, sess.ID)

	raw, err = client.CallTool("close_session", map[string]any{"session_id": sess.ID}, 2*time.Second)
	require.NoError(t, err)
	res = decodeResult(t, raw)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "closed")

	// The session is gone after close.
	raw, err = client.CallTool("send_message", map[string]any{
		"session_id": sess.ID,
		"message":    "still there?",
	}, 2*time.Second)
	require.NoError(t, err)
	res = decodeResult(t, raw)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "unknown session")
}

func TestMockSessionIDsAreUnique(t *testing.T) {
	client := startMock(t, Options{})

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		raw, err := client.CallTool("start_analysis_session", map[string]any{
			"binary_path": "/bin/true",
			"task":        "task",
		}, 2*time.Second)
		require.NoError(t, err)
		sess, ok := session.Extract(raw)
		require.True(t, ok)
		assert.False(t, seen[sess.ID], "session id %s repeated", sess.ID)
		seen[sess.ID] = true
	}
}

func TestMockMissingArgumentIsToolError(t *testing.T) {
	client := startMock(t, Options{})

	raw, err := client.CallTool("start_analysis_session", map[string]any{
		"binary_path": "/bin/true",
	}, 2*time.Second)
	require.NoError(t, err)
	res := decodeResult(t, raw)
	assert.True(t, res.IsError)
}

func TestMockFailToolsIsProtocolError(t *testing.T) {
	client := startMock(t, Options{FailTools: true})

	_, err := client.CallTool("start_analysis_session", map[string]any{
		"binary_path": "/bin/true",
		"task":        "task",
	}, 2*time.Second)
	require.Error(t, err)
	var rpcErr *protocol.RPCError
	require.ErrorAs(t, err, &rpcErr, "fail mode must surface as a JSON-RPC error, not a tool result")
	assert.Contains(t, rpcErr.Message, "analysis backend unavailable")
}

func TestMockFailToolsDrivesRunFailure(t *testing.T) {
	client := dialMock(t, Options{FailTools: true})
	runner := harness.NewRunner(client, config.Default(), harness.NewQuietReporter(io.Discard), nil)

	report := runner.Run("mock")

	require.Len(t, report.Steps, 5)
	want := []harness.StepStatus{
		harness.StatusPass, harness.StatusPass, harness.StatusFail,
		harness.StatusSkip, harness.StatusSkip,
	}
	for i, step := range report.Steps {
		assert.Equal(t, want[i], step.Status, "step %s", step.Name)
	}
	assert.Equal(t, 1, report.ExitCode())
}
