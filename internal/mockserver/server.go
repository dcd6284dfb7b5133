// Package mockserver implements a mock analysis MCP server speaking stdio.
//
// It exposes the same tool surface the harness exercises
// (start_analysis_session, send_message, close_session) with deterministic
// canned behavior, so the harness can be pointed at its own binary for
// self-testing and demos without a real analysis backend.
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mcpconform/pkg/logging"
)

// Options configure the mock's behavior.
type Options struct {
	// FailTools makes every tool call fail with a protocol-level error
	// (the handlers return an error the server surfaces as a JSON-RPC
	// error), so a client exercising the mock records real failures.
	FailTools bool
}

// Server is the mock analysis MCP server.
type Server struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	seq      int
	sessions map[string]string // session id -> task
}

// New creates a mock server.
func New(opts Options, logger *slog.Logger) *Server {
	return &Server{
		opts:     opts,
		logger:   logging.OrDiscard(logger),
		sessions: make(map[string]string),
	}
}

// Serve runs the MCP server over the given streams until they close or ctx
// is cancelled. The CLI passes os.Stdin and os.Stdout.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	mcpServer := server.NewMCPServer(
		"mcpconform-mock-analysis",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool(
			"start_analysis_session",
			mcp.WithDescription("Start an analysis session for a binary and a task"),
			mcp.WithString("binary_path", mcp.Required(), mcp.Description("Path to the binary to analyze")),
			mcp.WithString("task", mcp.Required(), mcp.Description("Analysis task description")),
		),
		s.handleStartSession,
	)
	mcpServer.AddTool(
		mcp.NewTool(
			"send_message",
			mcp.WithDescription("Send a message to an active analysis session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to message")),
			mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
		),
		s.handleSendMessage,
	)
	mcpServer.AddTool(
		mcp.NewTool(
			"close_session",
			mcp.WithDescription("Close an analysis session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to close")),
		),
		s.handleCloseSession,
	)

	s.logger.Info("mock analysis server listening on stdio")
	return server.NewStdioServer(mcpServer).Listen(ctx, in, out)
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binaryPath, err := request.RequireString("binary_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := request.RequireString("task")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.opts.FailTools {
		return nil, errors.New("analysis backend unavailable")
	}

	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("session_%d_%d", os.Getpid(), s.seq)
	s.sessions[id] = task
	s.mu.Unlock()

	s.logger.Info("session started", "session_id", id, "binary_path", binaryPath)
	return mcp.NewToolResultText(fmt.Sprintf("Analysis session %s started for %s", id, binaryPath)), nil
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.opts.FailTools {
		return nil, errors.New("analysis backend unavailable")
	}

	s.mu.Lock()
	task, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %s", id)), nil
	}

	s.logger.Info("message received", "session_id", id, "length", len(message))
	return mcp.NewToolResultText(fmt.Sprintf("Acknowledged in session %s (task: %s)", id, task)), nil
}

func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.opts.FailTools {
		return nil, errors.New("analysis backend unavailable")
	}

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown session %s", id)), nil
	}

	s.logger.Info("session closed", "session_id", id)
	return mcp.NewToolResultText(fmt.Sprintf("Session %s closed", id)), nil
}
