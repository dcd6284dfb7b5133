package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcpconform/internal/mockserver"
	"mcpconform/pkg/logging"
)

var (
	mockFailTools bool
	mockDebug     bool
)

// mockCmd serves a mock analysis MCP server on stdio, giving the harness a
// deterministic target for self-tests and demos.
var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Serve a mock analysis MCP server on stdio",
	Long: `Mock runs a deterministic analysis MCP server over stdin/stdout. It
exposes the tool surface the harness exercises (start_analysis_session,
send_message, close_session) with canned responses and real session
bookkeeping, so the harness can be validated against its own binary:

  mcpconform run mcpconform mock

With --fail-tools every tool call fails with a protocol-level error, which
drives the harness's FAIL reporting and a non-zero exit.`,
	RunE: runMock,
}

func init() {
	rootCmd.AddCommand(mockCmd)

	mockCmd.Flags().BoolVar(&mockFailTools, "fail-tools", false, "Make every tool call fail with a protocol error")
	mockCmd.Flags().BoolVar(&mockDebug, "debug", false, "Enable debug logging on stderr")
}

func runMock(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	level := logging.ParseLevel(logging.LevelInfo)
	if mockDebug {
		level = logging.ParseLevel(logging.LevelDebug)
	}
	// Logs go to stderr: stdout belongs to the protocol.
	logger := logging.New(os.Stderr, level)

	srv := mockserver.New(mockserver.Options{FailTools: mockFailTools}, logger)
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
