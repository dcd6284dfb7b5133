// Package harness orchestrates the scripted conformance scenario against a
// target MCP server subprocess and reports one outcome per step.
package harness

import (
	"context"
	"log/slog"

	"mcpconform/internal/config"
	"mcpconform/internal/process"
	"mcpconform/internal/transport"
	"mcpconform/pkg/logging"
)

// Execute runs the full conformance scenario against the configured target:
// spawn, scripted conversation, teardown. It returns the run report; only
// setup failures (spawn) are returned as errors, everything later is
// recorded in the report.
//
// ctx cancellation (e.g. an interrupt) terminates the target; the scenario
// itself is bounded by the per-step deadlines, not by ctx.
func Execute(ctx context.Context, cfg config.Config, reporter Reporter, logger *slog.Logger) (*RunReport, error) {
	logger = logging.OrDiscard(logger)

	supervisor := process.NewSupervisor(logger, cfg.Server.GracePeriod.Std())
	handle, err := supervisor.Start(cfg.Server.Command, cfg.Server.Args, func(line string) {
		logger.Info("server stderr", "line", line)
	})
	if err != nil {
		return nil, err
	}

	// An interrupt mid-run kills the target so blocked pipe reads unwind.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			logger.Warn("run cancelled, terminating target", "pid", handle.PID())
			handle.Kill()
		case <-watchDone:
		}
	}()

	conn := transport.NewConn(handle.Stdin(), handle.Stdout(), logger)
	runner := NewRunner(NewClient(conn, logger), cfg, reporter, logger)
	report := runner.Run(cfg.Server.Command)

	logger.Info("terminating target", "pid", handle.PID())
	if code, err := handle.Shutdown(cfg.Timeouts.Shutdown.Std()); err != nil {
		logger.Warn("target did not exit cleanly", "error", err)
	} else {
		logger.Debug("target exited", "code", code)
	}

	return report, nil
}
