package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcpconform/internal/config"
	"mcpconform/internal/harness"
	"mcpconform/internal/process"
	"mcpconform/pkg/logging"
)

var (
	runConfigPath string
	runBinaryPath string
	runTask       string
	runMessage    string
	runReportPath string
	runVerbose    bool
	runDebug      bool
	runQuiet      bool
	runJSON       bool
)

// runCmd executes the conformance scenario against a target server.
var runCmd = &cobra.Command{
	Use:   "run <server-executable>",
	Short: "Run the conformance scenario against a target MCP server",
	Long: `Run spawns the given MCP server executable with piped standard streams
and drives it through the scripted conversation:

  initialize -> notifications/initialized -> tools/list ->
  start_analysis_session -> send_message -> close_session

Each step has its own response deadline (configurable via --config). The
server's stderr is drained continuously and logged so a chatty server can
never deadlock the exchange. A failed handshake aborts the run; later
failures are recorded and the run continues where safe.

Arguments after the executable are passed to it verbatim.

Example usage:
  mcpconform run ./analysis-server --binary /tmp/sample.bin
  mcpconform run ./analysis-server --config harness.yaml --report report.json
  mcpconform run ./analysis-server --json > report.json
  mcpconform run mcpconform mock`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConformance,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to a YAML config file (timeouts, analysis arguments)")
	runCmd.Flags().StringVar(&runBinaryPath, "binary", "", "binary_path argument for start_analysis_session")
	runCmd.Flags().StringVar(&runTask, "task", "", "Analysis task text for start_analysis_session")
	runCmd.Flags().StringVar(&runMessage, "message", "", "Message text for send_message")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Write the JSON run report to this file")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Show step details for passing steps too")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging including request/response payloads")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only report failures and the final verdict")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit the run report as JSON on stdout")

	runCmd.MarkFlagsMutuallyExclusive("quiet", "json")
	runCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
}

func runConformance(cmd *cobra.Command, args []string) error {
	// Interrupts cancel the run and terminate the target.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}
	cfg.Server.Command = args[0]
	if len(args) > 1 {
		cfg.Server.Args = args[1:]
	}
	if runBinaryPath != "" {
		cfg.Analysis.BinaryPath = runBinaryPath
	}
	if runTask != "" {
		cfg.Analysis.Task = runTask
	}
	if runMessage != "" {
		cfg.Analysis.Message = runMessage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := logging.ParseLevel(logging.LevelWarn)
	if runDebug {
		level = logging.ParseLevel(logging.LevelDebug)
	} else if runVerbose {
		level = logging.ParseLevel(logging.LevelInfo)
	}
	logger := logging.New(os.Stderr, level)

	var reporter harness.Reporter
	switch {
	case runJSON:
		reporter = harness.NewJSONReporter(os.Stdout)
	case runQuiet:
		reporter = harness.NewQuietReporter(os.Stdout)
	default:
		reporter = harness.NewConsoleReporter(os.Stdout, runVerbose)
	}

	report, err := harness.Execute(ctx, cfg, reporter, logger)
	if err != nil {
		var spawnErr *process.SpawnError
		if errors.As(err, &spawnErr) {
			fmt.Fprintln(os.Stderr, spawnErr.Error())
			os.Exit(1)
		}
		return err
	}

	if runReportPath != "" {
		if err := harness.SaveReport(report, runReportPath); err != nil {
			logger.Warn("failed to save report", "path", runReportPath, "error", err)
		}
	}

	os.Exit(report.ExitCode())
	return nil
}
