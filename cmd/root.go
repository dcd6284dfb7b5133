package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpconform",
	Short: "Conformance harness for MCP analysis servers speaking stdio",
	Long: `mcpconform spawns a target MCP server executable, drives it through a
fixed protocol conversation (handshake, tool discovery, an analysis session
lifecycle, teardown) over newline-delimited JSON on its standard streams,
and reports PASS/FAIL/SKIP per step.

Exit code 0 means every step passed; 1 means at least one step failed or
the run could not be set up (missing executable, spawn failure, failed
handshake).`,
	// SilenceUsage prevents printing the usage message on errors we handle
	// ourselves (failed runs, invalid configuration).
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpconform version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}
