package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// consoleReporter writes human-readable step progress to the terminal.
type consoleReporter struct {
	out     io.Writer
	verbose bool
}

// NewConsoleReporter creates the default human-readable reporter.
func NewConsoleReporter(out io.Writer, verbose bool) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &consoleReporter{out: out, verbose: verbose}
}

func (r *consoleReporter) ReportRunStart(target string) {
	fmt.Fprintf(r.out, "Running conformance scenario against %s\n\n", target)
}

func (r *consoleReporter) ReportStepResult(result StepResult) {
	fmt.Fprintf(r.out, "%s %-14s %s\n",
		statusBadge(result.Status), result.Name,
		dimStyle.Render(fmt.Sprintf("(%s)", result.Duration.Round(time.Millisecond))))
	if result.Detail != "" && (r.verbose || result.Status != StatusPass) {
		fmt.Fprintf(r.out, "    %s\n", result.Detail)
	}
}

func (r *consoleReporter) ReportWarning(message string) {
	fmt.Fprintf(r.out, "%s %s\n", skipStyle.Render("warning:"), message)
}

func (r *consoleReporter) ReportRunResult(report RunReport) {
	passed, failed, skipped := tally(report)
	fmt.Fprintf(r.out, "\n%d passed, %d failed, %d skipped in %s\n",
		passed, failed, skipped, report.Duration.Round(time.Millisecond))
	if report.Aborted {
		fmt.Fprintln(r.out, failStyle.Render("run aborted: handshake failed"))
		return
	}
	if report.ExitCode() == 0 {
		fmt.Fprintln(r.out, passStyle.Render("conformance run passed"))
	} else {
		fmt.Fprintln(r.out, failStyle.Render("conformance run failed"))
	}
}

func statusBadge(status StepStatus) string {
	switch status {
	case StatusPass:
		return passStyle.Render("PASS")
	case StatusFail:
		return failStyle.Render("FAIL")
	default:
		return skipStyle.Render("SKIP")
	}
}

func tally(report RunReport) (passed, failed, skipped int) {
	for _, step := range report.Steps {
		switch step.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusSkip:
			skipped++
		}
	}
	return
}

// quietReporter only surfaces failures and the final verdict; suited to CI
// logs where step-by-step progress is noise.
type quietReporter struct {
	out io.Writer
}

// NewQuietReporter creates a reporter that reports failures only.
func NewQuietReporter(out io.Writer) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &quietReporter{out: out}
}

func (r *quietReporter) ReportRunStart(string) {}

func (r *quietReporter) ReportStepResult(result StepResult) {
	if result.Status == StatusFail {
		fmt.Fprintf(r.out, "FAIL %s: %s\n", result.Name, result.Detail)
	}
}

func (r *quietReporter) ReportWarning(string) {}

func (r *quietReporter) ReportRunResult(report RunReport) {
	passed, failed, skipped := tally(report)
	fmt.Fprintf(r.out, "%d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

// jsonReporter emits the final report as one JSON document for machine
// consumption.
type jsonReporter struct {
	out io.Writer
}

// NewJSONReporter creates a reporter that writes the complete run report as
// indented JSON once the run finishes.
func NewJSONReporter(out io.Writer) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &jsonReporter{out: out}
}

func (r *jsonReporter) ReportRunStart(string)       {}
func (r *jsonReporter) ReportStepResult(StepResult) {}
func (r *jsonReporter) ReportWarning(string)        {}

func (r *jsonReporter) ReportRunResult(report RunReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, `{"error": %q}`+"\n", err.Error())
		return
	}
	fmt.Fprintln(r.out, string(data))
}

// SaveReport writes the report as indented JSON to path, creating parent
// directories as needed.
func SaveReport(report *RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
