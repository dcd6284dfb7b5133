package harness

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() RunReport {
	return RunReport{
		RunID:     "run-1",
		Target:    "/usr/local/bin/analysis-server",
		StartTime: time.Now(),
		Duration:  1200 * time.Millisecond,
		Steps: []StepResult{
			{Name: StepInitialize, Status: StatusPass, Detail: "handshake complete", Duration: 40 * time.Millisecond},
			{Name: StepListTools, Status: StatusPass, Detail: "3 tools advertised", Duration: 5 * time.Millisecond},
			{Name: StepStartSession, Status: StatusFail, Detail: "rpc error -32603: backend down", Duration: time.Second},
			{Name: StepSendMessage, Status: StatusSkip, Detail: "no session bound"},
			{Name: StepCloseSession, Status: StatusSkip, Detail: "no session bound"},
		},
		Warnings: []string{"something non-fatal"},
	}
}

func TestConsoleReporterOutput(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewConsoleReporter(&buf, false)
	report := sampleReport()

	reporter.ReportRunStart(report.Target)
	for _, step := range report.Steps {
		reporter.ReportStepResult(step)
	}
	reporter.ReportWarning(report.Warnings[0])
	reporter.ReportRunResult(report)

	out := buf.String()
	assert.Contains(t, out, report.Target)
	assert.Contains(t, out, StepInitialize)
	assert.Contains(t, out, "rpc error -32603: backend down")
	assert.Contains(t, out, "something non-fatal")
	assert.Contains(t, out, "2 passed, 1 failed, 2 skipped")
	assert.Contains(t, out, "conformance run failed")
	// Pass details stay hidden without --verbose.
	assert.NotContains(t, out, "handshake complete")
}

func TestConsoleReporterVerboseShowsPassDetails(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewConsoleReporter(&buf, true)

	reporter.ReportStepResult(StepResult{Name: StepInitialize, Status: StatusPass, Detail: "handshake complete"})
	assert.Contains(t, buf.String(), "handshake complete")
}

func TestConsoleReporterAbortedVerdict(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewConsoleReporter(&buf, false)

	reporter.ReportRunResult(RunReport{
		Aborted: true,
		Steps:   []StepResult{{Name: StepInitialize, Status: StatusFail}},
	})
	assert.Contains(t, buf.String(), "run aborted")
	assert.NotContains(t, buf.String(), "conformance run passed")
}

func TestQuietReporterOnlyFailuresAndTally(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewQuietReporter(&buf)
	report := sampleReport()

	reporter.ReportRunStart(report.Target)
	for _, step := range report.Steps {
		reporter.ReportStepResult(step)
	}
	reporter.ReportRunResult(report)

	out := buf.String()
	assert.NotContains(t, out, report.Target)
	assert.NotContains(t, out, StepInitialize)
	assert.Contains(t, out, "FAIL start_session: rpc error -32603: backend down")
	assert.Contains(t, out, "2 passed, 1 failed, 2 skipped")
}

func TestJSONReporterEmitsDecodableReport(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewJSONReporter(&buf)
	report := sampleReport()

	reporter.ReportRunStart(report.Target)
	reporter.ReportStepResult(report.Steps[0])
	reporter.ReportRunResult(report)

	var decoded RunReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded), "output must be a single JSON document")
	assert.Equal(t, report.RunID, decoded.RunID)
	require.Len(t, decoded.Steps, len(report.Steps))
	assert.Equal(t, StatusFail, decoded.Steps[2].Status)
	assert.Equal(t, report.Warnings, decoded.Warnings)
}

func TestSaveReportCreatesDirectories(t *testing.T) {
	report := sampleReport()
	path := filepath.Join(t.TempDir(), "reports", "nested", "run.json")

	require.NoError(t, SaveReport(&report, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
}
