package harness

import (
	"encoding/json"
	"time"

	"mcpconform/internal/protocol"
)

// StepStatus is the recorded outcome of one scripted step.
type StepStatus string

const (
	// StatusPass indicates the step completed and the response was well formed.
	StatusPass StepStatus = "PASS"
	// StatusFail indicates the step ran but did not produce a valid outcome.
	StatusFail StepStatus = "FAIL"
	// StatusSkip indicates the step was not attempted because a prerequisite
	// (usually the session handle) was missing.
	StatusSkip StepStatus = "SKIP"
)

// The scripted steps, in the only order they ever run.
const (
	StepInitialize   = "initialize"
	StepListTools    = "list_tools"
	StepStartSession = "start_session"
	StepSendMessage  = "send_message"
	StepCloseSession = "close_session"
)

// StepNames lists the scripted steps in run order.
var StepNames = []string{
	StepInitialize,
	StepListTools,
	StepStartSession,
	StepSendMessage,
	StepCloseSession,
}

// StepResult is produced exactly once per scripted step, in step order.
type StepResult struct {
	// Name is the step identifier.
	Name string `json:"name"`
	// Status is the recorded outcome.
	Status StepStatus `json:"status"`
	// Detail carries the failure reason or a short success note.
	Detail string `json:"detail,omitempty"`
	// StartTime when step execution began.
	StartTime time.Time `json:"start_time"`
	// Duration of step execution.
	Duration time.Duration `json:"duration"`
}

// RunReport is the ordered record of one conformance run.
type RunReport struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`
	// Target is the path of the executable under test.
	Target string `json:"target"`
	// StartTime when the run began.
	StartTime time.Time `json:"start_time"`
	// Duration of the whole run.
	Duration time.Duration `json:"duration"`
	// Steps holds one result per scripted step, in step order.
	Steps []StepResult `json:"steps"`
	// Aborted is set when the handshake failed and the run halted.
	Aborted bool `json:"aborted,omitempty"`
	// Warnings carries non-fatal findings, e.g. an unextractable session id.
	Warnings []string `json:"warnings,omitempty"`
}

// ExitCode maps the report to the process exit status: 0 when every
// attempted step passed, 1 when any step failed or the run aborted.
// Skipped steps do not fail the run on their own; the failure that caused
// the skip already does.
func (r *RunReport) ExitCode() int {
	if r.Aborted {
		return 1
	}
	for _, step := range r.Steps {
		if step.Status == StatusFail {
			return 1
		}
	}
	return 0
}

// Passed reports whether the run completed with every step passing.
func (r *RunReport) Passed() bool {
	if r.Aborted || len(r.Steps) == 0 {
		return false
	}
	for _, step := range r.Steps {
		if step.Status != StatusPass {
			return false
		}
	}
	return true
}

// Client is the protocol conversation the runner drives. Implementations
// perform one strictly alternating send/receive exchange per call.
type Client interface {
	// Initialize performs the handshake request and checks the response.
	Initialize(timeout time.Duration) error
	// NotifyInitialized sends the initialized notification; no response is
	// expected or read.
	NotifyInitialized() error
	// ListTools requests the server's tool catalog.
	ListTools(timeout time.Duration) ([]protocol.ToolInfo, error)
	// CallTool invokes a tool and returns the raw result payload.
	CallTool(name string, args map[string]any, timeout time.Duration) (json.RawMessage, error)
}

// Reporter receives run progress. Implementations must be cheap; they are
// invoked inline between steps.
type Reporter interface {
	// ReportRunStart is called once before the first step.
	ReportRunStart(target string)
	// ReportStepResult is called after each step completes, in step order.
	ReportStepResult(result StepResult)
	// ReportWarning is called for non-fatal findings.
	ReportWarning(message string)
	// ReportRunResult is called once with the final report.
	ReportRunResult(report RunReport)
}
