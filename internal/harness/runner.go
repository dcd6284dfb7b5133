package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mcpconform/internal/config"
	"mcpconform/internal/protocol"
	"mcpconform/internal/session"
	"mcpconform/internal/transport"
	"mcpconform/pkg/logging"
)

// state is the runner's position in the scripted scenario.
type state int

const (
	stateInit state = iota
	stateListCapabilities
	stateStartSession
	stateSendMessage
	stateCloseSession
	stateDone
	stateAborted
)

// Runner drives the fixed conformance scenario over a Client and records
// one outcome per step, in step order, regardless of timing.
type Runner struct {
	client   Client
	cfg      config.Config
	reporter Reporter
	logger   *slog.Logger

	sess        session.Session
	haveSession bool
	// transportDead is set once the output stream closes; remaining steps
	// are recorded as skipped because the target is presumed gone.
	transportDead bool
}

// NewRunner creates a runner for one scenario execution.
func NewRunner(client Client, cfg config.Config, reporter Reporter, logger *slog.Logger) *Runner {
	return &Runner{
		client:   client,
		cfg:      cfg,
		reporter: reporter,
		logger:   logging.OrDiscard(logger),
	}
}

// Run executes the scenario: Init, ListCapabilities, StartSession,
// SendMessage, CloseSession. A failed handshake aborts the run; any later
// failure is recorded and the scenario advances where doing so is safe.
func (r *Runner) Run(target string) *RunReport {
	report := &RunReport{
		RunID:     uuid.NewString(),
		Target:    target,
		StartTime: time.Now(),
	}
	r.reporter.ReportRunStart(target)

	for st := stateInit; st != stateDone && st != stateAborted; {
		switch st {
		case stateInit:
			res := r.runStep(StepInitialize, r.stepInitialize)
			report.Steps = append(report.Steps, res)
			r.reporter.ReportStepResult(res)
			if res.Status != StatusPass {
				r.logger.Error("handshake failed, aborting run", "detail", res.Detail)
				report.Aborted = true
				st = stateAborted
				break
			}
			st = stateListCapabilities

		case stateListCapabilities:
			r.recordStep(StepListTools, r.stepListTools, report)
			st = stateStartSession

		case stateStartSession:
			res := r.recordStep(StepStartSession, r.stepStartSession, report)
			if res.Status == StatusPass && !r.haveSession {
				warning := "session started but no session id could be extracted; session steps will be skipped"
				report.Warnings = append(report.Warnings, warning)
				r.reporter.ReportWarning(warning)
			}
			st = stateSendMessage

		case stateSendMessage:
			r.recordStep(StepSendMessage, r.stepSendMessage, report)
			st = stateCloseSession

		case stateCloseSession:
			r.recordStep(StepCloseSession, r.stepCloseSession, report)
			st = stateDone
		}
	}

	report.Duration = time.Since(report.StartTime)
	r.reporter.ReportRunResult(*report)
	return report
}

// stepFunc performs one step. It returns SKIP via errSkip, a detail note on
// success, or an error on failure.
type stepFunc func() (detail string, err error)

// errSkip marks a step whose prerequisites are missing.
var errSkip = errors.New("step skipped")

func (r *Runner) recordStep(name string, fn stepFunc, report *RunReport) StepResult {
	res := r.runStep(name, fn)
	report.Steps = append(report.Steps, res)
	r.reporter.ReportStepResult(res)
	return res
}

func (r *Runner) runStep(name string, fn stepFunc) StepResult {
	res := StepResult{Name: name, StartTime: time.Now()}
	r.logger.Info("running step", "step", name)

	detail, err := fn()
	res.Duration = time.Since(res.StartTime)
	switch {
	case errors.Is(err, errSkip):
		res.Status = StatusSkip
		res.Detail = detail
	case err != nil:
		res.Status = StatusFail
		res.Detail = err.Error()
		var closed *transport.StreamClosedError
		if errors.As(err, &closed) {
			r.transportDead = true
		}
		r.logger.Warn("step failed", "step", name, "error", err)
	default:
		res.Status = StatusPass
		res.Detail = detail
	}
	return res
}

func (r *Runner) stepInitialize() (string, error) {
	if err := r.client.Initialize(r.cfg.Timeouts.Initialize.Std()); err != nil {
		return "", err
	}
	// The initialized notification completes the handshake; no response is
	// expected for it.
	if err := r.client.NotifyInitialized(); err != nil {
		return "", fmt.Errorf("sending initialized notification: %w", err)
	}
	return "handshake complete", nil
}

func (r *Runner) stepListTools() (string, error) {
	if r.transportDead {
		return "server output stream already closed", errSkip
	}
	tools, err := r.client.ListTools(r.cfg.Timeouts.ListTools.Std())
	if err != nil {
		return "", err
	}
	for _, tool := range tools {
		r.logger.Debug("server tool", "name", tool.Name, "description", truncate(tool.Description, 100))
	}
	return fmt.Sprintf("%d tools advertised", len(tools)), nil
}

func (r *Runner) stepStartSession() (string, error) {
	if r.transportDead {
		return "server output stream already closed", errSkip
	}
	raw, err := r.client.CallTool(protocol.ToolStartSession, map[string]any{
		"binary_path": r.cfg.Analysis.BinaryPath,
		"task":        r.cfg.Analysis.Task,
	}, r.cfg.Timeouts.StartSession.Std())
	if err != nil {
		return "", err
	}

	if sess, ok := session.Extract(raw); ok {
		r.sess = sess
		r.haveSession = true
		r.logger.Info("session bound", "session_id", sess.ID)
		return "session " + sess.ID, nil
	}
	return "session started, id not recoverable", nil
}

func (r *Runner) stepSendMessage() (string, error) {
	if detail, skip := r.sessionPrereq(); skip {
		return detail, errSkip
	}
	_, err := r.client.CallTool(protocol.ToolSendMessage, map[string]any{
		"session_id": r.sess.ID,
		"message":    r.cfg.Analysis.Message,
	}, r.cfg.Timeouts.SendMessage.Std())
	if err != nil {
		return "", err
	}
	return "message exchanged", nil
}

func (r *Runner) stepCloseSession() (string, error) {
	if detail, skip := r.sessionPrereq(); skip {
		return detail, errSkip
	}
	_, err := r.client.CallTool(protocol.ToolCloseSession, map[string]any{
		"session_id": r.sess.ID,
	}, r.cfg.Timeouts.CloseSession.Std())
	if err != nil {
		return "", err
	}
	return "session closed", nil
}

// sessionPrereq decides whether a session-dependent step can run at all.
func (r *Runner) sessionPrereq() (string, bool) {
	if r.transportDead {
		return "server output stream already closed", true
	}
	if !r.haveSession {
		return "no session bound", true
	}
	return "", false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
