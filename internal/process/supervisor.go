// Package process spawns and supervises the target server executable.
//
// The supervisor owns the child's three pipes. The protocol conversation
// borrows stdin and stdout through the Handle; stderr is consumed for the
// whole process lifetime by a background drain so the child can never stall
// on a full stderr buffer while the main exchange is in flight.
package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"mcpconform/pkg/logging"
)

// DefaultGracePeriod is how long a freshly spawned process is given before
// the supervisor confirms it is still alive.
const DefaultGracePeriod = 1 * time.Second

// diagnosticTailSize bounds the stderr tail retained for error reports.
const diagnosticTailSize = 64

// Observer receives one stderr line at a time from the diagnostic drain.
type Observer func(line string)

// Supervisor starts target processes and hands out Handles.
type Supervisor struct {
	logger      *slog.Logger
	gracePeriod time.Duration
}

// NewSupervisor creates a supervisor. A zero gracePeriod selects
// DefaultGracePeriod.
func NewSupervisor(logger *slog.Logger, gracePeriod time.Duration) *Supervisor {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Supervisor{logger: logging.OrDiscard(logger), gracePeriod: gracePeriod}
}

// Handle is a running target process and its pipe endpoints. The supervisor
// is the only component that closes or reconfigures the pipes; transport
// code uses Stdin and Stdout read-only in that sense.
type Handle struct {
	path   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	done      chan struct{} // closed once cmd.Wait returns
	drainDone chan struct{} // closed once the stderr drain sees EOF
	waitErr   error

	mu       sync.Mutex
	diagTail []string

	logger *slog.Logger
}

// Start spawns the executable with piped stdin, stdout and stderr, launches
// the stderr drain, then waits out the grace period and confirms the child
// is still alive. Early exit is reported as a *SpawnError carrying the
// stderr captured so far. The observer may be nil.
//
// The pipes are created by hand rather than through StdinPipe and friends:
// cmd.Wait closes the pipes it created itself as soon as the child exits,
// which can discard buffered output the drain and the protocol reader have
// not consumed yet. With plain os.Pipe ends Wait touches nothing and the
// readers observe the true EOF.
func (s *Supervisor) Start(path string, args []string, observer Observer) (*Handle, error) {
	stdinRd, stdinWr, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Path: path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdoutRd, stdoutWr, err := os.Pipe()
	if err != nil {
		stdinRd.Close()
		stdinWr.Close()
		return nil, &SpawnError{Path: path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrRd, stderrWr, err := os.Pipe()
	if err != nil {
		stdinRd.Close()
		stdinWr.Close()
		stdoutRd.Close()
		stdoutWr.Close()
		return nil, &SpawnError{Path: path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	cmd := exec.Command(path, args...)
	cmd.Stdin = stdinRd
	cmd.Stdout = stdoutWr
	cmd.Stderr = stderrWr

	if err := cmd.Start(); err != nil {
		stdinRd.Close()
		stdinWr.Close()
		stdoutRd.Close()
		stdoutWr.Close()
		stderrRd.Close()
		stderrWr.Close()
		return nil, &SpawnError{Path: path, Err: err}
	}

	// The child holds duplicates of its three ends now; closing the
	// parent's copies is what lets the readers reach EOF once the child
	// exits (or is killed).
	stdinRd.Close()
	stdoutWr.Close()
	stderrWr.Close()

	h := &Handle{
		path:      path,
		cmd:       cmd,
		stdin:     stdinWr,
		stdout:    stdoutRd,
		done:      make(chan struct{}),
		drainDone: make(chan struct{}),
		logger:    s.logger,
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	drain(stderrRd, h, observer)

	s.logger.Debug("target spawned", "path", path, "pid", cmd.Process.Pid)

	// Grace period: a target that dies immediately (bad arguments, missing
	// shared library) should surface its stderr instead of a confusing
	// timeout on the first request.
	select {
	case <-h.done:
		<-h.drainDone
		h.stdin.Close()
		h.stdout.Close()
		return nil, &SpawnError{
			Path:        path,
			Diagnostics: h.DiagnosticTail(),
			Err:         fmt.Errorf("process exited during startup: %w", exitReason(h.waitErr)),
		}
	case <-time.After(s.gracePeriod):
	}

	s.logger.Info("target running", "path", path, "pid", cmd.Process.Pid)
	return h, nil
}

func exitReason(waitErr error) error {
	if waitErr == nil {
		return fmt.Errorf("exit status 0")
	}
	return waitErr
}

// Stdin is the child's input stream.
func (h *Handle) Stdin() io.Writer { return h.stdin }

// Stdout is the child's protocol output stream.
func (h *Handle) Stdout() io.Reader { return h.stdout }

// PID returns the child's process id.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// Alive reports whether the child has not yet been reaped.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Terminate asks the child to exit with SIGTERM, escalating to SIGKILL if
// the signal cannot be delivered.
func (h *Handle) Terminate() {
	if !h.Alive() {
		return
	}
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		h.logger.Debug("SIGTERM failed, killing", "pid", h.PID(), "error", err)
		_ = h.cmd.Process.Kill()
	}
}

// Kill forcibly ends the child.
func (h *Handle) Kill() {
	if h.Alive() {
		_ = h.cmd.Process.Kill()
	}
}

// AwaitExit blocks until the child has been reaped and the stderr drain has
// observed stream closure, or the timeout elapses. Waiting on the drain too
// means no trailing diagnostic lines are lost before the exit is declared.
func (h *Handle) AwaitExit(timeout time.Duration) (int, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-h.done:
	case <-deadline.C:
		return 0, &WaitTimeoutError{Timeout: timeout}
	}

	// The drain reaches EOF on its own once the last holder of the child's
	// stderr end is gone; it gets a fresh wait rather than whatever sliver
	// the exit wait left on the first timer.
	drainDeadline := time.NewTimer(timeout)
	defer drainDeadline.Stop()
	select {
	case <-h.drainDone:
	case <-drainDeadline.C:
		return 0, &WaitTimeoutError{Timeout: timeout}
	}
	return h.cmd.ProcessState.ExitCode(), nil
}

// Shutdown terminates the child and waits for it to exit, escalating to
// SIGKILL when the graceful wait times out.
func (h *Handle) Shutdown(timeout time.Duration) (int, error) {
	h.stdin.Close()
	h.Terminate()
	code, err := h.AwaitExit(timeout)
	if err == nil {
		return code, nil
	}
	h.logger.Warn("graceful shutdown timed out, killing", "pid", h.PID())
	h.Kill()
	return h.AwaitExit(timeout)
}

// DiagnosticTail returns a copy of the most recent stderr lines.
func (h *Handle) DiagnosticTail() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	tail := make([]string, len(h.diagTail))
	copy(tail, h.diagTail)
	return tail
}

func (h *Handle) recordDiagnostic(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.diagTail = append(h.diagTail, line)
	if len(h.diagTail) > diagnosticTailSize {
		h.diagTail = h.diagTail[len(h.diagTail)-diagnosticTailSize:]
	}
}
