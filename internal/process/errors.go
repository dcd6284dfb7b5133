package process

import (
	"fmt"
	"strings"
	"time"
)

// SpawnError reports that the target executable could not be started or
// exited during the startup grace period. Diagnostics holds the stderr
// lines captured before the failure was detected.
type SpawnError struct {
	Path        string
	Diagnostics []string
	Err         error
}

func (e *SpawnError) Error() string {
	msg := fmt.Sprintf("failed to spawn %s: %v", e.Path, e.Err)
	if len(e.Diagnostics) > 0 {
		msg += "\nserver stderr:\n  " + strings.Join(e.Diagnostics, "\n  ")
	}
	return msg
}

func (e *SpawnError) Unwrap() error { return e.Err }

// WaitTimeoutError reports that a process did not exit within the allowed
// wait time.
type WaitTimeoutError struct {
	Timeout time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("process did not exit within %v", e.Timeout)
}
