package transport

import (
	"fmt"
	"time"
)

// TransportError reports a failed write to the target's input stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that no parseable response arrived within the
// deadline. Noise holds any non-JSON lines read while waiting; they are the
// best available context for what the target was doing instead.
type TimeoutError struct {
	Timeout time.Duration
	Noise   []string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("no response within %v", e.Timeout)
	if n := len(e.Noise); n > 0 {
		msg += fmt.Sprintf(" (%d unparsed lines read while waiting)", n)
	}
	return msg
}

// StreamClosedError reports that the target's output stream closed before a
// response was read. The target is presumed dead.
type StreamClosedError struct {
	Noise []string
}

func (e *StreamClosedError) Error() string {
	return "server closed its output stream"
}

// MalformedResponseError reports a line that is valid JSON but does not
// decode as a JSON-RPC response.
type MalformedResponseError struct {
	Line string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response %q: %v", truncate(e.Line, 120), e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
