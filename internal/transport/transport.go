// Package transport implements the newline-delimited JSON-RPC exchange with
// the target process: one request serialized to a single line and flushed
// per call, one response read back under a caller-supplied deadline.
//
// Reads are made deadline-aware without polling: a dedicated goroutine
// scans the output stream and delivers lines on a channel, and Receive
// selects between the next line, the deadline timer and stream closure.
// After a timeout the goroutine may still be blocked in a line read; the
// caller must treat the connection as dead at that point (in practice the
// runner terminates the process, which unblocks the read via pipe close).
package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mcpconform/internal/protocol"
	"mcpconform/pkg/logging"
)

// lineBuffer bounds how many protocol lines may queue between Receive
// calls before the reader goroutine blocks.
const lineBuffer = 64

// maxLineSize is the largest single response line accepted from the target.
const maxLineSize = 4 * 1024 * 1024

// Conn is a bidirectional newline-delimited JSON connection to the target.
// It is not safe for concurrent Receive calls; the harness's exchange is
// strictly sequential by design.
type Conn struct {
	mu     sync.Mutex // serializes writes
	w      io.Writer
	lines  chan string
	logger *slog.Logger
}

// NewConn wraps the target's input and output streams and starts the line
// reader. The Conn never closes the underlying streams; they belong to the
// process supervisor.
func NewConn(w io.Writer, r io.Reader, logger *slog.Logger) *Conn {
	c := &Conn{
		w:      w,
		lines:  make(chan string, lineBuffer),
		logger: logging.OrDiscard(logger),
	}
	go c.readLines(r)
	return c
}

func (c *Conn) readLines(r io.Reader) {
	defer close(c.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	// Scan errors (including a torn-down pipe) are indistinguishable from a
	// clean close for the harness's purposes: either way the stream is done.
}

// Send serializes req to one line of JSON terminated by a newline and
// writes it immediately. There is no buffering across calls: the request
// reaches the child before the caller attempts the next read.
func (c *Conn) Send(req protocol.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return &TransportError{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("sending request", "method", req.Method, "payload", string(payload))
	if _, err := c.w.Write(append(payload, '\n')); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Receive reads lines from the target until one parses as a complete
// JSON-RPC response, the deadline elapses, or the stream closes.
//
// A line that does not parse as JSON is not fatal: it is retained as noise
// and reading continues, on the assumption that responses are always
// emitted as a single line and that leading non-JSON lines are diagnostics
// leaked onto the wrong stream. Retained noise is discarded on success and
// attached to the error otherwise.
func (c *Conn) Receive(timeout time.Duration) (*protocol.Response, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var noise []string
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				c.logger.Debug("output stream closed", "noise_lines", len(noise))
				return nil, &StreamClosedError{Noise: noise}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "{") || !json.Valid([]byte(line)) {
				c.logger.Debug("retaining unparsed line", "line", truncate(line, 200))
				noise = append(noise, line)
				continue
			}
			var resp protocol.Response
			if err := json.Unmarshal([]byte(line), &resp); err != nil {
				return nil, &MalformedResponseError{Line: line, Err: err}
			}
			c.logger.Debug("received response", "id", resp.ID, "payload", truncate(line, 500))
			return &resp, nil

		case <-deadline.C:
			c.logger.Debug("receive deadline elapsed", "timeout", timeout, "noise_lines", len(noise))
			return nil, &TimeoutError{Timeout: timeout, Noise: noise}
		}
	}
}
