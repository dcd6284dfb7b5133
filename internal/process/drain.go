package process

import (
	"bufio"
	"io"
)

// drain launches the diagnostic drain: a goroutine that reads the child's
// stderr line by line for the lifetime of the process, records each line in
// the handle's tail buffer and forwards it to the observer. It runs on its
// own path so a chatty child can never fill the stderr pipe buffer and
// deadlock the request/response exchange.
//
// Read errors end the loop quietly; losing diagnostics is never fatal to
// the conformance outcome. The drain owns the stderr read end and closes it
// on its way out; the handle's drainDone channel is closed once the stream
// has been observed closed.
func drain(stderr io.ReadCloser, h *Handle, observer Observer) {
	go func() {
		defer close(h.drainDone)
		defer stderr.Close()

		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			h.recordDiagnostic(line)
			if observer != nil {
				observer(line)
			}
		}
	}()
}
