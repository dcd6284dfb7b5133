// Package session recovers the opaque session handle from a
// start_analysis_session tool result.
//
// The target is not consistent about where the id lands: some builds return
// it as a structured session_id field on the first content item, others
// only mention it inside free text. Extraction therefore tries the
// structured field first and falls back to pattern matching the text, in
// that fixed priority order.
package session

import (
	"encoding/json"
	"regexp"
)

// Session is an opaque server-assigned handle for continued server-side
// state. Immutable once captured.
type Session struct {
	ID string
}

// idPattern matches ids of the form session_<digits>_<digits>.
var idPattern = regexp.MustCompile(`session_\d+_\d+`)

// toolResult mirrors the subset of a tool-call result the extractor needs:
// a content list whose items are either structured values or plain strings.
type toolResult struct {
	Content []json.RawMessage `json:"content"`
}

// Extract attempts to recover a session handle from a raw tool-call result.
// Policy, in order: a structured session_id field on the first content
// item; else the first session_<digits>_<digits> match in the first item's
// text. Returns false when neither yields an id; absence is not an error,
// the caller decides what to skip.
//
// Extraction is pure: the same payload always yields the same outcome.
func Extract(result json.RawMessage) (Session, bool) {
	if len(result) == 0 {
		return Session{}, false
	}
	var tr toolResult
	if err := json.Unmarshal(result, &tr); err != nil || len(tr.Content) == 0 {
		return Session{}, false
	}
	first := tr.Content[0]

	var structured struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.Unmarshal(first, &structured); err == nil {
		if structured.SessionID != "" {
			return Session{ID: structured.SessionID}, true
		}
		// MCP text content items carry their prose in a text field.
		if match := idPattern.FindString(structured.Text); match != "" {
			return Session{ID: match}, true
		}
	}

	var text string
	if err := json.Unmarshal(first, &text); err == nil {
		if match := idPattern.FindString(text); match != "" {
			return Session{ID: match}, true
		}
	}
	return Session{}, false
}
