// Package logging builds the slog loggers used across mcpconform.
//
// There is deliberately no package-level default logger: every component
// receives a *slog.Logger from its constructor, so tests can capture log
// output and the CLI decides once where logs go.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Level names accepted by ParseLevel, lowest to highest severity.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ParseLevel maps a level name to a slog.Level. Unknown names fall back
// to info rather than failing; a bad log level should never stop a run.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text-handler logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. Used by tests and as a
// safe default when a caller passes nil.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger unchanged when non-nil, otherwise a discard
// logger, so components never have to nil-check before logging.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
