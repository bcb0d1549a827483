// Package logging builds the slog loggers used by the store, the importer,
// and the command surfaces.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// levelSilent sits above every standard level.
const levelSilent = slog.Level(100)

// New returns a logger writing to w at level. format selects the JSON
// handler when it is "json"; anything else uses the text handler.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: levelSilent}))
}

// LevelFromString converts debug, info, warn, or error (any case) to a
// slog.Level. Unrecognized strings yield info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off":
		return levelSilent
	default:
		return slog.LevelInfo
	}
}
