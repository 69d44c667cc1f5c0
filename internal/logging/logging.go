// Package logging builds the slog loggers shared by the CLI, the server and
// the planner client.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options select the level, format and destination of a logger.
type Options struct {
	Level  slog.Level
	Format string    // text or json
	Output io.Writer // defaults to stderr; stdout carries rendered documents
}

// New creates a logger from opts.
func New(opts Options) *slog.Logger {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, ho)
	default:
		handler = slog.NewTextHandler(w, ho)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel converts debug, info, warn or error to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat validates a log format name.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown log format %q", s)
}
