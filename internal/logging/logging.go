// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redacted replaces secret values in log output.
const redacted = "[REDACTED]"

// NewLogger creates a configured slog.Logger.
//
// level: slog level (DEBUG, INFO, WARN, ERROR)
// format: "text" (human-readable) or "json" (structured)
// secrets: values such as the bot token that must never be written; every
// occurrence inside a string or error attribute is replaced.
//
// Output goes to stderr so stdout stays free for command output.
func NewLogger(level slog.Level, format string, secrets ...string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr, secrets...)
}

// NewLoggerWithWriter creates a logger writing to the given writer.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer, secrets ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if r := newRedactor(secrets); r != nil {
		opts.ReplaceAttr = r.replace
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type redactor struct {
	replacer *strings.Replacer
}

func newRedactor(secrets []string) *redactor {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, redacted)
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return &redactor{replacer: strings.NewReplacer(pairs...)}
}

func (r *redactor) replace(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(r.replacer.Replace(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			a.Value = slog.StringValue(r.replacer.Replace(err.Error()))
		}
	}
	return a
}
