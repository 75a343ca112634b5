package observability

import (
	"context"
	"log/slog"
	"strings"
)

var _ slog.Handler = (*NoopHandler)(nil)

// NoopHandler is a slog.Handler that drops every record.
type NoopHandler struct{}

func NewNoopHandler() slog.Handler {
	return &NoopHandler{}
}

// NewNoopLogger returns a logger that drops every record.
func NewNoopLogger() *slog.Logger {
	return slog.New(NewNoopHandler())
}

func (h *NoopHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (h *NoopHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (h *NoopHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *NoopHandler) WithGroup(_ string) slog.Handler {
	return h
}

// ParseLevel maps "debug", "info", "warn" and "error" to their slog.Level.
// Anything else is INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
