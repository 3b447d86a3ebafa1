package telemetry

import (
	"log/slog"
	"os"
)

// NewLogger returns the JSON logger every binary writes to stdout.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
