// Package util provides shared helpers for logging, retries, and rate
// limiting.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a structured JSON logger at the specified level.
// Supported levels: "debug", "info", "warn", "error". Unrecognised levels
// fall back to "info".
func NewLogger(level string) *slog.Logger {
	var slevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slevel = slog.LevelDebug
	case "info":
		slevel = slog.LevelInfo
	case "warn":
		slevel = slog.LevelWarn
	case "error":
		slevel = slog.LevelError
	default:
		slevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slevel,
	})

	return slog.New(handler)
}

// SetDefault configures the provided logger as the default slog logger.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
