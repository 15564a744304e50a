// ABOUTME: Logger helpers for tests
// ABOUTME: Builds a text logger that stays quiet unless TEST_DEBUG is set
package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a logger for tests. It logs at WARN unless
// TEST_DEBUG is set.
func NewTestLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("TEST_DEBUG") != "" {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
