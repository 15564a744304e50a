// ABOUTME: Structured logging setup built on log/slog
// ABOUTME: Chooses handler format and level from config or environment
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
	Output io.Writer
}

// NewLogger creates a configured slog.Logger
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// DefaultConfig returns the default logger configuration.
// VISUALIZER_LOG_LEVEL overrides the level (DEBUG, INFO, WARN, ERROR).
func DefaultConfig() Config {
	level := slog.LevelInfo
	if env := os.Getenv("VISUALIZER_LOG_LEVEL"); env != "" {
		if parsed, err := ParseLevel(env); err == nil {
			level = parsed
		}
	}

	return Config{
		Level:  level,
		Format: "text",
	}
}

// ParseLevel converts a level name into a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO", "":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
