// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Options select the handler and level.
type Options struct {
	Level   slog.Level
	JSON    bool // machine-readable output for log shippers
	NoColor bool
}

// Initialize sets the default slog logger writing to w and returns it.
// Logs go to w, never stdout, so stdio transports stay clean.
func Initialize(w io.Writer, opts Options) *slog.Logger {
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.TimeOnly,
			NoColor:    opts.NoColor,
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("logger initialized", "level", opts.Level, "json", opts.JSON)

	return logger
}

// ParseLevel maps debug, info, warn and error (any case) to a slog.Level.
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
