// Package logger provides structured logging functionality for the application.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/dagrun/internal/config"
)

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured JSON logger with the
// appropriate log level and sets it as the default logger for the application.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		// Config validation rejects unknown levels before we get here, but a
		// hand-constructed ServerConfig can still carry one.
		level = slog.LevelInfo

		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(os.Stderr, opts)
	logger := slog.New(handler)

	// Set this logger as the default so slog package functions
	// (slog.Info, slog.Error, ...) use it too.
	slog.SetDefault(logger)

	return logger, nil
}
