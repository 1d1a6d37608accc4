package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/dagrun/internal/config"
	"github.com/phrazzld/dagrun/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_LevelParsing(t *testing.T) {
	cases := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"ERROR", slog.LevelError, slog.LevelWarn},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{LogLevel: tc.level})
			require.NoError(t, err)
			require.NotNil(t, log)

			assert.True(t, log.Enabled(context.Background(), tc.enabled))
			assert.False(t, log.Enabled(context.Background(), tc.muted))
		})
	}
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := logger.Setup(config.ServerConfig{LogLevel: "verbose"})
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetup_SetsDefault(t *testing.T) {
	log, err := logger.Setup(config.ServerConfig{LogLevel: "warn"})
	require.NoError(t, err)

	assert.Same(t, log, slog.Default())
}

func TestContextRoundTrip(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := logger.WithContext(context.Background(), base)
	assert.Same(t, base, logger.FromContext(ctx))
}

func TestFromContext_MissingLoggerUsesDefault(t *testing.T) {
	got := logger.FromContext(context.Background())
	require.NotNil(t, got)
	assert.Same(t, slog.Default(), got)
}
