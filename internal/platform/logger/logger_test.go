package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/lorekeep/chronicle-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		configured string
		enabled    slog.Level
		disabled   slog.Level
	}{
		{configured: "debug", enabled: slog.LevelDebug, disabled: slog.LevelDebug - 1},
		{configured: "info", enabled: slog.LevelInfo, disabled: slog.LevelDebug},
		{configured: "warn", enabled: slog.LevelWarn, disabled: slog.LevelInfo},
		{configured: "error", enabled: slog.LevelError, disabled: slog.LevelWarn},
		// Invalid levels fall back to info.
		{configured: "verbose", enabled: slog.LevelInfo, disabled: slog.LevelDebug},
	}

	for _, tc := range tests {
		t.Run(tc.configured, func(t *testing.T) {
			logger := Setup(config.ServerConfig{Port: 8080, LogLevel: tc.configured})
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tc.enabled))
			assert.False(t, logger.Enabled(ctx, tc.disabled))
		})
	}
}

func TestSetupSetsDefault(t *testing.T) {
	logger := Setup(config.ServerConfig{Port: 8080, LogLevel: "warn"})
	assert.Equal(t, logger, slog.Default())
}
