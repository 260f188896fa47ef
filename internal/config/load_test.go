package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the settings that have no defaults so Load can succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CHRONICLE_DATABASE_URL", "postgres://localhost:5432/chronicle")
	t.Setenv("CHRONICLE_LLM_GEMINI_API_KEY", "test-api-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.TextModel)
	assert.Equal(t, "imagen-3.0-generate-002", cfg.LLM.ImageModel)
	assert.Equal(t, 30, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, 4, cfg.Scheduler.WorkerCount)
	assert.Equal(t, "shared", cfg.Scheduler.WorkerKind)
	assert.Equal(t, []string{"narrative"}, cfg.Scheduler.InContextKinds)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHRONICLE_SERVER_PORT", "9090")
	t.Setenv("CHRONICLE_SERVER_LOG_LEVEL", "debug")
	t.Setenv("CHRONICLE_SCHEDULER_WORKER_COUNT", "2")
	t.Setenv("CHRONICLE_SCHEDULER_WORKER_KIND", "dedicated")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 2, cfg.Scheduler.WorkerCount)
	assert.Equal(t, "dedicated", cfg.Scheduler.WorkerKind)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing API key fails", key: "CHRONICLE_LLM_GEMINI_API_KEY", value: ""},
		{name: "invalid log level fails", key: "CHRONICLE_SERVER_LOG_LEVEL", value: "verbose"},
		{name: "invalid worker kind fails", key: "CHRONICLE_SCHEDULER_WORKER_KIND", value: "threaded"},
		{name: "zero workers fails", key: "CHRONICLE_SCHEDULER_WORKER_COUNT", value: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
