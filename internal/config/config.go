package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains all settings for the generative model integration.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	TextModel    string `mapstructure:"text_model" validate:"required"`
	ImageModel   string `mapstructure:"image_model" validate:"required"`

	// RequestsPerMinute caps the aggregate call rate across all workers.
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"required,gt=0"`
}

// SchedulerConfig contains the worker pool and queue settings.
type SchedulerConfig struct {
	// WorkerCount is the size of the worker pool.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0,lte=32"`

	// WorkerKind selects the backing primitive for pool workers:
	// "shared" multiplexes all workers onto one process-wide runtime,
	// "dedicated" gives each worker its own goroutine.
	WorkerKind string `mapstructure:"worker_kind" validate:"required,oneof=shared dedicated"`

	// InContextKinds lists enrichment kinds that run in the scheduler's own
	// context instead of being dispatched to a worker.
	InContextKinds []string `mapstructure:"in_context_kinds"`
}
