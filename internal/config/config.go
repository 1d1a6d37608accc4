package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Runner   RunnerConfig   `mapstructure:"runner" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig contains settings for the optional progress HTTP endpoint
// and process-wide logging.
type ServerConfig struct {
	// Port is the listen port for the progress endpoint. Zero disables the
	// endpoint entirely.
	Port     int    `mapstructure:"port" validate:"gte=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RunnerConfig contains the scheduling knobs for a run.
type RunnerConfig struct {
	// MaxConcurrencyPerBatch caps the worker pool inside a batch. Zero means
	// unbounded up to the batch size.
	MaxConcurrencyPerBatch int `mapstructure:"max_concurrency_per_batch" validate:"gte=0"`

	// FailurePolicy selects how task failures affect later batches.
	FailurePolicy string `mapstructure:"failure_policy" validate:"required,oneof=fail-fast complete-all"`

	// PerTaskTimeoutMs bounds each task's execution in milliseconds.
	// Zero means no timeout.
	PerTaskTimeoutMs int `mapstructure:"per_task_timeout_ms" validate:"gte=0"`
}

// DatabaseConfig contains settings for optional run persistence.
type DatabaseConfig struct {
	// URL is a Postgres connection string. Empty disables persistence.
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
