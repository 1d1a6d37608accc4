package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and, optionally, a
// config file. Environment variables take precedence over values from config
// files. Returns a populated Config struct or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep the binary usable with zero configuration: no HTTP
	// endpoint, unbounded concurrency, complete-all failure handling.
	v.SetDefault("server.port", 0)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("runner.max_concurrency_per_batch", 0)
	v.SetDefault("runner.failure_policy", "complete-all")
	v.SetDefault("runner.per_task_timeout_ms", 0)
	v.SetDefault("database.url", "")

	// ".dagrun", not "dagrun": the default taskfile is dagrun.yaml and must
	// not be picked up as application config.
	v.SetConfigName(".dagrun")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/dagrun")

	// Environment variables use the DAGRUN_ prefix with underscores in place
	// of dots, e.g. DAGRUN_RUNNER_FAILURE_POLICY.
	v.SetEnvPrefix("DAGRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is a real problem.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
