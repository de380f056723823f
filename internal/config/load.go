package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optionally a
// config file. Environment variables take precedence over values from
// config files. Returns a populated Config struct or an error if
// loading/validation fails.
//
// Environment variables use the PLANLOOP_ prefix with underscores for
// nesting, e.g. PLANLOOP_DATABASE_URL, PLANLOOP_SCHEDULER_TIMEZONE.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/planloop")

	v.SetEnvPrefix("PLANLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly or Unmarshal never
	// sees their environment values.
	for _, key := range []string{
		"database.url",
		"push.vapid_public_key",
		"push.vapid_private_key",
		"push.subscriber",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	// A missing config file is fine; env-only deployments are supported.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := cfg.Scheduler.Location(); err != nil {
		return nil, fmt.Errorf("config validation failed: unknown timezone %q: %w",
			cfg.Scheduler.Timezone, err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for every setting that has a sensible one.
// Secrets (database URL, VAPID keys) deliberately have no default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.worker_count", 8)
	v.SetDefault("scheduler.dispatch_timeout", 10*time.Second)
	v.SetDefault("scheduler.tick_timeout", 50*time.Second)

	v.SetDefault("push.icon_path", "/icons/icon-192.png")
	v.SetDefault("push.task_list_url", "/tasks")
}
