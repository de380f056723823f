package config

import (
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Push      PushConfig      `mapstructure:"push"      validate:"required"`
}

// ServerConfig contains the settings of the health/ops HTTP listener and
// process-wide logging.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// SchedulerConfig contains the settings of the notification tick loop.
type SchedulerConfig struct {
	// Timezone is the IANA name of the fixed notification timezone in which
	// subscriber window times and last-sent dates are interpreted.
	Timezone string `mapstructure:"timezone" validate:"required"`

	// WorkerCount bounds the per-tick dispatch fan-out.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// DispatchTimeout bounds a single delivery attempt. A timed-out attempt
	// is classified as a transient failure.
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" validate:"required"`

	// TickTimeout bounds one full scheduler tick, including storage work.
	TickTimeout time.Duration `mapstructure:"tick_timeout" validate:"required"`
}

// Location resolves the configured notification timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// PushConfig contains the Web Push transport settings. The VAPID key pair
// identifies this application server to push services; the subscriber is
// the operator contact VAPID requires.
type PushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"  validate:"required"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key" validate:"required"`
	Subscriber      string `mapstructure:"subscriber"        validate:"required"`

	// IconPath is the icon attached to every notification payload.
	IconPath string `mapstructure:"icon_path"`

	// TaskListURL is the deep-link target notifications open when tapped.
	TaskListURL string `mapstructure:"task_list_url" validate:"required"`
}
