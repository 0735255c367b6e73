// Package config loads sunflower settings.
//
// Sources, highest precedence first:
//  1. Environment variables (SUNFLOWER_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SUNFLOWER"

// Config is the complete configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	DiskUsage DiskUsageConfig `mapstructure:"disk_usage"`
	Queue     QueueConfig     `mapstructure:"queue"`
	GIO       GIOConfig       `mapstructure:"gio"`
	Trash     TrashConfig     `mapstructure:"trash"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// MonitorConfig tunes queue-based monitors.
type MonitorConfig struct {
	// Interval between drains of a manual monitor queue.
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
	// ChangesDoneDelay is the quiet period after which changes_done is emitted.
	ChangesDoneDelay time.Duration `mapstructure:"changes_done_delay" validate:"gte=0"`
}

// DiskUsageConfig tunes background size calculations.
type DiskUsageConfig struct {
	BatchSize int `mapstructure:"batch_size" validate:"gt=0"`
}

// QueueConfig names the lane used when an operation does not pick one.
type QueueConfig struct {
	DefaultName string `mapstructure:"default_name" validate:"required"`
}

// GIOConfig locates gvfs FUSE mounts.
type GIOConfig struct {
	MountRoot string `mapstructure:"mount_root"`
}

// TrashConfig locates the home trash.
type TrashConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from configPath (or the default location when
// empty), the environment and defaults, then validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// SUNFLOWER_DISK_USAGE_BATCH_SIZE=100
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about.
	for _, key := range []string{
		"logging.level",
		"monitor.interval",
		"monitor.changes_done_delay",
		"disk_usage.batch_size",
		"queue.default_name",
		"gio.mount_root",
		"trash.dir",
		"server.address",
		"server.shutdown_timeout",
		"metrics.enabled",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(GetConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/sunflower, falling back to
// ~/.config/sunflower and finally the current directory.
func GetConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sunflower")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "sunflower")
}

// GetDefaultConfigPath returns the file Load reads when no path is given.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}
