package config

import (
	"strings"
	"time"

	"sunflower/pkg/diskusage"
	"sunflower/pkg/queue"
)

const (
	defaultMonitorInterval  = 500 * time.Millisecond
	defaultChangesDoneDelay = 2 * time.Second
	defaultServerAddress    = "127.0.0.1:8080"
	defaultShutdownTimeout  = 10 * time.Second
)

// ApplyDefaults fills zero values. Explicit values are preserved and the log
// level is normalized to lowercase.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = defaultMonitorInterval
	}
	if cfg.Monitor.ChangesDoneDelay == 0 {
		cfg.Monitor.ChangesDoneDelay = defaultChangesDoneDelay
	}

	if cfg.DiskUsage.BatchSize == 0 {
		cfg.DiskUsage.BatchSize = diskusage.DefaultBatchSize
	}

	if cfg.Queue.DefaultName == "" {
		cfg.Queue.DefaultName = queue.DefaultName
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

// GetDefaultConfig returns a configuration with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
