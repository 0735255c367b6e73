package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests loading, defaults and validation
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
}

// SetupTest runs before each test
func (s *ConfigTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	// Keep the user's own config out of the tests.
	s.T().Setenv("XDG_CONFIG_HOME", s.tempDir)
}

func (s *ConfigTestSuite) writeConfig(name, content string) string {
	p := filepath.Join(s.tempDir, name)
	s.Require().NoError(os.WriteFile(p, []byte(content), 0o600))
	return p
}

// TestLoadYAML tests explicit values and defaults filling the rest
func (s *ConfigTestSuite) TestLoadYAML() {
	p := s.writeConfig("config.yaml", `
logging:
  level: DEBUG
monitor:
  interval: 250ms
disk_usage:
  batch_size: 10
gio:
  mount_root: /run/user/1000/gvfs
`)

	cfg, err := Load(p)
	s.Require().NoError(err)
	s.Equal("debug", cfg.Logging.Level)
	s.Equal(250*time.Millisecond, cfg.Monitor.Interval)
	s.Equal(defaultChangesDoneDelay, cfg.Monitor.ChangesDoneDelay)
	s.Equal(10, cfg.DiskUsage.BatchSize)
	s.Equal("Default", cfg.Queue.DefaultName)
	s.Equal("/run/user/1000/gvfs", cfg.GIO.MountRoot)
	s.Equal(defaultServerAddress, cfg.Server.Address)
	s.False(cfg.Metrics.Enabled)
}

// TestLoadTOML tests the second file format
func (s *ConfigTestSuite) TestLoadTOML() {
	p := s.writeConfig("config.toml", `
[server]
address = "0.0.0.0:9000"
shutdown_timeout = "3s"

[metrics]
enabled = true
`)

	cfg, err := Load(p)
	s.Require().NoError(err)
	s.Equal("0.0.0.0:9000", cfg.Server.Address)
	s.Equal(3*time.Second, cfg.Server.ShutdownTimeout)
	s.True(cfg.Metrics.Enabled)
}

// TestNoConfigFile tests the default location may be missing
func (s *ConfigTestSuite) TestNoConfigFile() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(GetDefaultConfig(), cfg)
}

// TestDefaultLocation tests the XDG directory is searched
func (s *ConfigTestSuite) TestDefaultLocation() {
	s.Equal(filepath.Join(s.tempDir, "sunflower", "config.yaml"), GetDefaultConfigPath())

	s.Require().NoError(os.MkdirAll(GetConfigDir(), 0o700))
	s.Require().NoError(os.WriteFile(GetDefaultConfigPath(), []byte("queue:\n  default_name: Main\n"), 0o600))

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal("Main", cfg.Queue.DefaultName)
}

// TestEnvironmentOverrides tests SUNFLOWER_ variables win over the file
func (s *ConfigTestSuite) TestEnvironmentOverrides() {
	p := s.writeConfig("config.yaml", "disk_usage:\n  batch_size: 10\n")
	s.T().Setenv("SUNFLOWER_DISK_USAGE_BATCH_SIZE", "75")
	s.T().Setenv("SUNFLOWER_LOGGING_LEVEL", "warn")

	cfg, err := Load(p)
	s.Require().NoError(err)
	s.Equal(75, cfg.DiskUsage.BatchSize)
	s.Equal("warn", cfg.Logging.Level)
}

// TestInvalidFile tests malformed content is reported
func (s *ConfigTestSuite) TestInvalidFile() {
	p := s.writeConfig("config.yaml", "logging: [unterminated\n")
	_, err := Load(p)
	s.Error(err)
}

// TestValidate tests rejected values
func (s *ConfigTestSuite) TestValidate() {
	s.NoError(Validate(GetDefaultConfig()))

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "verbose"
	s.ErrorContains(Validate(cfg), "Logging.Level")

	cfg = GetDefaultConfig()
	cfg.DiskUsage.BatchSize = -1
	s.ErrorContains(Validate(cfg), "BatchSize")

	cfg = GetDefaultConfig()
	cfg.Server.Address = "no port"
	s.ErrorContains(Validate(cfg), "Address")

	cfg = GetDefaultConfig()
	cfg.Trash.Dir = "relative/Trash"
	s.ErrorContains(Validate(cfg), "trash.dir")

	p := s.writeConfig("bad.yaml", "monitor:\n  interval: -1s\n")
	_, err := Load(p)
	s.ErrorContains(err, "configuration validation failed")
}

// TestApplyDefaultsPreservesValues tests explicit values survive
func (s *ConfigTestSuite) TestApplyDefaultsPreservesValues() {
	cfg := &Config{
		Logging:   LoggingConfig{Level: "ERROR"},
		DiskUsage: DiskUsageConfig{BatchSize: 7},
		Queue:     QueueConfig{DefaultName: "Copy"},
	}
	ApplyDefaults(cfg)
	s.Equal("error", cfg.Logging.Level)
	s.Equal(7, cfg.DiskUsage.BatchSize)
	s.Equal("Copy", cfg.Queue.DefaultName)
	s.Equal(defaultMonitorInterval, cfg.Monitor.Interval)
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
