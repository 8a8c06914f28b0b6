// Package config loads the agent configuration from a YAML file, applying
// defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adscrub/adscrub/internal/domain"
)

// Defaults. The monitor interval tracks the target's own redraw pace: short
// enough that a popup is suppressed before the user registers it, long
// enough not to busy-loop the X server.
const (
	DefaultTargetExe         = "kakaotalk.exe"
	DefaultMonitorInterval   = 100 * time.Millisecond
	DefaultResolveInterval   = time.Second
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultNotFoundThreshold = 3
)

// Config is the agent configuration.
type Config struct {
	// TargetExe is the executable name of the monitored process.
	TargetExe string `yaml:"target_exe"`

	// MonitorInterval is the suppression cycle cadence.
	MonitorInterval time.Duration `yaml:"monitor_interval"`

	// ResolveInterval is the retry cadence while the target is not running.
	ResolveInterval time.Duration `yaml:"resolve_interval"`

	// HeartbeatInterval is how often the run registry is refreshed.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// NotFoundThreshold is how many consecutive process-not-found cycles
	// send the loop back to resolving.
	NotFoundThreshold int `yaml:"notfound_threshold"`

	// Enabled is the initial suppression toggle.
	Enabled *bool `yaml:"enabled"`

	// LogFile is where the agent writes its log. Empty means the default
	// location under the user cache directory.
	LogFile string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	enabled := true
	return &Config{
		TargetExe:         DefaultTargetExe,
		MonitorInterval:   DefaultMonitorInterval,
		ResolveInterval:   DefaultResolveInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
		NotFoundThreshold: DefaultNotFoundThreshold,
		Enabled:           &enabled,
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(configDir, "adscrub", "config.yaml"), nil
}

// DefaultLogPath returns the standard log file location.
func DefaultLogPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(cacheDir, "adscrub", "agent.log"), nil
}

// Load reads the config at the standard location. A missing file yields the
// defaults.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates a config file. A missing file yields the
// defaults; a malformed one is a *domain.ConfigurationError.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domain.ConfigurationError{
			Detail: fmt.Sprintf("%s: %v", path, err),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SuppressionEnabled resolves the Enabled pointer (nil means on).
func (c *Config) SuppressionEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c *Config) validate() error {
	if c.TargetExe == "" {
		return &domain.ConfigurationError{Detail: "target_exe is empty"}
	}
	if c.MonitorInterval <= 0 {
		return &domain.ConfigurationError{Detail: "monitor_interval must be positive"}
	}
	if c.ResolveInterval <= 0 {
		return &domain.ConfigurationError{Detail: "resolve_interval must be positive"}
	}
	if c.HeartbeatInterval <= 0 {
		return &domain.ConfigurationError{Detail: "heartbeat_interval must be positive"}
	}
	if c.NotFoundThreshold < 1 {
		return &domain.ConfigurationError{Detail: "notfound_threshold must be at least 1"}
	}
	return nil
}
