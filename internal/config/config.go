// Package config loads the daemon's layered configuration: built-in
// defaults, then ~/.summ-daemon/config.yaml, then SUMMD_-prefixed
// environment variables, highest precedence last.
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

// Config is the daemon's full runtime configuration.
type Config struct {
	// BaseDir is the per-user root directory (sessions, logs, bin, socket,
	// pidfile all live under it).
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`

	Multiplexer MultiplexerConfig `mapstructure:"multiplexer" yaml:"multiplexer"`

	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" yaml:"reconcile_interval"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
	Retention         time.Duration `mapstructure:"retention" yaml:"retention"`
	StaleThreshold    time.Duration `mapstructure:"stale_threshold" yaml:"stale_threshold"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MultiplexerConfig selects and configures the terminal multiplexer
// backend hosting sessions.
type MultiplexerConfig struct {
	// Backend names the multiplexer adapter to use. Only "tmux" is
	// currently supported.
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Prefix is prepended to every session name the daemon creates, so
	// ListOwned can distinguish its own sessions from unrelated ones.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// MinVersion is the lowest backend version CheckAvailable accepts.
	MinVersion string `mapstructure:"min_version" yaml:"min_version"`
}

// LoggingConfig controls the daemon's own structured logging.
type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	File      string `mapstructure:"file" yaml:"file"`
	MaxSizeMB int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// MetricsConfig controls the optional Prometheus HTTP listener.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// DefaultConfig returns the spec's named defaults, rooted at
// ~/.summ-daemon.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".summ-daemon")

	return &Config{
		BaseDir: base,
		Multiplexer: MultiplexerConfig{
			Backend:    "tmux",
			Prefix:     "summd-",
			MinVersion: "3.0",
		},
		ReconcileInterval: 5 * time.Second,
		CleanupInterval:   time.Hour,
		Retention:         24 * time.Hour,
		StaleThreshold:    120 * time.Second,
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(base, "daemon.log"),
			MaxSizeMB: 50,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9090",
		},
	}
}

// Manager handles configuration loading and saving.
type Manager struct {
	configFile string
	config     *Config
}

// NewManager creates a configuration manager. An empty configFile means
// use the default location, ~/.summ-daemon/config.yaml.
func NewManager(configFile string) *Manager {
	return &Manager{
		configFile: configFile,
		config:     DefaultConfig(),
	}
}

// Load reads configuration from file, creating a commented default file
// if none exists, then layers SUMMD_-prefixed environment variables on
// top and validates the result.
func (m *Manager) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	configPath := m.configFile
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: determining home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, ".summ-daemon", "config.yaml")
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: creating config directory: %w", err)
	}
	v.SetConfigFile(configPath)

	v.SetEnvPrefix("SUMMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// With an explicit SetConfigFile path, viper reports a missing file
		// as a plain not-exist error rather than ConfigFileNotFoundError.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if err := m.writeDefaultConfigFile(configPath); err != nil {
				// A read-only filesystem shouldn't stop the daemon from
				// starting with defaults plus env overrides.
				return m.finish(v)
			}
			if err := v.ReadInConfig(); err != nil {
				return m.finish(v)
			}
		} else {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	return m.finish(v)
}

func (m *Manager) finish(v *viper.Viper) (*Config, error) {
	if err := v.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	m.config.BaseDir = expandHome(m.config.BaseDir)
	m.config.Logging.File = expandHome(m.config.Logging.File)

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return m.config, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

// GetConfig returns the currently loaded configuration.
func (m *Manager) GetConfig() *Config { return m.config }

func (m *Manager) setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("base_dir", d.BaseDir)
	v.SetDefault("multiplexer.backend", d.Multiplexer.Backend)
	v.SetDefault("multiplexer.prefix", d.Multiplexer.Prefix)
	v.SetDefault("multiplexer.min_version", d.Multiplexer.MinVersion)
	v.SetDefault("reconcile_interval", d.ReconcileInterval)
	v.SetDefault("cleanup_interval", d.CleanupInterval)
	v.SetDefault("retention", d.Retention)
	v.SetDefault("stale_threshold", d.StaleThreshold)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
}

func (m *Manager) validate() error {
	if m.config.Multiplexer.Backend != "tmux" {
		return fmt.Errorf("unsupported multiplexer backend %q, only \"tmux\" is supported", m.config.Multiplexer.Backend)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	ok := false
	for _, lvl := range validLevels {
		if m.config.Logging.Level == lvl {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log level %q, must be one of %v", m.config.Logging.Level, validLevels)
	}

	if m.config.ReconcileInterval <= 0 || m.config.CleanupInterval <= 0 || m.config.Retention <= 0 || m.config.StaleThreshold <= 0 {
		return fmt.Errorf("reconcile_interval, cleanup_interval, retention, and stale_threshold must all be positive")
	}

	return nil
}

func (m *Manager) writeDefaultConfigFile(path string) error {
	content := `# summ-daemon configuration.
# Every field below has a built-in default; this file only needs entries
# you want to override. Environment variables with the SUMMD_ prefix
# (dots become underscores, e.g. SUMMD_MULTIPLEXER_PREFIX) take
# precedence over this file.

# Per-user root directory: sessions, logs, bin, the request socket, and
# the pidfile singleton lock all live under it.
base_dir: ~/.summ-daemon

multiplexer:
  # Only tmux is currently supported.
  backend: tmux
  # Prepended to every session name this daemon creates.
  prefix: "summd-"
  # Lowest tmux version CheckAvailable accepts.
  min_version: "3.0"

# How often the reconciliation task recomputes effective status for every
# known session.
reconcile_interval: 5s

# How often the cleanup task sweeps for stopped sessions past retention.
cleanup_interval: 1h

# How long a stopped session's directory is kept before cleanup deletes it.
retention: 24h

# How old a hook-reported idle status can be before it's treated as stale
# (and thus as running, not idle).
stale_threshold: 120s

logging:
  level: info
  file: ~/.summ-daemon/daemon.log
  max_size_mb: 50

metrics:
  enabled: false
  listen_addr: 127.0.0.1:9090
`
	return os.WriteFile(path, []byte(content), 0o644)
}
