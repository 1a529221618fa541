package logger

import (
	"log/slog"
	"path/filepath"
)

// Builder provides a fluent interface for logger configuration.
type Builder struct {
	config Config
}

// NewBuilder creates a new logger configuration builder seeded with
// defaults rooted at baseDir.
func NewBuilder(baseDir string) *Builder {
	return &Builder{config: DefaultConfig(baseDir)}
}

// WithEnabled enables or disables logging.
func (b *Builder) WithEnabled(enabled bool) *Builder {
	b.config.Enabled = enabled
	return b
}

// WithLevel sets the log level from its string name.
func (b *Builder) WithLevel(level string) *Builder {
	switch level {
	case "debug":
		b.config.Level = slog.LevelDebug
	case "info":
		b.config.Level = slog.LevelInfo
	case "warn":
		b.config.Level = slog.LevelWarn
	case "error":
		b.config.Level = slog.LevelError
	default:
		b.config.Level = slog.LevelInfo
	}
	return b
}

// WithFile sets the log file path directly.
func (b *Builder) WithFile(filePath string) *Builder {
	b.config.FilePath = filePath
	return b
}

// WithFileInDir points the log file at daemon.log inside dir.
func (b *Builder) WithFileInDir(dir string) *Builder {
	b.config.FilePath = filepath.Join(dir, "daemon.log")
	return b
}

// WithMaxSize sets the maximum log file size in MB before rotation.
func (b *Builder) WithMaxSize(sizeMB int64) *Builder {
	b.config.MaxSize = sizeMB
	return b
}

// WithConsole enables mirroring log records to stderr, for foreground runs.
func (b *Builder) WithConsole(console bool) *Builder {
	b.config.Console = console
	return b
}

// WithVerbose enables verbose (debug-level) logging.
func (b *Builder) WithVerbose(verbose bool) *Builder {
	b.config.Verbose = verbose
	if verbose {
		b.config.Level = slog.LevelDebug
	}
	return b
}

// Build creates a new Logger with the configured settings.
func (b *Builder) Build() (*Logger, error) {
	return New(b.config)
}

// GetConfig returns the current configuration.
func (b *Builder) GetConfig() Config {
	return b.config
}

// FromConfig creates a builder from an existing config.
func FromConfig(config Config) *Builder {
	return &Builder{config: config}
}

// QuickSetup provides common logger configurations for the daemon's two
// run modes: under a service manager (file only) and run directly in a
// terminal for debugging (file plus colored console).
type QuickSetup struct{}

// Service returns the configuration used when the daemon runs detached
// under a service manager: file logging only, no console mirror.
func (QuickSetup) Service(baseDir string, verbose bool) *Builder {
	return NewBuilder(baseDir).
		WithEnabled(true).
		WithFileInDir(filepath.Join(baseDir, "logs")).
		WithConsole(false).
		WithVerbose(verbose)
}

// Foreground returns the configuration used when the daemon is started
// directly in a terminal: file logging plus a colored console mirror.
func (QuickSetup) Foreground(baseDir string, verbose bool) *Builder {
	return NewBuilder(baseDir).
		WithEnabled(true).
		WithFileInDir(filepath.Join(baseDir, "logs")).
		WithConsole(true).
		WithVerbose(verbose)
}

// Setup provides quick setup methods.
var Setup QuickSetup
