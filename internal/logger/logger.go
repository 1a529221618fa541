package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// HumanHandler renders log records as colored, single-line console output.
// Used for the daemon's own stderr in foreground/debug mode; file output
// always goes through the JSON handler below regardless of this one.
type HumanHandler struct {
	writer io.Writer
	opts   *slog.HandlerOptions
}

// NewHumanHandler creates a new human-readable handler.
func NewHumanHandler(w io.Writer, opts *slog.HandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &HumanHandler{
		writer: w,
		opts:   opts,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the log record.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(levelColor(r.Level).Sprintf("%-5s", r.Level.String()))
	buf.WriteString(" " + r.Message)

	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "operation", "session_id", "name", "command", "error":
			buf.WriteString(fmt.Sprintf(" [%s=%v]", a.Key, a.Value))
		case "duration_ms":
			if ms := a.Value.Int64(); ms > 0 {
				buf.WriteString(fmt.Sprintf(" (%dms)", ms))
			}
		}
		return true
	})

	buf.WriteString("\n")

	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

// WithAttrs returns a new handler with the given attributes.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// WithGroup returns a new handler with the given group name.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed, color.Bold)
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow)
	case level >= slog.LevelInfo:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgHiBlack)
	}
}

// MultiHandler sends logs to multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler that writes to multiple handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled reports whether any handler handles records at the given level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all handlers that accept its level.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with the given attributes added to all handlers.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: newHandlers}
}

// WithGroup returns a new handler with the given group added to all handlers.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: newHandlers}
}

// Logger wraps slog.Logger with the daemon's logging conventions: JSON to
// file always, optional colored console mirror, size-based rotation.
type Logger struct {
	*slog.Logger
	config Config
	file   *os.File
	mu     sync.RWMutex
}

// Config holds logger configuration.
type Config struct {
	// Enabled controls whether logging is active at all.
	Enabled bool

	// Level sets the minimum log level (debug, info, warn, error).
	Level slog.Level

	// FilePath is the path to the log file.
	FilePath string

	// MaxSize is the maximum size in MB before rotation (0 = no rotation).
	MaxSize int64

	// Console, when true, mirrors log records to stderr in human-readable
	// form in addition to the JSON file. The daemon enables this only when
	// run in the foreground; under a service manager it stays false and
	// only the JSON file is written.
	Console bool

	// Verbose enables debug-level output and source file annotations.
	Verbose bool
}

// DefaultConfig returns sensible logging defaults: file-only, info level,
// under BASE/logs/daemon.log.
func DefaultConfig(baseDir string) Config {
	return Config{
		Enabled:  true,
		Level:    slog.LevelInfo,
		FilePath: filepath.Join(baseDir, "logs", "daemon.log"),
		MaxSize:  10,
		Console:  false,
		Verbose:  false,
	}
}

// New creates a new logger with the given configuration.
func New(config Config) (*Logger, error) {
	if !config.Enabled {
		return &Logger{
			Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
				Level: slog.LevelError + 1,
			})),
			config: config,
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("logger: creating log directory: %w", err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: opening log file: %w", err)
	}

	fileHandlerOpts := &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.Verbose,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	fileHandler := slog.NewJSONHandler(file, fileHandlerOpts)

	var handler slog.Handler = fileHandler
	if config.Console {
		consoleHandler := NewHumanHandler(os.Stderr, &slog.HandlerOptions{Level: config.Level})
		handler = NewMultiHandler(fileHandler, consoleHandler)
	}

	l := &Logger{
		Logger: slog.New(handler),
		config: config,
		file:   file,
	}

	l.Debug("logger initialized",
		"level", config.Level.String(),
		"file", config.FilePath,
		"console", config.Console,
	)

	return l, nil
}

// Close closes the log file if it's open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithSession adds session context to log entries.
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session_id", sessionID),
		config: l.config,
		file:   l.file,
	}
}

// Performance logs a timed operation at debug level.
func (l *Logger) Performance(operation string, start time.Time, attrs ...slog.Attr) {
	duration := time.Since(start)
	allAttrs := append([]slog.Attr{
		slog.String("operation", operation),
		slog.Duration("duration", duration),
		slog.Int64("duration_ms", duration.Milliseconds()),
	}, attrs...)

	l.Logger.LogAttrs(context.Background(), slog.LevelDebug, "performance", allAttrs...)
}

// DebugCommand logs a shelled-out command's invocation, only in verbose mode.
func (l *Logger) DebugCommand(command string, args []string, workingDir string) {
	if l.config.Verbose {
		l.Debug("executing command",
			"command", command,
			"args", args,
			"working_dir", workingDir,
		)
	}
}

// rotateIfNeeded closes and renames the current log file once it crosses
// MaxSize, then reopens a fresh one at the original path. Checked by the
// supervisor's cleanup task, not on every write, since log growth is slow
// relative to the cleanup cadence.
func (l *Logger) rotateIfNeeded() error {
	if l.config.MaxSize <= 0 || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stat, err := l.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < l.config.MaxSize*1024*1024 {
		return nil
	}

	if err := l.file.Close(); err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102-150405")
	rotatedPath := fmt.Sprintf("%s.%s", l.config.FilePath, timestamp)
	if err := os.Rename(l.config.FilePath, rotatedPath); err != nil {
		return err
	}

	newFile, err := os.OpenFile(l.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	l.file = newFile
	return nil
}

// RotateIfNeeded is the exported entry point the supervisor's cleanup task
// calls on its tick.
func (l *Logger) RotateIfNeeded() error {
	return l.rotateIfNeeded()
}

// IsEnabled returns true if logging is enabled.
func (l *Logger) IsEnabled() bool {
	return l.config.Enabled
}
