// Package logging sets up the slog loggers used by weasel.
//
// Loggers carry a component attribute, and the transport adds a conn_id per
// client connection. Attributes naming secrets are redacted. Attributes
// carrying text the user typed (commit, preedit, candidate) are reduced to
// their length unless Config.LogText is set.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	Level  Level
	Format Format

	// Output is one of stdout, stderr, file or both (stderr and file).
	Output   string
	FilePath string

	AddSource bool
	Component string

	// LogText keeps typed text in commit/preedit/candidate attributes.
	LogText bool

	// Writer overrides Output when set.
	Writer io.Writer
}

// DefaultConfig returns the configuration used before settings are loaded.
func DefaultConfig() *Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &Config{
		Level:     LevelInfo,
		Format:    FormatText,
		Output:    "stderr",
		FilePath:  filepath.Join(dir, "weasel", "logs", "weasel.log"),
		Component: "weasel",
	}
}

// Logger is a slog.Logger that may own a log file.
type Logger struct {
	*slog.Logger
	config *Config

	mu   sync.Mutex
	file *os.File
}

var defaultLogger atomic.Pointer[Logger]

// Default returns the process logger, creating a stderr logger on first use.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l, err := New(DefaultConfig())
	if err != nil {
		l = &Logger{Logger: slog.Default(), config: DefaultConfig()}
	}
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	return defaultLogger.Load()
}

// SetDefault installs l as the process logger and as slog's default.
func SetDefault(l *Logger) {
	defaultLogger.Store(l)
	slog.SetDefault(l.Logger)
}

// New creates a logger for cfg. A nil cfg means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Logger{config: cfg}

	w, err := l.output()
	if err != nil {
		return nil, fmt.Errorf("setup log output: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: replaceAttr(cfg.LogText),
	}
	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if cfg.Component != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", cfg.Component)})
	}
	l.Logger = slog.New(h)
	return l, nil
}

func (l *Logger) output() (io.Writer, error) {
	if l.config.Writer != nil {
		return l.config.Writer, nil
	}
	switch out := strings.ToLower(l.config.Output); out {
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(l.config.FilePath), 0o750); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(l.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		if out == "both" {
			return io.MultiWriter(os.Stderr, f), nil
		}
		return f, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.Stderr, nil
	}
}

var secretKeys = []string{
	"password", "secret", "token", "credential", "private",
	"auth", "cookie", "api_key", "apikey", "bearer",
}

var textKeys = map[string]bool{
	"commit": true, "preedit": true, "candidate": true, "candidates": true,
}

// shouldRedact reports whether key names a secret. Session ids and key codes
// are not secrets.
func shouldRedact(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func replaceAttr(logText bool) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch {
		case shouldRedact(a.Key):
			a.Value = slog.StringValue("[REDACTED]")
		case !logText && textKeys[a.Key] && a.Value.Kind() == slog.KindString:
			n := utf8.RuneCountInString(a.Value.String())
			a.Value = slog.StringValue(fmt.Sprintf("[%d chars]", n))
		}
		return a
	}
}

// WithComponent returns a logger tagged with another component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name), config: l.config}
}

// WithConnection returns a logger tagged with an IPC connection id.
func (l *Logger) WithConnection(id string) *Logger {
	return &Logger{Logger: l.Logger.With("conn_id", id), config: l.config}
}

// Close closes the log file. Derived loggers share the file but never own it.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Sync flushes the log file.
func (l *Logger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Sync()
}

// ParseLevel parses debug, info, warn (or warning) and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// ParseFormat parses text or json; empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown log format: %s", s)
}

// LevelString is the inverse of ParseLevel.
func LevelString(level Level) string {
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "info"
}
