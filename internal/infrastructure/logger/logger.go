package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Logger struct {
	*slog.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() *Config {
	return &Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// ConfigFromEnv reads REGSYNC_DEBUG and REGSYNC_LOG_FORMAT.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	if os.Getenv("REGSYNC_DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	if format := strings.ToLower(os.Getenv("REGSYNC_LOG_FORMAT")); format != "" {
		cfg.Format = format
	}
	return cfg
}

func Init(cfg *Config) {
	once.Do(func() {
		defaultLogger = build(cfg)
	})
}

func build(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}
	return &Logger{slog.New(handler)}
}

// New builds a standalone logger, e.g. for tests that capture output.
func New(cfg *Config) *Logger {
	return build(cfg)
}

func L() *Logger {
	if defaultLogger == nil {
		Init(DefaultConfig())
	}
	return defaultLogger
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

func WithFields(fields ...any) *Logger {
	return L().With(fields...)
}
