// Package logger is the structured logging layer for pgscope. It wraps
// zerolog behind a small API so the analysis packages never import zerolog
// directly; swapping the backend stays a one-package change.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger emits structured log records.
type Logger struct {
	zl zerolog.Logger
}

// Config selects level, output format, and destination.
type Config struct {
	Level  string // debug, info, warn, error, fatal
	Format string // json, console
	Output io.Writer
}

// DefaultConfig is info-level JSON on stdout.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Output: os.Stdout}
}

// New builds a Logger from cfg; nil means DefaultConfig.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	zerolog.SetGlobalLevel(levelFrom(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if cfg.Format == "console" {
		// Human-readable output for local runs.
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}
	return &Logger{zl: zerolog.New(out).With().Timestamp().Logger()}
}

func levelFrom(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithContext attaches l to ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.zl.WithContext(ctx)
}

// FromContext returns the logger attached to ctx, or a default one.
func FromContext(ctx context.Context) *Logger {
	zl := zerolog.Ctx(ctx)
	if zl.GetLevel() == zerolog.Disabled {
		return New(nil)
	}
	return &Logger{zl: *zl}
}

// Context accumulates fields for a child logger.
type Context struct {
	zc zerolog.Context
}

// With starts a field chain; finish it with Logger().
func (l *Logger) With() *Context {
	return &Context{zc: l.zl.With()}
}

func (c *Context) Str(key, val string) *Context {
	c.zc = c.zc.Str(key, val)
	return c
}

func (c *Context) Int(key string, val int) *Context {
	c.zc = c.zc.Int(key, val)
	return c
}

func (c *Context) Err(err error) *Context {
	c.zc = c.zc.Err(err)
	return c
}

func (c *Context) Any(key string, val any) *Context {
	c.zc = c.zc.Interface(key, val)
	return c
}

func (c *Context) Logger() *Logger {
	return &Logger{zl: c.zc.Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }
func (l *Logger) Fatal(msg string) { l.zl.Fatal().Msg(msg) }

func (l *Logger) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

// ErrorWith logs msg at error level with err and any extra fields.
func (l *Logger) ErrorWith(msg string, err error, fields map[string]any) {
	ev := l.zl.Error().Err(err)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

// package-level logger, replaceable via SetGlobal
var global = New(nil)

// SetGlobal swaps the package-level logger; main does this once after
// loading configuration.
func SetGlobal(l *Logger) { global = l }

func Debug(msg string) { global.Debug(msg) }
func Info(msg string)  { global.Info(msg) }
func Warn(msg string)  { global.Warn(msg) }
func Error(msg string) { global.Error(msg) }
