package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used across packages.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Sync() error
}

// Config selects the log level and output encoding
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a zap-backed logger writing to stderr
func New(cfg Config) (Logger, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		zcfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	base, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return FromZap(base), nil
}

// FromZap wraps an existing zap logger. Caller annotations point at the
// code calling Logger, not at this wrapper.
func FromZap(l *zap.Logger) Logger {
	return &zapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *zapLogger) Debug(msg string, fields ...any) { l.sugar.Debugw(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }
func (l *zapLogger) Sync() error                     { return l.sugar.Sync() }

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Sync() error          { return nil }

// Ensure returns l, or a NopLogger when l is nil
func Ensure(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
