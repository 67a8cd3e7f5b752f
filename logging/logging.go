// Package logging builds the zap logger used in production and adapts it
// to the auth.Logger interface.
package logging

import (
	"os"
	"strings"

	auth "github.com/goliatone/go-member-auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string
	Dev   bool
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New returns a development console logger or a JSON production logger
func New(cfg Config) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Adapter satisfies auth.Logger on top of a sugared zap logger
type Adapter struct {
	sugar *zap.SugaredLogger
}

var _ auth.Logger = (*Adapter)(nil)

// NewAdapter wraps logger. The caller skip points log lines at the
// code calling the adapter.
func NewAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Named returns an adapter for a child logger
func (a *Adapter) Named(name string) *Adapter {
	return &Adapter{sugar: a.sugar.Named(name)}
}

func (a *Adapter) Debug(msg string, args ...any) {
	a.sugar.Debugw(msg, args...)
}

func (a *Adapter) Info(msg string, args ...any) {
	a.sugar.Infow(msg, args...)
}

func (a *Adapter) Warn(msg string, args ...any) {
	a.sugar.Warnw(msg, args...)
}

func (a *Adapter) Error(msg string, args ...any) {
	a.sugar.Errorw(msg, args...)
}

// Sync flushes buffered entries
func (a *Adapter) Sync() error {
	return a.sugar.Sync()
}
