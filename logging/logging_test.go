package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" INFO ":  zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, levelFromString(in), in)
	}
}

func TestNew(t *testing.T) {
	dev, err := New(Config{Level: "debug", Dev: true})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, prod.Core().Enabled(zapcore.WarnLevel))
}

func TestAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewAdapter(zap.New(core)).Named("auth")

	adapter.Debug("gate denied access", "role", "MEMBER", "required", "ADMIN")
	adapter.Info("login rejected", "reason", "invalid credentials")
	adapter.Warn("activity sink failed")
	adapter.Error("insert failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "auth", entries[0].LoggerName)
	assert.Equal(t, "ADMIN", entries[0].ContextMap()["required"])
	assert.Equal(t, "invalid credentials", entries[1].ContextMap()["reason"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNewAdapterNil(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAdapter(nil).Info("noop")
	})
}
