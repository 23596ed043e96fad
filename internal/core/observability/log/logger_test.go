package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level Level) (*Logger, *observer.ObservedLogs) {
	atomic := zap.NewAtomicLevelAt(toZapLevel(level))
	core, logs := observer.New(atomic)
	return &Logger{zapLogger: zap.New(core), level: atomic}, logs
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"":        LevelInfo,
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		if in == "debug" || in == "error" {
			assert.Equal(t, in, got.String())
		}
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "level(42)", Level(42).String())
}

func TestFieldsReachZap(t *testing.T) {
	logger, logs := observed(LevelDebug)

	logger.With(String("component", "waves")).Info("wave cleared",
		Int("wave", 2),
		Uint64("spawned", 9),
		Duration("interval", time.Second),
		Bool("last", false),
		Error(errors.New("hud offline")),
		Error(nil),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "waves", fields["component"])
	assert.Equal(t, int64(2), fields["wave"])
	assert.Equal(t, uint64(9), fields["spawned"])
	assert.Equal(t, time.Second, fields["interval"])
	assert.Equal(t, false, fields["last"])
	assert.Equal(t, "hud offline", fields["error"])
}

func TestLevels(t *testing.T) {
	logger, logs := observed(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Log(LevelError, "shown")
	logger.Log(LevelSilent, "never")
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)

	logger.SetLevel(LevelSilent)
	assert.Equal(t, LevelSilent, logger.GetLevel())
	logger.Error("hidden")
	assert.Equal(t, 2, logs.Len())

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())
}

func TestNop(t *testing.T) {
	nop := NewNop()
	nop.Info("discarded")
	assert.NotNil(t, nop.With(String("k", "v")))
	assert.Equal(t, LevelInfo, nop.GetLevel())
}
