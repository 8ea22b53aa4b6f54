package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		log, err := New(DefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("debug level", func(t *testing.T) {
		log, err := New(Config{Level: "debug", Encoding: "console"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(Config{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel}, // unknown names fall back to info
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}
