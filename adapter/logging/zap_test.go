package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	l, err := New("debug", "svc")
	require.NoError(t, err)
	l.Debug("hello", "k", "v")

	_, err = New("loud", "svc")
	assert.Error(t, err)
}

func TestWrap_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	l.Debug("d")
	l.Info("invocation_completed", "variant", "gateway_v2", "status", 200)
	l.Warn("w")
	l.Error("invocation_failed", "stage", "dispatch")

	require.Equal(t, 4, logs.Len())
	entries := logs.All()
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "invocation_completed", entries[1].Message)
	assert.Equal(t, map[string]any{"variant": "gateway_v2", "status": int64(200)}, entries[1].ContextMap())
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "dispatch", entries[3].ContextMap()["stage"])
}
