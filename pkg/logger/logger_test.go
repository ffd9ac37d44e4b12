package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zap.DebugLevel},
		{"DEBUG", zap.DebugLevel},
		{"warn", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"info", zap.InfoLevel},
		{"", zap.InfoLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "parseLevel(%q)", tt.in)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "")

	opts := OptionsFromEnv()
	assert.Equal(t, "json", opts.Format)
	assert.Equal(t, "info", opts.Level)
}

func TestInit_WritesToFile(t *testing.T) {
	t.Cleanup(Close)
	path := filepath.Join(t.TempDir(), "harness.log")

	require.NoError(t, Init(Options{Format: "json", Level: "debug", File: path}))
	Info("session created: %s", "abc123")
	Debug("debug line")
	assert.NotEqual(t, io.Discard, GetWriter())
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "session created: abc123"), "log file: %s", out)
	assert.True(t, strings.Contains(out, "debug line"), "log file: %s", out)
}

func TestInit_BadFile(t *testing.T) {
	err := Init(Options{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	require.Error(t, err)
}

func TestGetWriter_NoFile(t *testing.T) {
	Set(zap.NewNop())
	assert.Equal(t, io.Discard, GetWriter())
}

func TestLevels_Observed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Debug("d %d", 1)
	Info("i %d", 2)
	Warn("w %d", 3)
	Error("e %d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, "d 1", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, "e 4", entries[3].Message)
}
