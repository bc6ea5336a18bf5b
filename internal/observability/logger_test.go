package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewCLILogger_LevelFollowsVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := NewCLILogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("Discovering repositories...")
	require.NoError(t, logger.Sync())

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "Discovering repositories...")

	buf.Reset()
	logger = NewCLILogger(&buf, true)
	logger.Debug("github api", zap.String("method", "GET"))
	require.NoError(t, logger.Sync())
	require.Contains(t, buf.String(), "DEBUG")
	require.Contains(t, buf.String(), `"method": "GET"`)
}

func TestNewServerLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewServerLogger(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("slow request", zap.Int("status", 200))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "slow request", entry["msg"])
	require.Equal(t, "ghexplorer", entry["service"])
	require.EqualValues(t, 200, entry["status"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"TRACE":   zapcore.DebugLevel,
		" warn ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		require.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}
