package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, err := NewLogger(LoggerConfig{
		Level:      "info",
		OutputPath: path,
		Format:     "json",
		Service:    "procurement-engine",
	})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Requisition confirmed")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Requisition confirmed", entry["msg"])
	assert.Equal(t, "procurement-engine", entry["service"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "loud", OutputPath: "stderr", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewLogger_UnwritablePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewLogger(LoggerConfig{OutputPath: filepath.Join(blocker, "nested", "server.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log directory")
}
