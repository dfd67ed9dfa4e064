package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"langclass/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "verbose"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestBuildWritesConsoleAndFile(t *testing.T) {
	cfg := config.Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "langclass.log")

	var console bytes.Buffer
	logger := build(cfg, zapcore.InfoLevel, zapcore.AddSync(&console))
	logger.Debug("hidden")
	logger.Named("train").Info("trained model", zap.String("kind", "tree"), zap.Int("examples", 12))
	require.NoError(t, logger.Sync())

	assert.Contains(t, console.String(), "INFO")
	assert.Contains(t, console.String(), "trained model")
	assert.NotContains(t, console.String(), "hidden")

	raw, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	assert.Equal(t, "trained model", entry["msg"])
	assert.Equal(t, "train", entry["logger"])
	assert.Equal(t, "tree", entry["kind"])
	assert.EqualValues(t, 12, entry["examples"])
}
