package nlog_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muir/napi/nconfig"
	"github.com/muir/napi/nlog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notes.log")
	log, err := nlog.New(nconfig.LogConfig{
		Level:   "warn",
		Format:  "json",
		Outputs: []string{path},
	})
	require.NoError(t, err)
	log.Info("hidden")
	log.Warn("shown", zap.Int("status", 404))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, float64(404), entry["status"])
}

func TestRotatedOutput(t *testing.T) {
	dir := t.TempDir()
	rotated := filepath.Join(dir, "rotated.log")
	log, err := nlog.New(nconfig.LogConfig{
		Level:   "debug",
		Format:  "json",
		Outputs: []string{filepath.Join(dir, "ignored.log")},
		Rotation: nconfig.RotationConfig{
			Enable:   true,
			Filename: rotated,
		},
	})
	require.NoError(t, err)
	log.Debug("rotating")
	_ = log.Sync()
	data, err := os.ReadFile(rotated)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rotating")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zap.AtomicLevel{
		"debug":   zap.NewAtomicLevelAt(zap.DebugLevel),
		"":        zap.NewAtomicLevelAt(zap.InfoLevel),
		"Warning": zap.NewAtomicLevelAt(zap.WarnLevel),
		"error":   zap.NewAtomicLevelAt(zap.ErrorLevel),
	} {
		got, err := nlog.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want.Level(), got.Level(), in)
	}
	_, err := nlog.ParseLevel("loud")
	assert.Error(t, err)
}

func TestNoColorOutsideTerminals(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{"console", "json"} {
		path := filepath.Join(dir, format+".log")
		log, err := nlog.New(nconfig.LogConfig{
			Level:       "info",
			Format:      format,
			Outputs:     []string{path},
			Development: true,
		})
		require.NoError(t, err, format)
		log.Warn("careful")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err, format)
		assert.Contains(t, string(data), "WARN", format)
		assert.NotContains(t, string(data), "\x1b[", format)
	}
}

func TestFallback(t *testing.T) {
	var buf bytes.Buffer
	log := nlog.Fallback(&buf)
	log.Debug("hidden")
	log.Info("still logging")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "still logging")
}
