package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/muir/napi/nconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLoggerFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var stderr bytes.Buffer
	zlog := openLogger(nconfig.LogConfig{
		Level:   "info",
		Outputs: []string{filepath.Join(blocker, "logs", "notes.log")},
	}, &stderr)
	require.NotNil(t, zlog)
	assert.Contains(t, stderr.String(), "notes: cannot open configured logs, using stderr")
	assert.Contains(t, stderr.String(), "error=log directory for")

	zlog.Info("listening")
	assert.Contains(t, stderr.String(), "listening")
}
