package nvelope_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/muir/napi/nvelope"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFromZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := nvelope.LoggerFromZap(zap.New(core))
	l.Warn("careful", map[string]interface{}{"status": 400})
	l.Error("broken")
	l.Debug("detail", map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2})

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "careful", entries[0].Message)
		assert.Equal(t, int64(400), entries[0].ContextMap()["status"])
		assert.Equal(t, zap.ErrorLevel, entries[1].Level)
		assert.Len(t, entries[2].Context, 2)
	}
	_, ok := l.(nvelope.LogFlusher)
	assert.True(t, ok, "zap logger can be flushed")
}

func TestLoggerFromStd(t *testing.T) {
	var buf bytes.Buffer
	l := nvelope.LoggerFromStd(log.New(&buf, "", 0))
	l.Warn("careful", map[string]interface{}{"status": 400})
	assert.Equal(t, "careful status=400\n", buf.String())
}
