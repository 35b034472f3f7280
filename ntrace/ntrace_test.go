package ntrace_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/muir/napi/nconfig"
	"github.com/muir/napi/ntrace"
	"github.com/muir/napi/nvelope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledIsNoop(t *testing.T) {
	p, err := ntrace.Setup(context.Background(), nconfig.HoneycombConfig{APIKey: "key"}, nvelope.NoLogger())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	_, span := p.Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.IsRecording())
	span.End()
	counter, err := p.Meter("test").Int64Counter("requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
	assert.NoError(t, p.Shutdown(context.Background()))
}

// collector stands in for Honeycomb and records what was posted.
type collector struct {
	lock  sync.Mutex
	paths map[string]string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	c.lock.Lock()
	c.paths[r.URL.Path] = r.Header.Get("x-honeycomb-team")
	c.lock.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestEnabledExports(t *testing.T) {
	c := &collector{paths: make(map[string]string)}
	server := httptest.NewServer(c)
	defer server.Close()

	p, err := ntrace.Setup(context.Background(), nconfig.HoneycombConfig{
		APIKey:         "key",
		ServiceName:    "notes",
		Endpoint:       server.URL + "/v1/traces",
		BatchDelay:     time.Second,
		MetricInterval: time.Hour,
	}, nvelope.NoLogger())
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	ctx, span := p.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
	counter, err := p.Meter("test").Int64Counter("requests")
	require.NoError(t, err)
	counter.Add(ctx, 1)
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx), "shutdown flushes both")

	c.lock.Lock()
	defer c.lock.Unlock()
	assert.Equal(t, map[string]string{
		"/v1/traces":  "key",
		"/v1/metrics": "key",
	}, c.paths)
}
