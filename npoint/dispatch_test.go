package npoint_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/muir/napi/ncontract"
	"github.com/muir/napi/npoint"
	"github.com/muir/napi/nshape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name" nshape:"nonempty"`
}

type itemPath struct {
	ID int64 `json:"id" nshape:"fromstring"`
}

type newItem struct {
	Name string `json:"name" nshape:"nonempty"`
}

type missing struct {
	Reason string `json:"reason"`
}

var api = ncontract.New("items").
	AddEndpoint(ncontract.Post("createItem", "/items").
		Body(nshape.MustFor[newItem]()).
		Response(201, nshape.MustFor[item]())).
	AddEndpoint(ncontract.Get("listItems", "/items").
		Response(200, nshape.MustFor[[]item]())).
	AddEndpoint(ncontract.Get("getItem", "/items/:id").
		Path(nshape.MustFor[itemPath]()).
		Response(200, nshape.MustFor[item]()).
		Error(404, "ItemMissing", nshape.MustFor[missing]()).
		SpanAttribute("id", "item.id")).
	AddEndpoint(ncontract.Delete("deleteItem", "/items/:id").
		Path(nshape.MustFor[itemPath]()))

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	lock    sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, fields []map[string]interface{}) {
	l.lock.Lock()
	defer l.lock.Unlock()
	merged := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			merged[k] = v
		}
	}
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: merged})
}

func (l *recordingLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.add("debug", msg, fields)
}
func (l *recordingLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.add("warn", msg, fields)
}
func (l *recordingLogger) Error(msg string, fields ...map[string]interface{}) {
	l.add("error", msg, fields)
}

func (l *recordingLogger) at(level string) []logEntry {
	l.lock.Lock()
	defer l.lock.Unlock()
	var found []logEntry
	for _, e := range l.entries {
		if e.level == level {
			found = append(found, e)
		}
	}
	return found
}

type fixture struct {
	server  *httptest.Server
	log     *recordingLogger
	spans   *tracetest.SpanRecorder
	calls   int
	getItem npoint.HandlerFunc
}

func newFixture(t *testing.T, opts ...npoint.Option) *fixture {
	f := &fixture{
		log:   &recordingLogger{},
		spans: tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.spans))
	f.getItem = func(ctx context.Context, req npoint.Request) (interface{}, error) {
		id := req.Params["id"].(int64)
		switch id {
		case 404:
			return nil, npoint.Fail(404, missing{Reason: "gone"}, nil)
		case 418:
			return nil, npoint.Fail(418, missing{Reason: "teapot"}, nil)
		case 500:
			return nil, fmt.Errorf("database on fire")
		case 501:
			panic("handler bug")
		case 502:
			return map[string]interface{}{"id": id}, nil
		}
		return item{ID: id, Name: "thing"}, nil
	}
	opts = append([]npoint.Option{
		npoint.WithLogger(f.log),
		npoint.WithTracer(tp.Tracer("test")),
	}, opts...)
	d, err := npoint.Bind(api, opts...).
		Handle("createItem", npoint.Typed(func(_ context.Context, _ struct{}, body newItem) (item, error) {
			f.calls++
			return item{ID: 1, Name: body.Name}, nil
		})).
		Handle("listItems", func(context.Context, npoint.Request) (interface{}, error) {
			f.calls++
			return []item(nil), nil
		}).
		Handle("getItem", func(ctx context.Context, req npoint.Request) (interface{}, error) {
			f.calls++
			return f.getItem(ctx, req)
		}).
		Handle("deleteItem", npoint.Typed(func(_ context.Context, p itemPath, _ struct{}) (string, error) {
			f.calls++
			return fmt.Sprintf("deleted %d", p.ID), nil
		})).
		Build()
	require.NoError(t, err)
	f.server = httptest.NewServer(d)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, contentType, body string, header ...string) (int, http.Header, string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, f.server.URL+path, r)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	res, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, res.Header, string(b)
}

func TestBuildRequiresEveryHandler(t *testing.T) {
	_, err := npoint.Bind(api).
		Handle("listItems", func(context.Context, npoint.Request) (interface{}, error) { return nil, nil }).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "createItem")
}

func TestHandlePanics(t *testing.T) {
	h := func(context.Context, npoint.Request) (interface{}, error) { return nil, nil }
	b := npoint.Bind(api).Handle("listItems", h)
	assert.Panics(t, func() { b.Handle("listItems", h) }, "duplicate")
	assert.Panics(t, func() { b.Handle("nope", h) }, "unknown")
}

func TestSuccess(t *testing.T) {
	f := newFixture(t)

	status, header, body := f.do(t, "POST", "/items", "application/json", `{"name":"box"}`)
	assert.Equal(t, 201, status)
	assert.JSONEq(t, `{"id":1,"name":"box"}`, body)
	assert.NotEmpty(t, header.Get(npoint.RequestIDHeader))

	status, _, body = f.do(t, "GET", "/items", "", "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `[]`, body)

	status, _, body = f.do(t, "GET", "/items/7", "", "")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"id":7,"name":"thing"}`, body)

	status, _, body = f.do(t, "DELETE", "/items/7", "", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, `"deleted 7"`, body)

	assert.Equal(t, 4, f.calls)
	assert.Empty(t, f.log.at("warn"))
	assert.Empty(t, f.log.at("error"))
}

func TestRequestInvalid(t *testing.T) {
	f := newFixture(t, npoint.WithMaxBodyBytes(64))
	cases := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		status      int
		details     string
	}{
		{"non-numeric id", "GET", "/items/abc", "", "", 400, "not a number"},
		{"missing field", "POST", "/items", "application/json", `{}`, 400, "name: is missing"},
		{"empty name", "POST", "/items", "application/json", `{"name":""}`, 400, "must not be empty"},
		{"not json", "POST", "/items", "application/json", `{`, 400, "body"},
		{"no body", "POST", "/items", "application/json", "", 400, "body"},
		{"unsupported type", "POST", "/items", "text/csv", `name`, 415, "unsupported"},
		{"too large", "POST", "/items", "application/json", `{"name":"` + strings.Repeat("x", 100) + `"}`, 413, "64 bytes"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			status, _, body := f.do(t, tc.method, tc.path, tc.contentType, tc.body)
			assert.Equal(t, tc.status, status)
			var payload npoint.ErrorPayload
			require.NoError(t, json.Unmarshal([]byte(body), &payload))
			assert.Equal(t, http.StatusText(tc.status), payload.Message)
			assert.Contains(t, payload.Details, tc.details)
		})
	}
	assert.Equal(t, 0, f.calls, "handlers never see invalid requests")
	assert.Len(t, f.log.at("warn"), len(cases))
}

func TestRouteNotFound(t *testing.T) {
	f := newFixture(t)
	for _, rq := range [][2]string{
		{"GET", "/nope"},
		{"PUT", "/items"},
		{"GET", "/items/1/extra"},
		{"GET", "/items/"},
	} {
		status, _, body := f.do(t, rq[0], rq[1], "", "")
		assert.Equal(t, 404, status, rq[0]+" "+rq[1])
		assert.Contains(t, body, "Route not found")
	}
	assert.Equal(t, 0, f.calls)
	warned := f.log.at("warn")
	require.Len(t, warned, 4)
	assert.Equal(t, "route not found", warned[0].msg)
	assert.Equal(t, 404, warned[0].fields["status"])
	assert.Equal(t, "no route for GET /nope", warned[0].fields["error"])
}

func TestDeclaredFailure(t *testing.T) {
	f := newFixture(t)
	status, _, body := f.do(t, "GET", "/items/404", "", "")
	assert.Equal(t, 404, status)
	assert.JSONEq(t, `{"reason":"gone"}`, body)
	assert.Len(t, f.log.at("warn"), 1)
	assert.Empty(t, f.log.at("error"))
}

func TestUnexpectedFailures(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"418", "500", "501", "502"} {
		status, header, body := f.do(t, "GET", "/items/"+id, "", "", npoint.RequestIDHeader, "req-"+id)
		assert.Equal(t, 500, status, id)
		assert.Equal(t, "req-"+id, header.Get(npoint.RequestIDHeader), id)
		var payload npoint.ErrorPayload
		require.NoError(t, json.Unmarshal([]byte(body), &payload), id)
		assert.Equal(t, "Internal server error", payload.Message, id)
		assert.Equal(t, "getItem failed; request id req-"+id, payload.Details, id)
		assert.NotContains(t, body, "fire", "internal detail is not sent to the client")
	}
	errs := f.log.at("error")
	require.Len(t, errs, 4, "one log entry per failure")
	assert.Contains(t, errs[1].fields["error"], "database on fire")
	assert.Equal(t, "getItem", errs[1].fields["operation"])
	assert.Equal(t, "handler bug", errs[2].fields["panic"])
	assert.NotEmpty(t, errs[2].fields["stack"])
}

func TestNegotiation(t *testing.T) {
	f := newFixture(t)
	status, header, body := f.do(t, "POST", "/items", "application/yaml", "name: box\n", "Accept", "application/yaml")
	assert.Equal(t, 201, status)
	assert.Equal(t, "application/yaml", header.Get("Content-Type"))
	assert.Contains(t, body, "name: box")
}

func TestSpans(t *testing.T) {
	f := newFixture(t)
	f.do(t, "GET", "/items/7", "", "")
	f.do(t, "GET", "/items/500", "", "")

	spans := f.spans.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "getItem", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("item.id", 7))
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meters := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f := newFixture(t, npoint.WithMeter(meters.Meter("test")))
	f.do(t, "GET", "/items/7", "", "")
	f.do(t, "GET", "/items/8", "", "")
	f.do(t, "GET", "/items/404", "", "")
	f.do(t, "GET", "/nope", "", "")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	requests, ok := byName[npoint.RequestsMetric].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	counts := make(map[string]int64)
	for _, dp := range requests.DataPoints {
		op, _ := dp.Attributes.Value("operation")
		outcome, _ := dp.Attributes.Value("outcome")
		counts[op.AsString()+"/"+outcome.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{
		"getItem/success":          2,
		"getItem/declared failure": 1,
		"/route not found":         1,
	}, counts)

	duration, ok := byName[npoint.DurationMetric].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var recorded uint64
	for _, dp := range duration.DataPoints {
		recorded += dp.Count
	}
	assert.Equal(t, uint64(4), recorded)
}

func TestMatch(t *testing.T) {
	h := func(context.Context, npoint.Request) (interface{}, error) { return nil, nil }
	d, err := npoint.Bind(api).
		Handle("createItem", h).
		Handle("listItems", h).
		Handle("getItem", h).
		Handle("deleteItem", h).
		Build()
	require.NoError(t, err)

	name, vars, ok := d.Match("GET", "/items/12")
	require.True(t, ok)
	assert.Equal(t, "getItem", name)
	assert.Equal(t, map[string]string{"id": "12"}, vars)

	name, _, ok = d.Match("DELETE", "/items/12")
	require.True(t, ok)
	assert.Equal(t, "deleteItem", name)

	_, _, ok = d.Match("PATCH", "/items/12")
	assert.False(t, ok)
	_, _, ok = d.Match("GET", "/elsewhere")
	assert.False(t, ok)

	route, err := d.Route("getItem")
	require.NoError(t, err)
	u, err := route.URLPath("id", "3")
	require.NoError(t, err)
	assert.Equal(t, "/items/3", u.Path)
}
