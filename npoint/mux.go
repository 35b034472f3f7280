package npoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/muir/napi/ncontract"
	"github.com/muir/napi/nshape"
	"github.com/muir/napi/nvelope"
	"github.com/muir/napi/nwire"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// Instrument names.  Every point carries the outcome and status
// code, and the operation name when a route matched.
const (
	RequestsMetric = "http.server.requests"
	DurationMetric = "http.server.request.duration"
)

// Dispatcher serves the endpoints of a Contract.  Routes are
// registered with a gorilla mux.Router in contract order so the first
// endpoint that matches wins.
type Dispatcher struct {
	contract *ncontract.Contract
	router   *mux.Router
	log      nvelope.BasicLogger
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
	formats  *nwire.Registry
	encoder  *nvelope.ResponseEncoder
	maxBody  int64
}

var _ http.Handler = &Dispatcher{}

func newDispatcher(c *ncontract.Contract, handlers map[string]HandlerFunc, o options) *Dispatcher {
	d := &Dispatcher{
		contract: c,
		router:   mux.NewRouter(),
		log:      o.log,
		tracer:   o.tracer,
		formats:  o.formats,
		encoder: nvelope.MakeResponseEncoder(
			append([]nvelope.ResponseEncoderFuncArg{nvelope.WithFormats(o.formats)}, o.encoders...)...),
		maxBody: o.maxBody,
	}
	var err error
	d.requests, err = o.meter.Int64Counter(RequestsMetric,
		metric.WithDescription("Requests served"),
		metric.WithUnit("{request}"))
	if err != nil {
		d.log.Warn("cannot create request counter", map[string]interface{}{"error": err.Error()})
		d.requests = metricnoop.Int64Counter{}
	}
	d.duration, err = o.meter.Float64Histogram(DurationMetric,
		metric.WithDescription("Time to serve a request"),
		metric.WithUnit("s"))
	if err != nil {
		d.log.Warn("cannot create duration histogram", map[string]interface{}{"error": err.Error()})
		d.duration = metricnoop.Float64Histogram{}
	}
	// match on the escaped path so that an encoded '/' stays inside
	// its segment
	d.router.UseEncodedPath()
	for _, ep := range c.Endpoints() {
		d.router.
			Methods(ep.Method).
			Path(ep.Template.MuxPath()).
			Name(ep.Name).
			Handler(d.endpointHandler(ep, handlers[ep.Name]))
	}
	d.router.NotFoundHandler = http.HandlerFunc(d.serveNotFound)
	d.router.MethodNotAllowedHandler = http.HandlerFunc(d.serveNotFound)
	return d
}

// ServeHTTP dispatches one request.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

// Contract returns the contract being served.
func (d *Dispatcher) Contract() *ncontract.Contract {
	return d.contract
}

// Route returns the *mux.Route registered for an operation.
func (d *Dispatcher) Route(name string) (*mux.Route, error) {
	route := d.router.Get(name)
	if route == nil {
		return nil, errors.Errorf("no route named '%s'", name)
	}
	return route, nil
}

// Match finds the operation that would serve method and path, along
// with the captured raw path parameters.
func (d *Dispatcher) Match(method, path string) (string, map[string]string, bool) {
	r := &http.Request{
		Method: method,
		URL:    &url.URL{Path: path},
		Header: make(http.Header),
	}
	var m mux.RouteMatch
	if !d.router.Match(r, &m) || m.MatchErr != nil || m.Route == nil {
		return "", nil, false
	}
	vars, err := unescapeVars(m.Vars)
	if err != nil {
		return "", nil, false
	}
	return m.Route.GetName(), vars, true
}

func unescapeVars(vars map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		u, err := url.PathUnescape(v)
		if err != nil {
			return nil, errors.Wrapf(err, "path parameter %s", k)
		}
		out[k] = u
	}
	return out, nil
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func (d *Dispatcher) serveNotFound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := requestID(r)
	dw := nvelope.NewDeferredWriter(w)
	dw.Header().Set(RequestIDHeader, id)
	o := notFound(r.Method, r.URL.Path)
	d.logOutcome(o, map[string]interface{}{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": id,
	})
	d.measure(r.Context(), start, o)
	d.encoder.Encode(dw, r, d.log, o.status, o.body)
}

func (d *Dispatcher) endpointHandler(ep ncontract.Endpoint, h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestID(r)
		ctx, span := d.tracer.Start(r.Context(), ep.Name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("request.id", id),
			))

		dw := nvelope.NewDeferredWriter(w)
		dw.Header().Set(RequestIDHeader, id)
		dw.PreserveHeader()

		o := d.run(ctx, span, ep, h, r, id)
		span.SetAttributes(attribute.Int("http.response.status_code", o.status))
		if o.kind == succeeded {
			span.SetStatus(codes.Ok, "")
		} else {
			span.RecordError(o.err)
			span.SetStatus(codes.Error, o.kind.String())
		}
		span.End()
		d.logOutcome(o, map[string]interface{}{
			"operation":  ep.Name,
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": id,
		})
		d.measure(ctx, start, o, attribute.String("operation", ep.Name))
		d.encoder.Encode(dw, r, d.log, o.status, o.body)
	})
}

func (d *Dispatcher) measure(ctx context.Context, start time.Time, o outcome, attrs ...attribute.KeyValue) {
	set := metric.WithAttributes(append(attrs,
		attribute.String("outcome", o.kind.String()),
		attribute.Int("http.response.status_code", o.status))...)
	d.requests.Add(ctx, 1, set)
	d.duration.Record(ctx, time.Since(start).Seconds(), set)
}

// run is the request pipeline.  Each step either produces the next
// input or ends the request with an outcome.
func (d *Dispatcher) run(ctx context.Context, span trace.Span, ep ncontract.Endpoint, h HandlerFunc, r *http.Request, id string) outcome {
	params, err := d.decodePath(span, ep, mux.Vars(r))
	if err != nil {
		return invalidRequest(err)
	}

	var body interface{}
	if ep.BodyShape != nil {
		body, err = d.decodeBody(ep, r)
		if err != nil {
			return invalidRequest(err)
		}
	}

	req := Request{
		Operation: ep.Name,
		Method:    r.Method,
		Path:      r.URL.Path,
		Params:    params,
		Body:      body,
		Header:    r.Header,
		RequestID: id,
	}
	var result interface{}
	// the panic is logged with the outcome
	err = nvelope.CatchPanic(nvelope.NoLogger(), func() error {
		var err error
		result, err = h(ctx, req)
		return err
	})
	if err != nil {
		return classify(ep, id, err)
	}

	domain, err := nshape.FromGo(result)
	if err != nil {
		return unexpected(ep, id, errors.Wrap(err, "convert response"))
	}
	wire, err := nshape.Encode(ep.ResponseShape, domain)
	if err != nil {
		return unexpected(ep, id, errors.Wrap(err, "response does not match the contract"))
	}
	return outcome{kind: succeeded, status: ep.Status, body: wire}
}

func (d *Dispatcher) decodePath(span trace.Span, ep ncontract.Endpoint, escaped map[string]string) (map[string]interface{}, error) {
	vars, err := unescapeVars(escaped)
	if err != nil {
		return nil, nvelope.BadRequest(err)
	}
	raw := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		raw[k] = v
	}
	decoded, err := nshape.Decode(ep.PathShape, raw)
	if err != nil {
		for k, v := range vars {
			span.SetAttributes(attribute.String(ep.SpanAttribute(k), v))
		}
		return nil, nvelope.BadRequest(errors.Wrap(err, "path"))
	}
	params := decoded.(map[string]interface{})
	for k, v := range params {
		span.SetAttributes(spanAttribute(ep.SpanAttribute(k), v))
	}
	return params, nil
}

func spanAttribute(key string, v interface{}) attribute.KeyValue {
	switch t := v.(type) {
	case int64:
		return attribute.Int64(key, t)
	case float64:
		return attribute.Float64(key, t)
	case bool:
		return attribute.Bool(key, t)
	case string:
		return attribute.String(key, t)
	default:
		return attribute.String(key, fmt.Sprint(t))
	}
}

func (d *Dispatcher) decodeBody(ep ncontract.Endpoint, r *http.Request) (interface{}, error) {
	format, err := d.formats.Lookup(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, nvelope.UnsupportedMediaType(err)
	}
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, d.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nvelope.RequestTooLarge(errors.Errorf("body exceeds %d bytes", d.maxBody))
		}
		return nil, nvelope.BadRequest(errors.Wrap(err, "read body"))
	}
	wire, err := format.Unmarshal(data)
	if err != nil {
		return nil, nvelope.BadRequest(errors.Wrap(err, "body"))
	}
	body, err := nshape.Decode(ep.BodyShape, wire)
	if err != nil {
		return nil, nvelope.BadRequest(errors.Wrap(err, "body"))
	}
	return body, nil
}

// logOutcome writes the single log line for a request.
func (d *Dispatcher) logOutcome(o outcome, fields map[string]interface{}) {
	fields["status"] = o.status
	switch o.kind {
	case succeeded:
		d.log.Debug("handled", fields)
	case requestInvalid, routeNotFound:
		fields["error"] = o.err.Error()
		d.log.Warn(o.kind.String(), fields)
	case declaredFailure:
		fields["error"] = o.err.Error()
		if o.status >= 500 {
			d.log.Error(o.kind.String(), fields)
		} else {
			d.log.Warn(o.kind.String(), fields)
		}
	default:
		fields["error"] = fmt.Sprintf("%+v", o.err)
		if pe, ok := nvelope.AsPanic(o.err); ok {
			fields["panic"] = fmt.Sprint(pe.Value)
			fields["stack"] = string(pe.Stack)
		}
		d.log.Error(o.kind.String(), fields)
	}
}
