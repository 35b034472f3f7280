package npoint

import (
	"github.com/muir/napi/nvelope"
	"github.com/muir/napi/nwire"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// RequestIDHeader carries the request id.  It is echoed on every
// response and generated when the client does not send one.
const RequestIDHeader = "X-Request-Id"

// DefaultMaxBodyBytes limits request bodies unless WithMaxBodyBytes
// says otherwise.
const DefaultMaxBodyBytes = 1 << 20

type options struct {
	log      nvelope.BasicLogger
	tracer   trace.Tracer
	meter    metric.Meter
	formats  *nwire.Registry
	maxBody  int64
	encoders []nvelope.ResponseEncoderFuncArg
}

// Option configures a Binding.
type Option func(*options)

func defaultOptions() options {
	return options{
		log:     nvelope.NoLogger(),
		tracer:  noop.NewTracerProvider().Tracer("npoint"),
		meter:   metricnoop.NewMeterProvider().Meter("npoint"),
		formats: nwire.NewRegistry(),
		maxBody: DefaultMaxBodyBytes,
	}
}

// WithLogger sets where failures are logged.
func WithLogger(log nvelope.BasicLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithTracer sets the tracer that opens one span per request.  The
// default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMeter sets the meter that counts requests and records their
// duration, per operation.  The default is a no-op meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithFormats sets the wire formats accepted for request bodies and
// offered for responses.
func WithFormats(formats *nwire.Registry) Option {
	return func(o *options) {
		o.formats = formats
	}
}

// WithMaxBodyBytes limits the size of request bodies.  Larger
// bodies are rejected with 413.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		o.maxBody = n
	}
}

// WithEncoderOptions passes options through to the
// nvelope.ResponseEncoder.
func WithEncoderOptions(args ...nvelope.ResponseEncoderFuncArg) Option {
	return func(o *options) {
		o.encoders = append(o.encoders, args...)
	}
}
