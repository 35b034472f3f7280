// Package ntrace sets up OpenTelemetry tracing and metrics.  Spans
// and metrics are exported to Honeycomb over OTLP/HTTP when an API key
// and service name are configured; otherwise every tracer and meter is
// a no-op.
package ntrace

import (
	"context"
	"net/url"
	"strings"

	"github.com/muir/napi/nconfig"
	"github.com/muir/napi/nvelope"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the tracer and meter providers for the life of the
// process.
type Provider struct {
	provider trace.TracerProvider
	meters   metric.MeterProvider
	sdk      *sdktrace.TracerProvider
	sdkMeter *sdkmetric.MeterProvider
}

// Setup builds a Provider and installs it as the global tracer and
// meter provider.  A missing API key or service name is not an
// error: the result is a no-op Provider and a warning is logged.
func Setup(ctx context.Context, cfg nconfig.HoneycombConfig, log nvelope.BasicLogger) (*Provider, error) {
	if !cfg.Enabled() {
		log.Warn("tracing disabled: HONEYCOMB_API_KEY or HONEYCOMB_SERVICE_NAME not set")
		p := &Provider{
			provider: noop.NewTracerProvider(),
			meters:   metricnoop.NewMeterProvider(),
		}
		otel.SetTracerProvider(p.provider)
		otel.SetMeterProvider(p.meters)
		return p, nil
	}

	headers := map[string]string{
		"x-honeycomb-team":    cfg.APIKey,
		"x-honeycomb-dataset": cfg.ServiceName,
	}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithHeaders(headers)}
	if strings.Contains(cfg.Endpoint, "://") {
		traceOpts = append(traceOpts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		traceOpts = append(traceOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	spans, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create otlp trace exporter")
	}

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithHeaders(headers)}
	metricsURL, err := metricsEndpoint(cfg)
	if err != nil {
		return nil, err
	}
	if metricsURL != "" {
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpointURL(metricsURL))
	} else {
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
	}
	metrics, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create otlp metric exporter")
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans, sdktrace.WithBatchTimeout(cfg.BatchDelay)),
		sdktrace.WithResource(res),
	)
	sdkMeter := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics,
			sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(sdk)
	otel.SetMeterProvider(sdkMeter)
	log.Debug("tracing enabled", map[string]interface{}{
		"endpoint":        cfg.Endpoint,
		"metrics":         metricsURL,
		"service":         cfg.ServiceName,
		"metric_interval": cfg.MetricInterval.String(),
	})
	return &Provider{
		provider: sdk,
		meters:   sdkMeter,
		sdk:      sdk,
		sdkMeter: sdkMeter,
	}, nil
}

// metricsEndpoint is empty when the exporter's default path on the
// Endpoint host applies.
func metricsEndpoint(cfg nconfig.HoneycombConfig) (string, error) {
	if cfg.MetricsEndpoint != "" {
		return cfg.MetricsEndpoint, nil
	}
	if !strings.Contains(cfg.Endpoint, "://") {
		return "", nil
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "honeycomb endpoint %s", cfg.Endpoint)
	}
	u.Path = "/v1/metrics"
	return u.String(), nil
}

// Enabled reports whether spans and metrics are exported.
func (p *Provider) Enabled() bool {
	return p.sdk != nil
}

// Tracer returns a named tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.provider.Tracer(name)
}

// Meter returns a named meter.
func (p *Provider) Meter(name string) metric.Meter {
	return p.meters.Meter(name)
}

// Shutdown flushes buffered spans and metrics.  Both are attempted;
// the first failure is returned.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	if p.sdk != nil {
		err = errors.Wrap(p.sdk.Shutdown(ctx), "shutdown tracing")
	}
	if p.sdkMeter != nil {
		if merr := p.sdkMeter.Shutdown(ctx); merr != nil && err == nil {
			err = errors.Wrap(merr, "shutdown metrics")
		}
	}
	return err
}
