// internal/telemetry/telemetry.go
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Options selects where spans and metrics go. Exporter and MetricReader win
// over Endpoint; with none of them set both signals stay on the global no-op
// providers.
type Options struct {
	ServiceName  string
	Endpoint     string
	Exporter     sdktrace.SpanExporter
	MetricReader sdkmetric.Reader
}

// Providers holds the SDK providers Setup installed globally.
type Providers struct {
	Traces  *sdktrace.TracerProvider
	Metrics *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Traces != nil {
		errs = append(errs, p.Traces.Shutdown(ctx))
	}
	if p.Metrics != nil {
		errs = append(errs, p.Metrics.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Setup installs global tracer and meter providers. It returns nil when
// telemetry is disabled; callers must Shutdown a non-nil result.
func Setup(ctx context.Context, opts Options) (*Providers, error) {
	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	p := &Providers{}

	exporter := opts.Exporter
	if exporter == nil && opts.Endpoint != "" {
		otlp, err := newOTLPExporter(ctx, opts.Endpoint)
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}
	if exporter != nil {
		p.Traces = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
	}

	reader := opts.MetricReader
	if reader == nil && opts.Endpoint != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(opts.Endpoint))
		if err != nil {
			if p.Traces != nil {
				_ = p.Traces.Shutdown(ctx)
			}
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exp)
	}
	if reader != nil {
		p.Metrics = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
			sdkmetric.WithResource(res),
		)
	}

	if p.Traces == nil && p.Metrics == nil {
		return nil, nil
	}
	if p.Traces != nil {
		otel.SetTracerProvider(p.Traces)
	}
	if p.Metrics != nil {
		otel.SetMeterProvider(p.Metrics)
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return p, nil
}

func newOTLPExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exp, nil
}
