package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobal(t *testing.T) {
	prevTraces := otel.GetTracerProvider()
	prevMetrics := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTraces)
		otel.SetMeterProvider(prevMetrics)
	})
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Options{ServiceName: "librarydesk"})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSetupExportsSpans(t *testing.T) {
	restoreGlobal(t)
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()

	p, err := Setup(ctx, Options{ServiceName: "librarydesk", Exporter: exporter})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Traces)
	assert.Nil(t, p.Metrics)

	_, span := otel.Tracer("test").Start(ctx, "ledger.borrow")
	span.End()
	require.NoError(t, p.Traces.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.borrow", spans[0].Name)

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "librarydesk", service)

	require.NoError(t, p.Shutdown(ctx))
}

func TestSetupRecordsMetrics(t *testing.T) {
	restoreGlobal(t)
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	p, err := Setup(ctx, Options{ServiceName: "librarydesk", MetricReader: reader})
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Metrics)
	assert.Nil(t, p.Traces)

	borrows, err := otel.Meter("test").Int64Counter("library.borrows")
	require.NoError(t, err)
	borrows.Add(ctx, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	service, _ := rm.Resource.Set().Value("service.name")
	assert.Equal(t, "librarydesk", service.AsString())

	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "library.borrows", m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	require.NoError(t, p.Shutdown(ctx))
}

func TestSetupOTLPEndpoint(t *testing.T) {
	restoreGlobal(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := Setup(ctx, Options{ServiceName: "librarydesk", Endpoint: "http://127.0.0.1:4318"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NotNil(t, p.Traces)
	assert.NotNil(t, p.Metrics)
	// Nothing listens there, so the final metric export fails.
	_ = p.Shutdown(ctx)
}
