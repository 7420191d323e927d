package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestExchangeMetrics_ObserveBatch(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := NewExchangeMetrics(NewMeterProviderWithReader(reader, zap.NewNop()))
	require.NoError(t, err)
	ctx := context.Background()

	m.ObserveBatch(ctx, "products", exchange.Stats{Created: 2, Updated: 3, Failed: 1}, 1500*time.Millisecond)
	m.ObserveBatch(ctx, "products", exchange.Stats{Created: 1}, time.Second)

	metrics := collect(t, reader)
	items := metrics["exchange_items_total"]
	assert.Equal(t, int64(3), sumFor(t, items, AttrBatch.String("products"), AttrOutcome.String("created")))
	assert.Equal(t, int64(3), sumFor(t, items, AttrBatch.String("products"), AttrOutcome.String("updated")))
	assert.Equal(t, int64(1), sumFor(t, items, AttrBatch.String("products"), AttrOutcome.String("failed")))
	assert.Equal(t, int64(0), sumFor(t, items, AttrBatch.String("products"), AttrOutcome.String("skipped")))

	hist, ok := metrics["exchange_batch_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 2.5, hist.DataPoints[0].Sum, 1e-9)
}

func TestExchangeMetrics_Requests(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := NewExchangeMetrics(NewMeterProviderWithReader(reader, zap.NewNop()))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordRequest(ctx, "catalog", "file", "success")
	m.RecordRequest(ctx, "catalog", "file", "success")
	m.RecordRequest(ctx, "sale", "query", "failure")
	m.RecordUpload(ctx, "catalog", 1024)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, metrics["exchange_requests_total"],
		AttrType.String("catalog"), AttrMode.String("file"), AttrResult.String("success")))
	assert.Equal(t, int64(1), sumFor(t, metrics["exchange_requests_total"],
		AttrType.String("sale"), AttrMode.String("query"), AttrResult.String("failure")))
	assert.Equal(t, int64(1024), sumFor(t, metrics["exchange_upload_bytes_total"], AttrType.String("catalog")))
}

func TestMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))

	_, err = NewExchangeMetrics(mp)
	assert.NoError(t, err)
}
