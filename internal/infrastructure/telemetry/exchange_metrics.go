package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/exchange/internal/domain/exchange"
)

const exchangeMeterName = "github.com/erp/exchange"

// Attribute keys of exchange metrics.
const (
	AttrBatch   = attribute.Key("exchange.batch")
	AttrOutcome = attribute.Key("exchange.outcome")
	AttrType    = attribute.Key("exchange.type")
	AttrMode    = attribute.Key("exchange.mode")
	AttrResult  = attribute.Key("exchange.result")
)

// ExchangeMetrics records reconciliation and protocol counters.
type ExchangeMetrics struct {
	items         metric.Int64Counter
	batchDuration metric.Float64Histogram
	requests      metric.Int64Counter
	uploadBytes   metric.Int64Counter
}

// NewExchangeMetrics registers the exchange instruments on mp.
func NewExchangeMetrics(mp *MeterProvider) (*ExchangeMetrics, error) {
	meter := mp.Meter(exchangeMeterName)
	m := &ExchangeMetrics{}
	var err error

	if m.items, err = meter.Int64Counter("exchange_items_total",
		metric.WithDescription("Catalog items processed by reconciliation, by outcome"),
		metric.WithUnit("{item}")); err != nil {
		return nil, fmt.Errorf("failed to create exchange_items_total: %w", err)
	}
	if m.batchDuration, err = meter.Float64Histogram("exchange_batch_duration_seconds",
		metric.WithDescription("Duration of one reconciliation batch"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300)); err != nil {
		return nil, fmt.Errorf("failed to create exchange_batch_duration_seconds: %w", err)
	}
	if m.requests, err = meter.Int64Counter("exchange_requests_total",
		metric.WithDescription("Exchange protocol requests, by type, mode and result"),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("failed to create exchange_requests_total: %w", err)
	}
	if m.uploadBytes, err = meter.Int64Counter("exchange_upload_bytes_total",
		metric.WithDescription("Bytes received in uploaded file chunks"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("failed to create exchange_upload_bytes_total: %w", err)
	}
	return m, nil
}

// ObserveBatch records the counters of one reconciliation batch.
func (m *ExchangeMetrics) ObserveBatch(ctx context.Context, batch string, stats exchange.Stats, elapsed time.Duration) {
	outcomes := []struct {
		name  string
		count int
	}{
		{"created", stats.Created},
		{"updated", stats.Updated},
		{"failed", stats.Failed},
		{"skipped", stats.Skipped},
		{"not_found", stats.NotFound},
	}
	for _, o := range outcomes {
		if o.count == 0 {
			continue
		}
		m.items.Add(ctx, int64(o.count), metric.WithAttributes(AttrBatch.String(batch), AttrOutcome.String(o.name)))
	}
	m.batchDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(AttrBatch.String(batch)))
}

// RecordRequest counts one protocol request. result is "success" or
// "failure".
func (m *ExchangeMetrics) RecordRequest(ctx context.Context, kind, mode, result string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		AttrType.String(kind), AttrMode.String(mode), AttrResult.String(result)))
}

// RecordUpload counts received chunk bytes.
func (m *ExchangeMetrics) RecordUpload(ctx context.Context, kind string, bytes int64) {
	m.uploadBytes.Add(ctx, bytes, metric.WithAttributes(AttrType.String(kind)))
}
