package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/platinummonkey/ioevents"

// Storage operation outcomes
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// OTelMetrics records backend operations through the OpenTelemetry metrics
// API, exported by the OTLP pipeline InitOTel installs. A nil *OTelMetrics
// records nothing.
type OTelMetrics struct {
	storeOps      metric.Int64Counter
	storeDuration metric.Float64Histogram
}

// NewOTelMetrics creates the instruments on provider, or on the global
// provider when provider is nil
func NewOTelMetrics(provider metric.MeterProvider) (*OTelMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	storeOps, err := meter.Int64Counter(
		"ioevents.cursor_store.operations",
		metric.WithDescription("Cursor store operations by backend, operation and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cursor store counter: %w", err)
	}

	storeDuration, err := meter.Float64Histogram(
		"ioevents.cursor_store.duration",
		metric.WithDescription("Cursor store operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cursor store histogram: %w", err)
	}

	return &OTelMetrics{storeOps: storeOps, storeDuration: storeDuration}, nil
}

// RecordStoreOp records one cursor store call
func (m *OTelMetrics) RecordStoreOp(ctx context.Context, backend, op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("store.backend", backend),
		attribute.String("store.operation", op),
		attribute.String("outcome", outcome),
	)
	m.storeOps.Add(ctx, 1, attrs)
	m.storeDuration.Record(ctx, duration.Seconds(), attrs)
}
