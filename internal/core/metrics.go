package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"airwatch/internal/types"
)

// OTelMetrics implements MetricsCollector with an OpenTelemetry histogram.
type OTelMetrics struct {
	latency metric.Float64Histogram
}

// NewOTelMetrics creates the API latency instrument on meter.
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	h, err := meter.Float64Histogram(
		types.MetricAPILatency,
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", types.MetricAPILatency, err)
	}
	return &OTelMetrics{latency: h}, nil
}

// RecordRequest implements MetricsCollector.
func (m *OTelMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.latency.Record(context.Background(), duration.Seconds(), metric.WithAttributes(
		attribute.String(types.AttrMethod, method),
		attribute.String(types.AttrPath, endpoint),
		attribute.String(types.AttrStatus, status),
	))
}
