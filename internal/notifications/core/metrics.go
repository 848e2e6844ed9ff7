package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"airwatch/internal/types"
)

// Compile-time assertion that OTelNotificationMetrics implements NotificationMetrics.
var _ NotificationMetrics = (*OTelNotificationMetrics)(nil)

// OTelNotificationMetrics records alert pipeline metrics on an OpenTelemetry
// meter.
//
// Instruments:
//   - airwatch.gate.decisions {decision}
//   - airwatch.alert.deliveries {channel, result}
//   - airwatch.alert.delivery.latency (ms) {channel}
type OTelNotificationMetrics struct {
	decisions  metric.Int64Counter
	deliveries metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewOTelNotificationMetrics creates the instruments on meter.
func NewOTelNotificationMetrics(meter metric.Meter) (*OTelNotificationMetrics, error) {
	decisions, err := meter.Int64Counter(types.MetricGateDecisions)
	if err != nil {
		return nil, fmt.Errorf("gate decisions counter: %w", err)
	}
	deliveries, err := meter.Int64Counter(types.MetricDeliveryAttempts)
	if err != nil {
		return nil, fmt.Errorf("deliveries counter: %w", err)
	}
	latency, err := meter.Float64Histogram(types.MetricDeliveryLatency, metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("delivery latency histogram: %w", err)
	}
	return &OTelNotificationMetrics{decisions: decisions, deliveries: deliveries, latency: latency}, nil
}

func (m *OTelNotificationMetrics) RecordGateDecision(ctx context.Context, decision PolicyDecision) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String(types.AttrDecision, string(decision))))
}

func (m *OTelNotificationMetrics) RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult) {
	m.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(types.AttrChannel, string(channel)),
		attribute.String(types.AttrResult, string(result)),
	))
}

func (m *OTelNotificationMetrics) RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration) {
	m.latency.Record(ctx, float64(duration.Microseconds())/1000,
		metric.WithAttributes(attribute.String(types.AttrChannel, string(channel))))
}
