// Package core decides when an escalating forecast deserves an alert and
// fans the alert out to the configured delivery channels.
package core

import (
	"context"
	"time"

	"airwatch/internal/types"
)

// PolicyDecision represents the outcome of a gate evaluation.
type PolicyDecision string

const (
	// PolicyDeliverImmediately indicates the alert should be sent now.
	PolicyDeliverImmediately PolicyDecision = "deliver"

	// PolicySuppress indicates no alert should be sent for this evaluation.
	PolicySuppress PolicyDecision = "suppress"
)

// PolicyResult contains the outcome and the reason for a gate evaluation.
type PolicyResult struct {
	Decision PolicyDecision
	Reason   string
}

// Channel delivers an alert to one destination.
type Channel interface {
	Type() types.ChannelType
	Deliver(ctx context.Context, alert Alert) error
}

// StateStore persists the last-notification timestamp.
type StateStore interface {
	GetNotificationState(ctx context.Context) (types.NotificationState, bool, error)
	PutNotificationState(ctx context.Context, state types.NotificationState) error
}

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
)

// NotificationMetrics abstracts telemetry for the alert pipeline.
type NotificationMetrics interface {
	RecordGateDecision(ctx context.Context, decision PolicyDecision)
	RecordDelivery(ctx context.Context, channel types.ChannelType, result MetricResult)
	RecordLatency(ctx context.Context, channel types.ChannelType, duration time.Duration)
}
