package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"airwatch/internal/types"
)

// ErrAllChannelsFailed is returned when an alert passed the gate but no
// channel accepted it. The notification timestamp is left untouched so the
// next escalation can retry.
var ErrAllChannelsFailed = errors.New("alert not accepted by any channel")

// Alerter runs the gate for each arriving forecast and, when it fires,
// delivers an alert and records the time.
type Alerter struct {
	gate     *Gate
	store    StateStore
	channels []Channel
	metrics  NotificationMetrics
	logger   types.Logger

	// mu serialises the read-evaluate-write of the notification state.
	mu sync.Mutex
}

// NewAlerter wires an Alerter. metrics may be nil.
func NewAlerter(gate *Gate, store StateStore, channels []Channel, metrics NotificationMetrics, logger types.Logger) *Alerter {
	return &Alerter{
		gate:     gate,
		store:    store,
		channels: channels,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process evaluates the gate for the current level and the forecast. It
// returns the delivered alert, or nil when the gate suppressed it.
func (a *Alerter) Process(ctx context.Context, current types.RiskLevel, fc types.Forecast) (*Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state, _, err := a.store.GetNotificationState(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading notification state: %w", err)
	}

	result, now := a.gate.Evaluate(current, fc.Prediction, state.LastNotified())
	if a.metrics != nil {
		a.metrics.RecordGateDecision(ctx, result.Decision)
	}
	if result.Decision != PolicyDeliverImmediately {
		return nil, nil
	}

	alert := NewAlert(current, fc, now)
	log := a.logger.With("alert_id", alert.ID, "predicted", string(fc.Prediction))

	accepted := 0
	for _, ch := range a.channels {
		start := a.gate.Now()
		err := ch.Deliver(ctx, alert)
		a.record(ctx, ch.Type(), err, a.gate.Now().Sub(start))
		if err != nil {
			log.Error("alert delivery failed", "channel", string(ch.Type()), "error", err.Error())
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return nil, ErrAllChannelsFailed
	}

	if err := a.store.PutNotificationState(ctx, types.NotificationState{LastNotifiedMs: now.UnixMilli()}); err != nil {
		return &alert, fmt.Errorf("saving notification state: %w", err)
	}
	log.Info("alert delivered", "channels", accepted)
	return &alert, nil
}

func (a *Alerter) record(ctx context.Context, ch types.ChannelType, err error, took time.Duration) {
	if a.metrics == nil {
		return
	}
	result := MetricSuccess
	if err != nil {
		result = MetricFailed
	}
	a.metrics.RecordDelivery(ctx, ch, result)
	a.metrics.RecordLatency(ctx, ch, took)
}
