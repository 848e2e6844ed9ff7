// Package forecast predicts the next-step risk level from the current reading
// and a short history of preceding readings.
package forecast

import (
	"context"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"airwatch/internal/risk"
	"airwatch/internal/types"
)

// Fallback confidences for the degenerate paths.
const (
	HeadlessConfidence = 0.6
	FallbackConfidence = 0.5

	// MinHistory is the shortest history the full path accepts.
	MinHistory = 2
)

// Confidence parameters of the full path.
const (
	baseConfidence     = 0.6
	confidencePerPoint = 0.05
	maxBaseConfidence  = 0.95
	spreadOffset       = 0.9
	spreadWeight       = 0.2
)

// Path labels recorded on the forecasts counter.
const (
	PathHeadless = "headless"
	PathFallback = "fallback"
	PathFull     = "full"
)

// Forecaster evaluates Forecast requests. The zero value is not usable; build
// one with NewForecaster.
type Forecaster struct {
	strategy  Strategy
	headless  bool
	logger    *slog.Logger
	meter     metric.Meter
	forecasts metric.Int64Counter
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithHeadless marks the forecaster as running without inference capability.
// Every request then takes the scorer fallback with confidence 0.6.
func WithHeadless() Option {
	return func(f *Forecaster) { f.headless = true }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(f *Forecaster) { f.logger = l }
}

// WithMeter records forecast counts on the given meter instead of the global one.
func WithMeter(m metric.Meter) Option {
	return func(f *Forecaster) { f.meter = m }
}

// NewForecaster builds a Forecaster around strategy. A nil strategy means the
// compute backend is unavailable.
func NewForecaster(strategy Strategy, opts ...Option) *Forecaster {
	f := &Forecaster{
		strategy: strategy,
		logger:   slog.Default(),
		meter:    otel.Meter(types.MeterName),
	}
	for _, opt := range opts {
		opt(f)
	}

	counter, err := f.meter.Int64Counter(types.MetricForecasts)
	if err != nil {
		f.logger.Warn("forecast counter unavailable, path metrics disabled",
			"metric", types.MetricForecasts,
			"error", err,
		)
		counter = noop.Int64Counter{}
	}
	f.forecasts = counter
	return f
}

// StrategyName reports the configured strategy, or "none".
func (f *Forecaster) StrategyName() string {
	if f.strategy == nil {
		return StrategyNone
	}
	return f.strategy.Name()
}

// Forecast predicts the next-step risk. It never fails: when the full path
// cannot run it falls back to the current risk level.
func (f *Forecaster) Forecast(ctx context.Context, current types.PollutionReading, history []types.PollutionReading, profile types.HealthProfile) types.Forecast {
	switch {
	case f.headless:
		f.record(ctx, PathHeadless)
		return types.Forecast{Prediction: risk.Score(current, profile), Confidence: HeadlessConfidence}
	case f.strategy == nil || len(history) < MinHistory:
		f.record(ctx, PathFallback)
		return types.Forecast{Prediction: risk.Score(current, profile), Confidence: FallbackConfidence}
	}

	baseline := mean(history)
	score := f.strategy.Score(fromReading(current), baseline, risk.HealthFactor(profile))

	f.record(ctx, PathFull)
	f.logger.DebugContext(ctx, "forecast computed",
		"strategy", f.strategy.Name(),
		"history", len(history),
		"score", score,
	)

	return types.Forecast{
		Prediction: risk.Classify(score),
		Confidence: confidence(len(history), score),
	}
}

// confidence = min(0.6 + 0.05n, 0.95) * (0.9 + 0.2|score-0.5|)
//
// Each product is rounded before the add so it never fuses into an FMA.
func confidence(n int, score float64) float64 {
	base := math.Min(baseConfidence+float64(float64(n)*confidencePerPoint), maxBaseConfidence)
	spread := spreadOffset + float64(math.Abs(score-0.5)*spreadWeight)
	return base * spread
}

func (f *Forecaster) record(ctx context.Context, path string) {
	f.forecasts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(types.AttrPath, path),
		attribute.String(types.AttrStrategy, f.StrategyName()),
	))
}
