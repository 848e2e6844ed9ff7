package forecast

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"

	"airwatch/internal/risk"
	"airwatch/internal/types"
)

func newTestForecaster(s Strategy, opts ...Option) *Forecaster {
	opts = append(opts, WithMeter(noopmetric.MeterProvider{}.Meter("test")))
	return NewForecaster(s, opts...)
}

func zeros(n int) []types.PollutionReading {
	return make([]types.PollutionReading, n)
}

func TestForecast_FullPathRisingTrend(t *testing.T) {
	current := types.PollutionReading{NO2: 200, PM25: 200, O3: 200}

	for _, s := range []Strategy{ScalarStrategy{}, AcceleratedStrategy{}} {
		t.Run(s.Name(), func(t *testing.T) {
			fc := newTestForecaster(s).Forecast(context.Background(), current, zeros(2), types.HealthProfile{})

			assert.Equal(t, types.RiskHigh, fc.Prediction)
			assert.InDelta(t, 0.68124, fc.Confidence, 1e-4)
		})
	}
}

func TestForecast_FlatZeroHistoryIsMedium(t *testing.T) {
	fc := newTestForecaster(ScalarStrategy{}).Forecast(context.Background(), types.PollutionReading{}, zeros(2), types.HealthProfile{})

	// sigmoid(0) = 0.5 lands above the medium threshold.
	assert.Equal(t, types.RiskMedium, fc.Prediction)
	assert.InDelta(t, 0.63, fc.Confidence, 1e-12)
}

func TestForecast_Fallbacks(t *testing.T) {
	current := types.PollutionReading{NO2: 100, PM25: 100, O3: 100}
	profile := types.HealthProfile{HasAsthma: true}
	want := risk.Score(current, profile)
	ctx := context.Background()

	t.Run("headless", func(t *testing.T) {
		fc := newTestForecaster(ScalarStrategy{}, WithHeadless()).Forecast(ctx, current, zeros(3), profile)
		assert.Equal(t, types.Forecast{Prediction: want, Confidence: HeadlessConfidence}, fc)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		fc := newTestForecaster(nil).Forecast(ctx, current, zeros(3), profile)
		assert.Equal(t, types.Forecast{Prediction: want, Confidence: FallbackConfidence}, fc)
	})

	t.Run("short history", func(t *testing.T) {
		f := newTestForecaster(ScalarStrategy{})
		assert.Equal(t, FallbackConfidence, f.Forecast(ctx, current, nil, profile).Confidence)
		assert.Equal(t, FallbackConfidence, f.Forecast(ctx, current, zeros(1), profile).Confidence)
		assert.Equal(t, want, f.Forecast(ctx, current, zeros(1), profile).Prediction)
	})
}

func TestForecast_ConfidenceCapped(t *testing.T) {
	history := make([]types.PollutionReading, 12)
	for i := range history {
		history[i] = types.PollutionReading{NO2: 10, PM25: 10, O3: 10}
	}
	fc := newTestForecaster(ScalarStrategy{}).Forecast(context.Background(), types.PollutionReading{NO2: 400, PM25: 400, O3: 400}, history, types.HealthProfile{})

	assert.LessOrEqual(t, fc.Confidence, 0.95)
	assert.Greater(t, fc.Confidence, 0.85)
}

func TestForecast_RandomInputsStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := newTestForecaster(ScalarStrategy{})
	acc := newTestForecaster(AcceleratedStrategy{})
	ctx := context.Background()

	reading := func() types.PollutionReading {
		return types.PollutionReading{NO2: rng.Float64() * 300, PM25: rng.Float64() * 300, O3: rng.Float64() * 300}
	}

	for i := 0; i < 500; i++ {
		current := reading()
		history := make([]types.PollutionReading, rng.Intn(6))
		for j := range history {
			history[j] = reading()
		}
		profile := types.HealthProfile{
			HasAsthma:      rng.Intn(2) == 0,
			HasAllergies:   rng.Intn(2) == 0,
			HasSensitivity: rng.Intn(2) == 0,
		}

		fc := f.Forecast(ctx, current, history, profile)
		require.True(t, fc.Prediction.Valid())
		require.GreaterOrEqual(t, fc.Confidence, 0.0)
		require.LessOrEqual(t, fc.Confidence, 1.0)

		fa := acc.Forecast(ctx, current, history, profile)
		require.True(t, fa.Prediction.Valid())
		require.InDelta(t, fc.Confidence, fa.Confidence, 1e-5)
	}
}

func TestStrategies_AgreeWithinSinglePrecision(t *testing.T) {
	current := Vec3{87, 143, 61}
	baseline := Vec3{60, 95, 70}
	hf := risk.HealthFactor(types.HealthProfile{HasAllergies: true, HasSensitivity: true})

	s := ScalarStrategy{}.Score(current, baseline, hf)
	a := AcceleratedStrategy{}.Score(current, baseline, hf)

	assert.InDelta(t, s, a, 1e-6)
	assert.Equal(t, float64(float32(a)), a)
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("scalar")
	require.NoError(t, err)
	assert.Equal(t, StrategyScalar, s.Name())

	s, err = NewStrategy(" Accelerated ")
	require.NoError(t, err)
	assert.Equal(t, StrategyAccelerated, s.Name())

	s, err = NewStrategy("none")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, StrategyNone, NewForecaster(s).StrategyName())

	_, err = NewStrategy("gpu")
	assert.Error(t, err)
}

// TestForecast_ScalarClosedForm checks the full scalar path bit for bit
// against the formula written out by hand: a mixed three-point history and a
// profile carrying every condition.
func TestForecast_ScalarClosedForm(t *testing.T) {
	current := types.PollutionReading{NO2: 120, PM25: 80, O3: 60}
	history := []types.PollutionReading{
		{NO2: 40, PM25: 30, O3: 20},
		{NO2: 60, PM25: 50, O3: 70},
		{NO2: 100, PM25: 40, O3: 30},
	}
	profile := types.HealthProfile{HasAsthma: true, HasAllergies: true, HasSensitivity: true}

	n := float64(len(history))
	base := [3]float64{
		(history[0].NO2 + history[1].NO2 + history[2].NO2) / n / 200,
		(history[0].PM25 + history[1].PM25 + history[2].PM25) / n / 200,
		(history[0].O3 + history[1].O3 + history[2].O3) / n / 200,
	}
	cur := [3]float64{current.NO2 / 200, current.PM25 / 200, current.O3 / 200}

	d0, d1, d2 := cur[0]-base[0], cur[1]-base[1], cur[2]-base[2]
	trend := math.Sqrt(float64(d0*d0) + float64(d1*d1) + float64(d2*d2))
	weighted := float64(cur[0]*0.3) + float64(cur[1]*0.4) + float64(cur[2]*0.3)

	asthma, allergies, sensitivity := 1.5, 1.3, 1.4
	health := asthma * allergies * sensitivity

	raw := float64(weighted+float64(trend*0.5)) * health
	score := 1 / (1 + math.Exp(-raw))

	points := 3
	confBase := math.Min(0.6+float64(float64(points)*0.05), 0.95)
	confSpread := 0.9 + float64(math.Abs(score-0.5)*0.2)

	// weighted 0.43, trend ~0.348, raw ~1.649
	require.InDelta(t, 0.8388, score, 1e-3)

	want := types.Forecast{Prediction: types.RiskHigh, Confidence: confBase * confSpread}
	got := newTestForecaster(ScalarStrategy{}).Forecast(context.Background(), current, history, profile)

	assert.Equal(t, want, got)
	assert.Equal(t, risk.Classify(score), got.Prediction)
}

type failingMeter struct {
	noopmetric.Meter
}

func (failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument registry closed")
}

func TestNewForecaster_CounterErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	f := NewForecaster(ScalarStrategy{}, WithLogger(logger), WithMeter(failingMeter{}))

	assert.Contains(t, buf.String(), "forecast counter unavailable")
	assert.Contains(t, buf.String(), "instrument registry closed")

	fc := f.Forecast(context.Background(), types.PollutionReading{}, zeros(2), types.HealthProfile{})
	assert.Equal(t, types.RiskMedium, fc.Prediction)
}
