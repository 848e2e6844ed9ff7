package forecast

import (
	"fmt"
	"math"
	"strings"
)

// Strategy names accepted by NewStrategy.
const (
	StrategyScalar      = "scalar"
	StrategyAccelerated = "accelerated"
	StrategyNone        = "none"
)

const (
	// NormalizationCeiling scales raw concentrations into the unit range.
	NormalizationCeiling = 200.0
	// TrendWeight is the contribution of the trend magnitude to the raw score.
	TrendWeight = 0.5
)

// Strategy computes the sigmoid risk score of the full forecast path from the
// current reading, the historical baseline (both in µg/m³) and the health
// factor. Implementations must be pure and safe for concurrent use.
type Strategy interface {
	Name() string
	Score(current, baseline Vec3, healthFactor float64) float64
}

// NewStrategy resolves a configured backend name. "none" yields a nil
// Strategy, which makes the Forecaster fall back to the scorer with
// confidence 0.5.
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyScalar, "":
		return ScalarStrategy{}, nil
	case StrategyAccelerated:
		return AcceleratedStrategy{}, nil
	case StrategyNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown forecast backend %q", name)
	}
}

// ScalarStrategy evaluates the forecast in float64.
type ScalarStrategy struct{}

func (ScalarStrategy) Name() string { return StrategyScalar }

func (ScalarStrategy) Score(current, baseline Vec3, healthFactor float64) float64 {
	c := current.scale(NormalizationCeiling)
	b := baseline.scale(NormalizationCeiling)

	trend := c.sub(b).norm()
	weighted := c.dot(pollutionWeights)

	raw := float64(weighted+float64(trend*TrendWeight)) * healthFactor
	return 1 / (1 + math.Exp(-raw))
}

// AcceleratedStrategy reproduces single-precision tensor arithmetic: inputs
// are normalised in float64 and rounded once to float32, and every later
// intermediate is held in float32. Results can differ from ScalarStrategy in
// the last bits, which matters only for scores sitting on a threshold.
type AcceleratedStrategy struct{}

func (AcceleratedStrategy) Name() string { return StrategyAccelerated }

func (AcceleratedStrategy) Score(current, baseline Vec3, healthFactor float64) float64 {
	c := current.scale(NormalizationCeiling).to32()
	b := baseline.scale(NormalizationCeiling).to32()

	trend := c.sub(b).norm()
	weighted := c.dot(pollutionWeights.to32())

	sum := float32(weighted + float32(trend*float32(TrendWeight)))
	raw := float32(sum * float32(healthFactor))
	return float64(float32(1 / (1 + math.Exp(-float64(raw)))))
}
