package forecast

import (
	"math"

	"airwatch/internal/types"
)

// Vec3 is a fixed-length pollutant vector in NO2, PM2.5, O3 order.
type Vec3 [3]float64

// pollutionWeights mirrors the weights used by the risk scorer.
var pollutionWeights = Vec3{0.3, 0.4, 0.3}

func fromReading(r types.PollutionReading) Vec3 {
	return Vec3{r.NO2, r.PM25, r.O3}
}

// mean returns the pointwise average of the readings, summed oldest to newest.
// Callers guarantee len(rs) > 0.
func mean(rs []types.PollutionReading) Vec3 {
	var sum Vec3
	for _, r := range rs {
		sum[0] += r.NO2
		sum[1] += r.PM25
		sum[2] += r.O3
	}
	n := float64(len(rs))
	return Vec3{sum[0] / n, sum[1] / n, sum[2] / n}
}

func (v Vec3) scale(d float64) Vec3 {
	return Vec3{v[0] / d, v[1] / d, v[2] / d}
}

func (v Vec3) sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// dot rounds every product before summing so the compiler cannot fuse the
// multiply-add.
func (v Vec3) dot(o Vec3) float64 {
	s := float64(v[0] * o[0])
	s = s + float64(v[1]*o[1])
	s = s + float64(v[2]*o[2])
	return s
}

func (v Vec3) norm() float64 {
	return math.Sqrt(v.dot(v))
}

// vec32 is the single-precision counterpart used by AcceleratedStrategy.
type vec32 [3]float32

func (v Vec3) to32() vec32 {
	return vec32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func (v vec32) sub(o vec32) vec32 {
	return vec32{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v vec32) dot(o vec32) float32 {
	s := float32(v[0] * o[0])
	s = s + float32(v[1]*o[1])
	s = s + float32(v[2]*o[2])
	return s
}

func (v vec32) norm() float32 {
	return float32(math.Sqrt(float64(v.dot(v))))
}
