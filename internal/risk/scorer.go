// Package risk maps pollutant readings and a health profile to a discrete
// risk level and to the ordered advisories shown alongside it.
package risk

import "airwatch/internal/types"

// NormalizationCeiling divides every concentration before weighting. It is a
// unit normalization, not a regulatory threshold.
const NormalizationCeiling = 200.0

// Pollutant weights. They sum to 1; PM2.5 dominates.
const (
	WeightNO2  = 0.3
	WeightPM25 = 0.4
	WeightO3   = 0.3
)

// Health condition multipliers, applied independently and multiplicatively.
const (
	AsthmaFactor      = 1.5
	AllergyFactor     = 1.3
	SensitivityFactor = 1.4
)

// Classification thresholds. Both are exclusive lower bounds.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// Score returns the risk level for a reading under a health profile.
func Score(reading types.PollutionReading, profile types.HealthProfile) types.RiskLevel {
	return Classify(RiskScore(reading, profile))
}

// RiskScore returns the unclassified score: the normalized weighted pollutant
// sum, amplified by each active health condition in turn.
func RiskScore(reading types.PollutionReading, profile types.HealthProfile) float64 {
	// Explicit conversions keep each step individually rounded.
	score := 0.0
	score = float64(score + float64(reading.NO2/NormalizationCeiling*WeightNO2))
	score = float64(score + float64(reading.PM25/NormalizationCeiling*WeightPM25))
	score = float64(score + float64(reading.O3/NormalizationCeiling*WeightO3))

	if profile.HasAsthma {
		score *= AsthmaFactor
	}
	if profile.HasAllergies {
		score *= AllergyFactor
	}
	if profile.HasSensitivity {
		score *= SensitivityFactor
	}
	return score
}

// HealthFactor returns the product of the active condition multipliers,
// using 1.0 for each inactive condition.
func HealthFactor(profile types.HealthProfile) float64 {
	asthma, allergies, sensitivity := 1.0, 1.0, 1.0
	if profile.HasAsthma {
		asthma = AsthmaFactor
	}
	if profile.HasAllergies {
		allergies = AllergyFactor
	}
	if profile.HasSensitivity {
		sensitivity = SensitivityFactor
	}
	return asthma * allergies * sensitivity
}

// Classify maps a score to a level: above 0.7 is high, above 0.4 is medium,
// anything else (including exactly 0.7 and 0.4) falls to the next level down.
//
// This is the only producer of RiskLevel values in the service.
func Classify(score float64) types.RiskLevel {
	switch {
	case score > HighThreshold:
		return types.RiskHigh
	case score > MediumThreshold:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}
