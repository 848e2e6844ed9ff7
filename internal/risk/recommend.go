package risk

import "airwatch/internal/types"

// PurifierThreshold is the PM2.5 concentration (µg/m³) above which the
// air-purifier advisory is appended regardless of risk level.
const PurifierThreshold = 100.0

// Advisory texts, grouped by the branch that emits them.
const (
	AdviceStayIndoors      = "Stay indoors and keep windows closed"
	AdviceN95Mask          = "Wear an N95 mask if you must go outside"
	AdviceAvoidExercise    = "Avoid outdoor exercise and physical activities"
	AdviceRescueInhaler    = "Keep your rescue inhaler nearby"
	AdviceAllergyMedicine  = "Take allergy medication as prescribed"
	AdviceLimitOutdoor     = "Limit outdoor activities, especially strenuous exercise"
	AdviceMaskCrowds       = "Consider wearing a mask in crowded outdoor areas"
	AdviceMonitorSymptoms  = "Monitor your symptoms closely"
	AdviceMedicationNearby = "Have your medication accessible"
	AdviceGoodOutdoors     = "Air quality is good for outdoor activities"
	AdviceNormalRoutines   = "Continue normal outdoor routines"
	AdviceMonitorAirDaily  = "Monitor air quality throughout the day"
	AdviceAirPurifier      = "Use air purifiers indoors"
)

// Recommend returns the advisories for a risk level, in display order: the
// base set for the level, then condition-specific advice, then the
// pollutant-triggered purifier advice.
func Recommend(level types.RiskLevel, reading types.PollutionReading, profile types.HealthProfile) []string {
	recs := make([]string, 0, 6)

	switch level {
	case types.RiskHigh:
		recs = append(recs, AdviceStayIndoors, AdviceN95Mask, AdviceAvoidExercise)
		if profile.HasAsthma {
			recs = append(recs, AdviceRescueInhaler)
		}
		if profile.HasAllergies {
			recs = append(recs, AdviceAllergyMedicine)
		}
	case types.RiskMedium:
		recs = append(recs, AdviceLimitOutdoor, AdviceMaskCrowds, AdviceMonitorSymptoms)
		// Allergies alone do not warrant medication advice at medium risk.
		if profile.HasAsthma || profile.HasSensitivity {
			recs = append(recs, AdviceMedicationNearby)
		}
	default:
		recs = append(recs, AdviceGoodOutdoors, AdviceNormalRoutines)
		if profile.HasAsthma || profile.HasAllergies {
			recs = append(recs, AdviceMonitorAirDaily)
		}
	}

	if reading.PM25 > PurifierThreshold {
		recs = append(recs, AdviceAirPurifier)
	}
	return recs
}
