package types

import "time"

// PollutionReading is an immutable snapshot of pollutant concentrations for
// one location at one point in time. All values are in µg/m³.
type PollutionReading struct {
	NO2  float64 `json:"no2" validate:"gte=0"`
	PM25 float64 `json:"pm25" validate:"gte=0"`
	O3   float64 `json:"o3" validate:"gte=0"`
}

// HealthProfile holds the user's self-reported health conditions.
type HealthProfile struct {
	HasAsthma      bool `json:"has_asthma"`
	HasAllergies   bool `json:"has_allergies"`
	HasSensitivity bool `json:"has_sensitivity"`
}

// Forecast is the predicted next-step risk with the forecaster's
// self-reported confidence in [0,1]. It is never persisted.
type Forecast struct {
	Prediction RiskLevel `json:"prediction"`
	Confidence float64   `json:"confidence"`
}

// NotificationState records when the last alert was sent.
// A zero LastNotifiedMs means no alert has ever been sent.
type NotificationState struct {
	LastNotifiedMs int64 `json:"last_notified_ms"`
}

// LastNotified returns the last alert time, or the zero time if none.
func (s NotificationState) LastNotified() time.Time {
	if s.LastNotifiedMs == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.LastNotifiedMs).UTC()
}

// Position is a user-supplied geographic coordinate.
type Position struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}
