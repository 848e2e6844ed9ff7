package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"airwatch/internal/types"
)

// AlertTitle is the fixed headline of every alert.
const AlertTitle = "Air Quality Alert"

// Alert is a single escalation notice.
type Alert struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Current    types.RiskLevel `json:"current_level"`
	Predicted  types.RiskLevel `json:"predicted_level"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewAlert builds the alert for a predicted escalation.
func NewAlert(current types.RiskLevel, fc types.Forecast, now time.Time) Alert {
	return Alert{
		ID:         uuid.NewString(),
		Title:      AlertTitle,
		Body:       AlertBody(fc.Prediction),
		Current:    current,
		Predicted:  fc.Prediction,
		Confidence: fc.Confidence,
		CreatedAt:  now.UTC(),
	}
}

// AlertBody renders the alert text for the predicted level.
func AlertBody(predicted types.RiskLevel) string {
	return fmt.Sprintf("%s pollution risk predicted in your area. Check recommendations.",
		strings.ToUpper(string(predicted)))
}
