package types

import (
	"testing"
	"time"
)

func TestRiskLevel_RankOrdering(t *testing.T) {
	if !(RiskLow.Rank() < RiskMedium.Rank() && RiskMedium.Rank() < RiskHigh.Rank()) {
		t.Fatalf("expected low < medium < high, got %d %d %d",
			RiskLow.Rank(), RiskMedium.Rank(), RiskHigh.Rank())
	}
	if RiskLevel("severe").Valid() {
		t.Error("unknown level reported as valid")
	}
}

func TestPollutionReading_Value(t *testing.T) {
	r := PollutionReading{NO2: 1, PM25: 2, O3: 3}
	cases := map[Pollutant]float64{PollutantNO2: 1, PollutantPM25: 2, PollutantO3: 3}
	for p, want := range cases {
		if got := r.Value(p); got != want {
			t.Errorf("Value(%s) = %v, want %v", p, got, want)
		}
	}
	if Pollutant("co").Valid() {
		t.Error("co should not be a valid pollutant")
	}
}

func TestNotificationState_LastNotified(t *testing.T) {
	if !(NotificationState{}).LastNotified().IsZero() {
		t.Error("zero state should report zero time")
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NotificationState{LastNotifiedMs: at.UnixMilli()}
	if !s.LastNotified().Equal(at) {
		t.Errorf("LastNotified() = %v, want %v", s.LastNotified(), at)
	}
}
