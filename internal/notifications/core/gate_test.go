package core

import (
	"testing"
	"time"

	"airwatch/internal/types"
)

// mockClock implements types.Clock for deterministic testing.
type mockClock struct {
	now time.Time
}

func (c *mockClock) Now() time.Time { return c.now }

// mockLogger implements types.Logger as a no-op for tests.
type mockLogger struct{}

func (l *mockLogger) Info(msg string, args ...any)  {}
func (l *mockLogger) Error(msg string, args ...any) {}
func (l *mockLogger) Warn(msg string, args ...any)  {}
func (l *mockLogger) With(args ...any) types.Logger { return l }

var gateNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestShouldNotify_Transitions(t *testing.T) {
	levels := []types.RiskLevel{types.RiskLow, types.RiskMedium, types.RiskHigh}
	allowed := map[[2]types.RiskLevel]bool{
		{types.RiskLow, types.RiskHigh}:    true,
		{types.RiskMedium, types.RiskHigh}: true,
		{types.RiskLow, types.RiskMedium}:  true,
	}

	for _, from := range levels {
		for _, to := range levels {
			got := ShouldNotify(from, to, time.Time{}, gateNow)
			want := allowed[[2]types.RiskLevel{from, to}]
			if got != want {
				t.Errorf("ShouldNotify(%s -> %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestShouldNotify_Cooldown(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{"never notified", time.Time{}, true},
		{"30 minutes ago", gateNow.Add(-30 * time.Minute), false},
		{"just under an hour", gateNow.Add(-time.Hour + time.Millisecond), false},
		{"exactly an hour", gateNow.Add(-time.Hour), true},
		{"two hours ago", gateNow.Add(-2 * time.Hour), true},
		{"clock skew into the future", gateNow.Add(10 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(types.RiskLow, types.RiskHigh, tt.last, gateNow); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldNotify_CooldownBeatsEscalation(t *testing.T) {
	// Any transition inside the cooldown is suppressed, allowed or not.
	last := gateNow.Add(-10 * time.Minute)
	for _, pair := range [][2]types.RiskLevel{
		{types.RiskLow, types.RiskHigh},
		{types.RiskMedium, types.RiskHigh},
		{types.RiskLow, types.RiskMedium},
		{types.RiskHigh, types.RiskLow},
	} {
		if ShouldNotify(pair[0], pair[1], last, gateNow) {
			t.Errorf("%s -> %s fired inside cooldown", pair[0], pair[1])
		}
	}
}

func TestGate_EvaluateUsesClock(t *testing.T) {
	clock := &mockClock{now: gateNow}
	g := NewGate(clock)
	last := gateNow.Add(-45 * time.Minute)

	res, at := g.Evaluate(types.RiskMedium, types.RiskHigh, last)
	if !at.Equal(gateNow) {
		t.Errorf("decided at %v, want %v", at, gateNow)
	}
	if res.Decision != PolicySuppress {
		t.Fatalf("expected suppress, got %s", res.Decision)
	}
	if res.Reason != "within cooldown of previous alert" {
		t.Errorf("unexpected reason: %s", res.Reason)
	}

	clock.now = gateNow.Add(20 * time.Minute)
	res, _ = g.Evaluate(types.RiskMedium, types.RiskHigh, last)
	if res.Decision != PolicyDeliverImmediately {
		t.Fatalf("expected deliver, got %s", res.Decision)
	}

	res, _ = g.Evaluate(types.RiskHigh, types.RiskHigh, time.Time{})
	if res.Decision != PolicySuppress || res.Reason != "transition is not an escalation" {
		t.Errorf("unexpected result for high -> high: %+v", res)
	}
}
