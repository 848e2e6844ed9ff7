package core

import (
	"time"

	"airwatch/internal/types"
)

// Cooldown is the minimum spacing between two alerts.
const Cooldown = time.Hour

type transition struct {
	from, to types.RiskLevel
}

// escalations are the only transitions that may trigger an alert.
var escalations = map[transition]bool{
	{types.RiskLow, types.RiskHigh}:    true,
	{types.RiskMedium, types.RiskHigh}: true,
	{types.RiskLow, types.RiskMedium}:  true,
}

// ShouldNotify reports whether moving from current to predicted warrants an
// alert at now. A zero lastNotified means no alert has been sent yet. A
// lastNotified in the future counts as inside the cooldown.
func ShouldNotify(current, predicted types.RiskLevel, lastNotified, now time.Time) bool {
	return evaluate(current, predicted, lastNotified, now).Decision == PolicyDeliverImmediately
}

func evaluate(current, predicted types.RiskLevel, lastNotified, now time.Time) PolicyResult {
	if !lastNotified.IsZero() && now.Sub(lastNotified) < Cooldown {
		return PolicyResult{Decision: PolicySuppress, Reason: "within cooldown of previous alert"}
	}
	if !escalations[transition{current, predicted}] {
		return PolicyResult{Decision: PolicySuppress, Reason: "transition is not an escalation"}
	}
	return PolicyResult{Decision: PolicyDeliverImmediately, Reason: "risk escalation predicted"}
}

// Gate evaluates ShouldNotify against an injected clock.
type Gate struct {
	clock types.Clock
}

// NewGate creates a Gate. A nil clock uses the system clock.
func NewGate(clock types.Clock) *Gate {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Gate{clock: clock}
}

// Evaluate returns the gate decision for the transition together with the
// instant it was decided at, which callers persist as the notify time.
func (g *Gate) Evaluate(current, predicted types.RiskLevel, lastNotified time.Time) (PolicyResult, time.Time) {
	now := g.clock.Now()
	return evaluate(current, predicted, lastNotified, now), now
}

// Now exposes the gate's clock so callers stamp state with the same instant.
func (g *Gate) Now() time.Time { return g.clock.Now() }
