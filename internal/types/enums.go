package types

// RiskLevel is the ordinal health-risk category derived from a reading and a
// health profile. Values are produced only by risk.Classify.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank returns the ordinal position of the level (low=0, medium=1, high=2).
// Unknown values rank -1.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

// Valid reports whether l is one of the defined levels.
func (l RiskLevel) Valid() bool { return l.Rank() >= 0 }

// Pollutant identifies one of the tracked pollutant series.
type Pollutant string

const (
	PollutantNO2  Pollutant = "no2"
	PollutantPM25 Pollutant = "pm25"
	PollutantO3   Pollutant = "o3"
)

// AllPollutants lists the pollutants in dataset column order.
var AllPollutants = []Pollutant{PollutantNO2, PollutantPM25, PollutantO3}

// Valid reports whether p names a tracked pollutant.
func (p Pollutant) Valid() bool {
	switch p {
	case PollutantNO2, PollutantPM25, PollutantO3:
		return true
	}
	return false
}

// Value returns the concentration of pollutant p in the reading.
func (r PollutionReading) Value(p Pollutant) float64 {
	switch p {
	case PollutantNO2:
		return r.NO2
	case PollutantO3:
		return r.O3
	default:
		return r.PM25
	}
}

// ForecastStatus reports whether an asynchronous forecast has arrived.
type ForecastStatus string

const (
	ForecastPending ForecastStatus = "pending"
	ForecastReady   ForecastStatus = "ready"
)

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelLog     ChannelType = "log"
	ChannelWebhook ChannelType = "webhook"
)

// Telemetry instrument names. All components MUST use these constants.
const (
	MetricForecasts        = "airwatch.forecasts"
	MetricGateDecisions    = "airwatch.gate.decisions"
	MetricDeliveryAttempts = "airwatch.alert.deliveries"
	MetricDeliveryLatency  = "airwatch.alert.delivery.latency"
	MetricAPILatency       = "airwatch.api.latency"

	AttrPath     = "path"
	AttrStrategy = "strategy"
	AttrDecision = "decision"
	AttrChannel  = "channel"
	AttrResult   = "result"
	AttrMethod   = "method"
	AttrStatus   = "status"

	MeterName = "airwatch"
)
