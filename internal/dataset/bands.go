package dataset

import "airwatch/internal/types"

// Band is an air-quality category used to colour map markers.
type Band struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var bands = []Band{
	{"Good", "#00e400"},
	{"Moderate", "#ffff00"},
	{"Unhealthy for Sensitive", "#ff7e00"},
	{"Unhealthy", "#ff0000"},
	{"Very Unhealthy", "#8f3f97"},
	{"Hazardous", "#7e0023"},
}

// Lower bounds (µg/m³) of each band, per pollutant.
var bandLimits = map[types.Pollutant][6]float64{
	types.PollutantNO2:  {0, 40, 80, 120, 160, 200},
	types.PollutantPM25: {0, 35, 75, 115, 150, 200},
	types.PollutantO3:   {0, 50, 100, 130, 160, 200},
}

// BandFor returns the highest band whose lower bound value reaches.
func BandFor(p types.Pollutant, value float64) Band {
	limits, ok := bandLimits[p]
	if !ok {
		limits = bandLimits[types.PollutantPM25]
	}
	for i := len(limits) - 1; i >= 0; i-- {
		if value >= limits[i] {
			return bands[i]
		}
	}
	return bands[0]
}

// Marker radius range in metres.
const (
	MinRadius = 15000.0
	MaxRadius = 50000.0
	radiusCap = 200.0
)

// RadiusFor scales a marker between MinRadius and MaxRadius, saturating at
// 200 µg/m³.
func RadiusFor(value float64) float64 {
	n := min(value/radiusCap, 1)
	return MinRadius + n*(MaxRadius-MinRadius)
}
