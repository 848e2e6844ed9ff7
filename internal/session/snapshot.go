package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"airwatch/internal/dataset"
	"airwatch/internal/risk"
	"airwatch/internal/types"
)

// SnapshotConcurrency bounds the per-location fan-out.
const SnapshotConcurrency = 8

// Marker is one location's state for the map at a time index.
type Marker struct {
	Name    string                 `json:"name"`
	Lat     float64                `json:"lat"`
	Lng     float64                `json:"lng"`
	Reading types.PollutionReading `json:"reading"`
	Value   float64                `json:"value"`
	Band    dataset.Band           `json:"band"`
	Radius  float64                `json:"radius_m"`
	Risk    types.RiskLevel        `json:"risk"`
}

// Snapshot scores every location at idx for the given pollutant and
// profile. Markers keep dataset order.
func (s *Session) Snapshot(ctx context.Context, idx int, pollutant types.Pollutant, profile types.HealthProfile) ([]Marker, error) {
	if idx < 0 || idx >= s.ds.Len() {
		// Surface the dataset's typed range error.
		_, err := s.ds.ReadingAt(&s.ds.Locations[0], idx)
		return nil, err
	}

	markers := make([]Marker, len(s.ds.Locations))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(SnapshotConcurrency)

	for i := range s.ds.Locations {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			loc := &s.ds.Locations[i]
			reading, err := s.ds.ReadingAt(loc, idx)
			if err != nil {
				return err
			}
			value := reading.Value(pollutant)
			markers[i] = Marker{
				Name:    loc.Name,
				Lat:     loc.Lat,
				Lng:     loc.Lng,
				Reading: reading,
				Value:   value,
				Band:    dataset.BandFor(pollutant, value),
				Radius:  dataset.RadiusFor(value),
				Risk:    risk.Score(reading, profile),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return markers, nil
}
