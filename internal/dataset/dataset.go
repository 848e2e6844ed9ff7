// Package dataset loads the static pollution dataset: a fixed set of
// locations, a shared timestamp series, and one value series per pollutant.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/zstd"

	"airwatch/internal/types"
)

// HistoryWindow is how many preceding time steps feed the forecaster.
const HistoryWindow = 3

// ErrEmpty is returned by Check for a dataset without locations.
var ErrEmpty = errors.New("dataset has no locations")

// Series holds the parallel pollutant values of one location.
type Series struct {
	NO2  []float64 `json:"no2" validate:"dive,gte=0"`
	PM25 []float64 `json:"pm25" validate:"dive,gte=0"`
	O3   []float64 `json:"o3" validate:"dive,gte=0"`
}

// Location is one monitoring site.
type Location struct {
	Name string  `json:"name" validate:"required"`
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng  float64 `json:"lng" validate:"gte=-180,lte=180"`
	Data Series  `json:"data"`
}

// Dataset is immutable after Load.
type Dataset struct {
	Timestamps []string   `json:"timestamps" validate:"min=1"`
	Locations  []Location `json:"locations" validate:"min=1,dive"`

	byName map[string]int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var decoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return d
	},
}

// Load reads and validates the dataset at path. Files ending in ".zst" are
// zstd-compressed.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if strings.HasSuffix(path, ".zst") {
		raw, err = decompress(raw)
		if err != nil {
			return nil, err
		}
	}
	return Parse(bytes.NewReader(raw))
}

// Parse decodes and validates an uncompressed JSON dataset.
func Parse(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	d.byName = make(map[string]int, len(d.Locations))
	for i, loc := range d.Locations {
		if _, dup := d.byName[loc.Name]; !dup {
			d.byName[loc.Name] = i
		}
	}
	return &d, nil
}

func decompress(data []byte) ([]byte, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}

func (d *Dataset) validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid dataset: %w", err)
	}
	n := len(d.Timestamps)
	for _, loc := range d.Locations {
		for _, s := range []struct {
			p types.Pollutant
			v []float64
		}{
			{types.PollutantNO2, loc.Data.NO2},
			{types.PollutantPM25, loc.Data.PM25},
			{types.PollutantO3, loc.Data.O3},
		} {
			if len(s.v) != n {
				return fmt.Errorf("invalid dataset: location %q has %d %s values, want %d", loc.Name, len(s.v), s.p, n)
			}
		}
	}
	return nil
}

// Len is the number of time steps.
func (d *Dataset) Len() int { return len(d.Timestamps) }

// DefaultTimeIndex is the initial timeline position, clamped to the dataset.
func (d *Dataset) DefaultTimeIndex() int {
	return d.ClampIndex(4)
}

// ClampIndex limits idx to [0, Len()-1].
func (d *Dataset) ClampIndex(idx int) int {
	return max(0, min(idx, d.Len()-1))
}

func (d *Dataset) checkIndex(idx int) error {
	if idx < 0 || idx >= d.Len() {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationTimeIndex,
			fmt.Sprintf("time index %d out of range", idx), nil,
			map[string]any{"time_index": idx, "max": d.Len() - 1})
	}
	return nil
}

// Location looks a site up by name.
func (d *Dataset) Location(name string) (*Location, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return &d.Locations[i], true
}

// Nearest returns the location closest to (lat, lng) by planar distance on
// the raw coordinates. Ties keep the earlier location.
func (d *Dataset) Nearest(lat, lng float64) *Location {
	best := 0
	bestDist := math.Inf(1)
	for i, loc := range d.Locations {
		dLat, dLng := loc.Lat-lat, loc.Lng-lng
		dist := math.Sqrt(float64(dLat*dLat) + float64(dLng*dLng))
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return &d.Locations[best]
}

// ReadingAt returns the location's reading at idx.
func (d *Dataset) ReadingAt(loc *Location, idx int) (types.PollutionReading, error) {
	if err := d.checkIndex(idx); err != nil {
		return types.PollutionReading{}, err
	}
	return loc.reading(idx), nil
}

// History returns up to HistoryWindow readings before idx, oldest first.
func (d *Dataset) History(loc *Location, idx int) []types.PollutionReading {
	idx = min(idx, d.Len())
	start := max(0, idx-HistoryWindow)
	out := make([]types.PollutionReading, 0, HistoryWindow)
	for i := start; i < idx; i++ {
		out = append(out, loc.reading(i))
	}
	return out
}

func (l *Location) reading(i int) types.PollutionReading {
	return types.PollutionReading{NO2: l.Data.NO2[i], PM25: l.Data.PM25[i], O3: l.Data.O3[i]}
}

// Name implements types.HealthProbe.
func (d *Dataset) Name() string { return "dataset" }

// Check implements types.HealthProbe.
func (d *Dataset) Check(context.Context) error {
	if d == nil || len(d.Locations) == 0 {
		return ErrEmpty
	}
	return nil
}
