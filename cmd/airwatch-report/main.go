// Package main implements airwatch-report, a one-shot CLI that evaluates a
// health profile against the pollution dataset and prints a JSON report.
//
// It runs the same session, scoring and forecasting code as the API server
// against an in-memory store, so nothing is persisted.
//
// Usage:
//
//	go run ./cmd/airwatch-report --location=Delhi --asthma
//	go run ./cmd/airwatch-report --lat=51.5 --lng=-0.12 --time-index=2 --pollutant=no2
//	go run ./cmd/airwatch-report --location=London --all --backend=accelerated
//
// DATASET_PATH is read from the environment (or a .env file) when --dataset
// is not given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"airwatch/internal/dataset"
	"airwatch/internal/forecast"
	"airwatch/internal/session"
	"airwatch/internal/store"
	"airwatch/internal/types"
)

const defaultDatasetPath = "data/pollution-data.json"

// options holds the parsed command line.
type options struct {
	datasetPath string
	location    string
	lat, lng    float64
	hasPosition bool
	timeIndex   int
	pollutant   string
	profile     types.HealthProfile
	backend     string
	headless    bool
	all         bool
}

// report is the printed output.
type report struct {
	RunID       string              `json:"run_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Profile     types.HealthProfile `json:"profile"`
	Backend     string              `json:"backend"`
	Assessment  session.Assessment  `json:"assessment"`
	Markers     []session.Marker    `json:"markers,omitempty"`
}

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "airwatch-report: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ds, err := dataset.Load(opts.datasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	pos, err := resolvePosition(ds, opts)
	if err != nil {
		return err
	}

	strategy, err := forecast.NewStrategy(opts.backend)
	if err != nil {
		return err
	}
	fopts := []forecast.Option{forecast.WithLogger(logger)}
	if opts.headless {
		fopts = append(fopts, forecast.WithHeadless())
	}
	forecaster := forecast.NewForecaster(strategy, fopts...)

	sess, err := session.New(ctx, ds, store.NewMemory(), forecast.NewDispatcher(forecaster, logger), nil, logger)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	// Timeline and pollutant first so only the final position change
	// dispatches a forecast that matters.
	idx := ds.DefaultTimeIndex()
	if opts.timeIndex >= 0 {
		idx = opts.timeIndex
	}
	if err := sess.SetTimeIndex(ctx, idx); err != nil {
		sess.Close()
		return err
	}
	if opts.pollutant != "" {
		if err := sess.SetPollutant(types.Pollutant(opts.pollutant)); err != nil {
			sess.Close()
			return err
		}
	}
	if err := sess.SetProfile(ctx, opts.profile); err != nil {
		sess.Close()
		return err
	}
	if err := sess.SetPosition(ctx, pos); err != nil {
		sess.Close()
		return err
	}

	var markers []session.Marker
	if opts.all {
		sel := sess.Selection()
		markers, err = sess.Snapshot(ctx, sel.TimeIndex, sel.Pollutant, opts.profile)
		if err != nil {
			sess.Close()
			return err
		}
	}

	// Close waits for the in-flight forecast to land.
	sess.Close()
	assessment, ok := sess.Current()
	if !ok {
		return errors.New("no assessment produced")
	}

	out := report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Profile:     opts.profile,
		Backend:     forecaster.StrategyName(),
		Assessment:  assessment,
		Markers:     markers,
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("airwatch-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	datasetDefault := os.Getenv("DATASET_PATH")
	if datasetDefault == "" {
		datasetDefault = defaultDatasetPath
	}

	fs.StringVar(&opts.datasetPath, "dataset", datasetDefault, "Path to the pollution dataset (JSON, optionally zstd-compressed)")
	fs.StringVar(&opts.location, "location", "", "Location name; overrides --lat/--lng")
	lat := fs.String("lat", "", "Latitude of the user position")
	lng := fs.String("lng", "", "Longitude of the user position")
	fs.IntVar(&opts.timeIndex, "time-index", -1, "Timeline index (default: dataset default)")
	fs.StringVar(&opts.pollutant, "pollutant", "", "Displayed pollutant: no2, pm25 or o3")
	fs.BoolVar(&opts.profile.HasAsthma, "asthma", false, "Profile has asthma")
	fs.BoolVar(&opts.profile.HasAllergies, "allergies", false, "Profile has allergies")
	fs.BoolVar(&opts.profile.HasSensitivity, "sensitivity", false, "Profile has pollution sensitivity")
	fs.StringVar(&opts.backend, "backend", forecast.StrategyScalar, "Forecast backend: scalar, accelerated or none")
	fs.BoolVar(&opts.headless, "headless", false, "Skip the forecast model and report the current risk")
	fs.BoolVar(&opts.all, "all", false, "Include map markers for every location")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *lat != "" || *lng != "" {
		if *lat == "" || *lng == "" {
			return options{}, errors.New("--lat and --lng must be given together")
		}
		var err error
		if opts.lat, err = parseCoord(*lat, 90); err != nil {
			return options{}, fmt.Errorf("--lat: %w", err)
		}
		if opts.lng, err = parseCoord(*lng, 180); err != nil {
			return options{}, fmt.Errorf("--lng: %w", err)
		}
		opts.hasPosition = true
	}
	if opts.location == "" && !opts.hasPosition {
		return options{}, errors.New("one of --location or --lat/--lng is required")
	}
	return opts, nil
}

func parseCoord(raw string, limit float64) (float64, error) {
	var v float64
	if _, err := fmt.Sscan(raw, &v); err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%v outside [-%v, %v]", v, limit, limit)
	}
	return v, nil
}

// resolvePosition maps --location to that site's coordinates.
func resolvePosition(ds *dataset.Dataset, opts options) (types.Position, error) {
	if opts.location == "" {
		return types.Position{Lat: opts.lat, Lng: opts.lng}, nil
	}
	loc, ok := ds.Location(opts.location)
	if !ok {
		names := make([]string, 0, len(ds.Locations))
		for _, l := range ds.Locations {
			names = append(names, l.Name)
		}
		return types.Position{}, fmt.Errorf("unknown location %q (have %v)", opts.location, names)
	}
	return types.Position{Lat: loc.Lat, Lng: loc.Lng}, nil
}
