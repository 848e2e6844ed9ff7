package forecast

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"airwatch/internal/types"
)

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("forecast dispatcher closed")

// Result is a forecast tagged with the generation it was dispatched under.
type Result struct {
	Generation uint64
	Forecast   types.Forecast
}

// DeliverFunc receives results that are still current. Calls are serialised.
type DeliverFunc func(Result)

// Dispatcher runs forecasts on goroutines and drops results that a newer
// dispatch has superseded.
type Dispatcher struct {
	forecaster *Forecaster
	logger     *slog.Logger

	mu     sync.Mutex
	latest uint64
	closed bool

	deliverMu sync.Mutex
	delivered uint64

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher backed by forecaster.
func NewDispatcher(forecaster *Forecaster, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{forecaster: forecaster, logger: logger}
}

// Dispatch starts a forecast and returns its generation immediately. deliver
// is invoked at most once, and only if no newer generation has been
// dispatched by the time the computation completes. Cancelling ctx does not
// stop an in-flight computation.
func (d *Dispatcher) Dispatch(ctx context.Context, current types.PollutionReading, history []types.PollutionReading, profile types.HealthProfile, deliver DeliverFunc) (uint64, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrDispatcherClosed
	}
	d.latest++
	gen := d.latest
	d.wg.Add(1)
	d.mu.Unlock()

	hist := make([]types.PollutionReading, len(history))
	copy(hist, history)
	bg := context.WithoutCancel(ctx)

	go func() {
		defer d.wg.Done()
		fc := d.forecaster.Forecast(bg, current, hist, profile)
		d.deliver(bg, Result{Generation: gen, Forecast: fc}, deliver)
	}()

	return gen, nil
}

func (d *Dispatcher) deliver(ctx context.Context, res Result, fn DeliverFunc) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	if res.Generation != d.Latest() || res.Generation <= d.delivered {
		d.logger.DebugContext(ctx, "discarding stale forecast",
			"generation", res.Generation,
			"latest", d.Latest(),
		)
		return
	}
	d.delivered = res.Generation
	if fn != nil {
		fn(res)
	}
}

// Latest returns the newest dispatched generation.
func (d *Dispatcher) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

// Close rejects further dispatches and waits for in-flight forecasts.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
