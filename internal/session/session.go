// Package session holds the single user's selection and recomputes the
// assessment whenever it changes.
//
// Scoring and recommendations run synchronously inside each setter. The
// forecast runs on the dispatcher; when it lands for the newest generation
// it is attached to the assessment and handed to the alerter.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"airwatch/internal/dataset"
	"airwatch/internal/forecast"
	"airwatch/internal/notifications/core"
	"airwatch/internal/risk"
	"airwatch/internal/store"
	"airwatch/internal/types"
)

// Alerter consumes completed forecasts.
type Alerter interface {
	Process(ctx context.Context, current types.RiskLevel, fc types.Forecast) (*core.Alert, error)
}

// Assessment is the latest evaluation for the user's nearest location.
type Assessment struct {
	Location        string                 `json:"location"`
	TimeIndex       int                    `json:"time_index"`
	Timestamp       string                 `json:"timestamp"`
	Reading         types.PollutionReading `json:"reading"`
	Pollutant       types.Pollutant        `json:"pollutant"`
	PollutantValue  float64                `json:"pollutant_value"`
	Risk            types.RiskLevel        `json:"risk"`
	Recommendations []string               `json:"recommendations"`
	ForecastStatus  types.ForecastStatus   `json:"forecast_status"`
	Forecast        *types.Forecast        `json:"forecast,omitempty"`
	Alert           *core.Alert            `json:"alert,omitempty"`
	Generation      uint64                 `json:"generation"`
}

// Selection is the user-controlled view state.
type Selection struct {
	TimeIndex int             `json:"time_index"`
	Pollutant types.Pollutant `json:"pollutant"`
	Position  *types.Position `json:"position,omitempty"`
}

// Session is safe for concurrent use.
type Session struct {
	ds         *dataset.Dataset
	store      store.Store
	dispatcher *forecast.Dispatcher
	alerter    Alerter
	logger     *slog.Logger

	mu        sync.Mutex
	profile   *types.HealthProfile
	position  *types.Position
	timeIndex int
	pollutant types.Pollutant
	current   *Assessment
	closed    bool
}

// New restores the persisted profile and position and, when both exist,
// computes the first assessment. alerter may be nil.
func New(ctx context.Context, ds *dataset.Dataset, st store.Store, dispatcher *forecast.Dispatcher, alerter Alerter, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		ds:         ds,
		store:      st,
		dispatcher: dispatcher,
		alerter:    alerter,
		logger:     logger,
		timeIndex:  ds.DefaultTimeIndex(),
		pollutant:  types.PollutantPM25,
	}

	profile, ok, err := st.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring profile: %w", err)
	}
	if ok {
		s.profile = &profile
	}
	pos, ok, err := st.GetLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring position: %w", err)
	}
	if ok {
		s.position = &pos
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.recompute(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Profile returns the current health profile, if any.
func (s *Session) Profile() (types.HealthProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return types.HealthProfile{}, false
	}
	return *s.profile, true
}

// Selection returns the current view state.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := Selection{TimeIndex: s.timeIndex, Pollutant: s.pollutant}
	if s.position != nil {
		p := *s.position
		sel.Position = &p
	}
	return sel
}

// Current returns a copy of the latest assessment. ok is false until both a
// profile and a position are known.
func (s *Session) Current() (Assessment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Assessment{}, false
	}
	return s.current.clone(), true
}

// SetProfile persists and applies a new health profile.
func (s *Session) SetProfile(ctx context.Context, p types.HealthProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.store.PutProfile(ctx, p); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to save profile", err)
	}
	s.profile = &p
	return s.recompute(ctx)
}

// SetPosition persists and applies the user position.
func (s *Session) SetPosition(ctx context.Context, p types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.store.PutLocation(ctx, p); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to save position", err)
	}
	s.position = &p
	return s.recompute(ctx)
}

// SetTimeIndex moves the timeline. Out-of-range indices are rejected.
func (s *Session) SetTimeIndex(ctx context.Context, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if idx < 0 || idx >= s.ds.Len() {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationTimeIndex,
			fmt.Sprintf("time index %d out of range", idx), nil,
			map[string]any{"time_index": idx, "max": s.ds.Len() - 1})
	}
	s.timeIndex = idx
	return s.recompute(ctx)
}

// SetPollutant changes the displayed pollutant. Risk does not depend on it,
// so the forecast is not re-dispatched.
func (s *Session) SetPollutant(p types.Pollutant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !p.Valid() {
		return types.NewAppError(types.ErrCodeValidationInvalidPollutant,
			fmt.Sprintf("unknown pollutant %q", p), nil)
	}
	s.pollutant = p
	if s.current != nil {
		s.current.Pollutant = p
		s.current.PollutantValue = s.current.Reading.Value(p)
	}
	return nil
}

// Close stops accepting changes and waits for in-flight forecasts.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.dispatcher.Close()
}

func (s *Session) checkOpen() error {
	if s.closed {
		return types.NewAppError(types.ErrCodeConflictSessionClosed, "session is closed", nil)
	}
	return nil
}

// recompute must be called with s.mu held.
func (s *Session) recompute(ctx context.Context) error {
	if s.profile == nil || s.position == nil {
		return nil
	}
	profile := *s.profile
	loc := s.ds.Nearest(s.position.Lat, s.position.Lng)

	reading, err := s.ds.ReadingAt(loc, s.timeIndex)
	if err != nil {
		return err
	}
	level := risk.Score(reading, profile)

	a := &Assessment{
		Location:        loc.Name,
		TimeIndex:       s.timeIndex,
		Timestamp:       s.ds.Timestamps[s.timeIndex],
		Reading:         reading,
		Pollutant:       s.pollutant,
		PollutantValue:  reading.Value(s.pollutant),
		Risk:            level,
		Recommendations: risk.Recommend(level, reading, profile),
		ForecastStatus:  types.ForecastPending,
	}

	gen, err := s.dispatcher.Dispatch(ctx, reading, s.ds.History(loc, s.timeIndex), profile, s.onForecast(level))
	if err != nil {
		return types.NewAppError(types.ErrCodeConflictSessionClosed, "forecast dispatcher closed", err)
	}
	a.Generation = gen
	s.current = a

	s.logger.DebugContext(ctx, "assessment recomputed",
		"location", loc.Name,
		"time_index", s.timeIndex,
		"risk", string(level),
		"generation", gen,
	)
	return nil
}

func (s *Session) onForecast(level types.RiskLevel) forecast.DeliverFunc {
	return func(res forecast.Result) {
		s.mu.Lock()
		if s.current == nil || s.current.Generation != res.Generation {
			s.mu.Unlock()
			return
		}
		fc := res.Forecast
		s.current.Forecast = &fc
		s.current.ForecastStatus = types.ForecastReady
		s.mu.Unlock()

		if s.alerter == nil {
			return
		}
		ctx := context.Background()
		alert, err := s.alerter.Process(ctx, level, fc)
		if err != nil {
			s.logger.ErrorContext(ctx, "alert processing failed", "error", err, "generation", res.Generation)
		}
		if alert == nil {
			return
		}

		s.mu.Lock()
		if s.current != nil && s.current.Generation == res.Generation {
			s.current.Alert = alert
		}
		s.mu.Unlock()
	}
}

func (a *Assessment) clone() Assessment {
	c := *a
	c.Recommendations = append([]string(nil), a.Recommendations...)
	if a.Forecast != nil {
		fc := *a.Forecast
		c.Forecast = &fc
	}
	if a.Alert != nil {
		al := *a.Alert
		c.Alert = &al
	}
	return c
}
