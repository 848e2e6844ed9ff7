// Package handlers contains the HTTP handlers for the AirWatch API.
//
// Each handler depends on a small locally-defined interface so tests can
// drive it without a real session or dataset, and exposes RegisterRoutes for
// mounting under /v1.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"airwatch/internal/core"
	"airwatch/internal/session"
	"airwatch/internal/types"
)

// SessionService is the subset of *session.Session the handler needs.
type SessionService interface {
	Profile() (types.HealthProfile, bool)
	Selection() session.Selection
	Current() (session.Assessment, bool)
	SetProfile(ctx context.Context, p types.HealthProfile) error
	SetPosition(ctx context.Context, p types.Position) error
	SetTimeIndex(ctx context.Context, idx int) error
	SetPollutant(p types.Pollutant) error
	Snapshot(ctx context.Context, idx int, pollutant types.Pollutant, profile types.HealthProfile) ([]session.Marker, error)
}

// SessionHandler exposes the user's profile, position, selection and the
// resulting assessment.
type SessionHandler struct {
	svc       SessionService
	validator *core.Validator
	logger    *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc SessionService, val *core.Validator, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		svc:       svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the session endpoints.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.HandleGetProfile)
	r.Put("/profile", h.HandlePutProfile)
	r.Put("/position", h.HandlePutPosition)
	r.Get("/selection", h.HandleGetSelection)
	r.Put("/selection", h.HandlePutSelection)
	r.Get("/assessment", h.HandleGetAssessment)
	r.Get("/snapshot", h.HandleGetSnapshot)
}

// profileRequest uses pointers so an omitted condition is distinguishable
// from false; omitted conditions are treated as false.
type profileRequest struct {
	HasAsthma      *bool `json:"has_asthma"`
	HasAllergies   *bool `json:"has_allergies"`
	HasSensitivity *bool `json:"has_sensitivity"`
}

func (p profileRequest) toProfile() types.HealthProfile {
	deref := func(b *bool) bool { return b != nil && *b }
	return types.HealthProfile{
		HasAsthma:      deref(p.HasAsthma),
		HasAllergies:   deref(p.HasAllergies),
		HasSensitivity: deref(p.HasSensitivity),
	}
}

type positionRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type selectionRequest struct {
	TimeIndex *int   `json:"time_index" validate:"omitempty,gte=0"`
	Pollutant string `json:"pollutant" validate:"omitempty,pollutant"`
}

// snapshotResponse is the map payload for one time index.
type snapshotResponse struct {
	TimeIndex int              `json:"time_index"`
	Pollutant types.Pollutant  `json:"pollutant"`
	Markers   []session.Marker `json:"markers"`
}

// HandleGetProfile handles GET /v1/profile.
func (h *SessionHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.svc.Profile()
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundProfile, "no health profile has been set", nil))
		return
	}
	core.Respond(w, r, http.StatusOK, p)
}

// HandlePutProfile handles PUT /v1/profile.
func (h *SessionHandler) HandlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	p := req.toProfile()
	if err := h.svc.SetProfile(r.Context(), p); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to set profile", "error", err)
		core.Error(w, r, err)
		return
	}
	core.Respond(w, r, http.StatusOK, p)
}

// HandlePutPosition handles PUT /v1/position.
func (h *SessionHandler) HandlePutPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	pos := types.Position{Lat: *req.Lat, Lng: *req.Lng}
	if err := h.svc.SetPosition(r.Context(), pos); err != nil {
		core.Error(w, r, err)
		return
	}
	core.Respond(w, r, http.StatusOK, h.svc.Selection())
}

// HandleGetSelection handles GET /v1/selection.
func (h *SessionHandler) HandleGetSelection(w http.ResponseWriter, r *http.Request) {
	core.Respond(w, r, http.StatusOK, h.svc.Selection())
}

// HandlePutSelection handles PUT /v1/selection. At least one of time_index
// and pollutant must be present; the time index is applied first.
func (h *SessionHandler) HandlePutSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.TimeIndex == nil && req.Pollutant == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField,
			"time_index or pollutant is required", nil))
		return
	}

	if req.TimeIndex != nil {
		if err := h.svc.SetTimeIndex(r.Context(), *req.TimeIndex); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	if req.Pollutant != "" {
		if err := h.svc.SetPollutant(types.Pollutant(req.Pollutant)); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	core.Respond(w, r, http.StatusOK, h.svc.Selection())
}

// HandleGetAssessment handles GET /v1/assessment. The forecast may still be
// pending; clients poll until forecast_status is "ready".
func (h *SessionHandler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.svc.Current()
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundAssessment,
			"set a health profile and position first", nil))
		return
	}
	if a.ForecastStatus == types.ForecastPending {
		w.Header().Set("Retry-After", "1")
	}
	core.Respond(w, r, http.StatusOK, a)
}

// HandleGetSnapshot handles GET /v1/snapshot?time_index=N&pollutant=P.
// Both parameters default to the current selection; risk uses the stored
// profile, or no conditions when none is set.
func (h *SessionHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	sel := h.svc.Selection()
	q := r.URL.Query()

	idx := sel.TimeIndex
	if raw := q.Get("time_index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationTimeIndex,
				"time_index must be an integer", err))
			return
		}
		idx = n
	}

	pollutant := sel.Pollutant
	if raw := q.Get("pollutant"); raw != "" {
		pollutant = types.Pollutant(raw)
		if !pollutant.Valid() {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidPollutant,
				"pollutant must be one of no2, pm25, o3", nil))
			return
		}
	}

	profile, _ := h.svc.Profile()
	markers, err := h.svc.Snapshot(r.Context(), idx, pollutant, profile)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Respond(w, r, http.StatusOK, snapshotResponse{
		TimeIndex: idx,
		Pollutant: pollutant,
		Markers:   markers,
	})
}
