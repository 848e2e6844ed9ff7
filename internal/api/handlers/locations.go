package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"airwatch/internal/core"
	"airwatch/internal/dataset"
	"airwatch/internal/types"
)

// LocationHandler serves the read-only dataset.
type LocationHandler struct {
	ds     *dataset.Dataset
	logger *slog.Logger
}

// NewLocationHandler creates a LocationHandler.
func NewLocationHandler(ds *dataset.Dataset, logger *slog.Logger) *LocationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationHandler{ds: ds, logger: logger}
}

// RegisterRoutes mounts the dataset endpoints.
func (h *LocationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/locations", h.HandleList)
	r.Get("/locations/{name}", h.HandleGet)
}

type locationSummary struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type locationListResponse struct {
	Timestamps       []string          `json:"timestamps"`
	DefaultTimeIndex int               `json:"default_time_index"`
	Locations        []locationSummary `json:"locations"`
}

type locationDetailResponse struct {
	locationSummary
	TimeIndex int                              `json:"time_index"`
	Timestamp string                           `json:"timestamp"`
	Reading   types.PollutionReading           `json:"reading"`
	History   []types.PollutionReading         `json:"history"`
	Bands     map[types.Pollutant]dataset.Band `json:"bands"`
}

// HandleList handles GET /v1/locations.
func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	resp := locationListResponse{
		Timestamps:       h.ds.Timestamps,
		DefaultTimeIndex: h.ds.DefaultTimeIndex(),
		Locations:        make([]locationSummary, 0, len(h.ds.Locations)),
	}
	for _, loc := range h.ds.Locations {
		resp.Locations = append(resp.Locations, locationSummary{Name: loc.Name, Lat: loc.Lat, Lng: loc.Lng})
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	core.Respond(w, r, http.StatusOK, resp)
}

// HandleGet handles GET /v1/locations/{name}?time_index=N.
func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	loc, ok := h.ds.Location(name)
	if !ok {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeNotFoundLocation,
			"location not found", nil, map[string]any{"name": name}))
		return
	}

	idx := h.ds.DefaultTimeIndex()
	if raw := r.URL.Query().Get("time_index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationTimeIndex,
				"time_index must be an integer", err))
			return
		}
		idx = n
	}

	reading, err := h.ds.ReadingAt(loc, idx)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	bands := make(map[types.Pollutant]dataset.Band, len(types.AllPollutants))
	for _, p := range types.AllPollutants {
		bands[p] = dataset.BandFor(p, reading.Value(p))
	}

	core.Respond(w, r, http.StatusOK, locationDetailResponse{
		locationSummary: locationSummary{Name: loc.Name, Lat: loc.Lat, Lng: loc.Lng},
		TimeIndex:       idx,
		Timestamp:       h.ds.Timestamps[idx],
		Reading:         reading,
		History:         h.ds.History(loc, idx),
		Bands:           bands,
	})
}
