package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"airwatch/internal/core"
	"airwatch/internal/risk"
	"airwatch/internal/types"
)

// Forecaster is the synchronous forecasting contract used by evaluate.
type Forecaster interface {
	Forecast(ctx context.Context, current types.PollutionReading, history []types.PollutionReading, profile types.HealthProfile) types.Forecast
}

// EvaluateHandler scores an arbitrary reading without touching the session.
type EvaluateHandler struct {
	forecaster Forecaster
	validator  *core.Validator
	logger     *slog.Logger
}

// NewEvaluateHandler creates an EvaluateHandler.
func NewEvaluateHandler(f Forecaster, val *core.Validator, logger *slog.Logger) *EvaluateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluateHandler{
		forecaster: f,
		validator:  val,
		logger:     logger,
	}
}

// RegisterRoutes mounts POST /evaluate.
func (h *EvaluateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/evaluate", h.HandleEvaluate)
}

// evaluateRequest mirrors the dataset's history window: at most three
// preceding readings, oldest first.
type evaluateRequest struct {
	Reading *types.PollutionReading  `json:"reading" validate:"required"`
	History []types.PollutionReading `json:"history" validate:"max=3,dive"`
	Profile types.HealthProfile      `json:"profile"`
}

type evaluateResponse struct {
	Risk            types.RiskLevel `json:"risk"`
	Score           float64         `json:"score"`
	Recommendations []string        `json:"recommendations"`
	Forecast        types.Forecast  `json:"forecast"`
}

// HandleEvaluate handles POST /v1/evaluate.
func (h *EvaluateHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	reading := *req.Reading
	score := risk.RiskScore(reading, req.Profile)
	level := risk.Classify(score)

	core.Respond(w, r, http.StatusOK, evaluateResponse{
		Risk:            level,
		Score:           score,
		Recommendations: risk.Recommend(level, reading, req.Profile),
		Forecast:        h.forecaster.Forecast(r.Context(), reading, req.History, req.Profile),
	})
}
