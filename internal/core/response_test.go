package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"airwatch/internal/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIErrorResponse {
	t.Helper()
	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestRespond_WrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)

	Respond(rec, r, http.StatusOK, map[string]bool{"has_asthma": true})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{"has_asthma":true}}` {
		t.Errorf("body = %s", got)
	}
}

func TestJSON_MarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	JSON(rec, r, http.StatusOK, map[string]any{"bad": make(chan int)})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("code = %q", resp.Error.Code)
	}
}

func TestError_StatusMapping(t *testing.T) {
	tests := []struct {
		code types.ErrorCode
		want int
	}{
		{types.ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{types.ErrCodeValidationTimeIndex, http.StatusBadRequest},
		{types.ErrCodeRateLimit, http.StatusTooManyRequests},
		{types.ErrCodeNotFoundAssessment, http.StatusNotFound},
		{types.ErrCodeConflictSessionClosed, http.StatusConflict},
		{types.ErrCodeInternalStore, http.StatusInternalServerError},
		{types.ErrCodeUpstreamWebhook, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			Error(rec, r, types.NewAppError(tt.code, "msg", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestError_IncludesDetailsAndRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/v1/selection", nil)
	r = r.WithContext(types.WithRequestID(r.Context(), "req-42"))

	Error(rec, r, types.NewAppErrorWithDetails(
		types.ErrCodeValidationTimeIndex, "time index out of range", nil,
		map[string]any{"max": 5},
	))

	resp := decodeError(t, rec)
	if resp.Error.RequestID != "req-42" {
		t.Errorf("request_id = %q", resp.Error.RequestID)
	}
	if resp.Error.Details["max"] != float64(5) {
		t.Errorf("details = %v", resp.Error.Details)
	}
}

func TestError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	wrapped := fmt.Errorf("loading: %w", types.NewAppError(types.ErrCodeNotFoundLocation, "no such location", nil))

	Error(rec, r, wrapped)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestError_GenericErrorHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, r, errors.New("bolt: database not open at /secret/path"))

	resp := decodeError(t, rec)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(resp.Error.Message, "/secret/path") {
		t.Error("internal error text leaked to client")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"lat":1,"lng":2}`, false},
		{"unknown field", `{"lat":1,"lng":2,"alt":3}`, true},
		{"syntax", `{"lat":`, true},
		{"empty", ``, true},
		{"type mismatch", `{"lat":"north"}`, true},
		{"two values", `{"lat":1} {"lat":2}`, true},
		{"too large", `{"lat":1,"pad":"` + strings.Repeat("x", maxRequestBodySize) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPut, "/v1/position", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSON(rec, r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var appErr *types.AppError
			if !errors.As(err, &appErr) || appErr.Code != errCodeValidationInvalidJSON {
				t.Errorf("expected validation_invalid_json AppError, got %v", err)
			}
			if appErr.HTTPStatus() != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", appErr.HTTPStatus())
			}
		})
	}
}
