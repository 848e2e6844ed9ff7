package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"airwatch/internal/types"
)

// maxRequestBodySize caps JSON request bodies. The largest legitimate body,
// an evaluate request, is well under 1 KB.
const maxRequestBodySize = 1 << 20

// errCodeValidationInvalidJSON only exists at the HTTP layer.
const errCodeValidationInvalidJSON types.ErrorCode = "validation_invalid_json"

// APIResponse is the success envelope: {"data": ...}.
type APIResponse struct {
	Data any `json:"data,omitempty"`
}

// APIErrorResponse is the error envelope: {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an error.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

// errorBody builds an error envelope carrying the request's ID.
func errorBody(r *http.Request, code, message string, details map[string]any) APIErrorResponse {
	return APIErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: types.GetRequestID(r.Context()),
	}}
}

// unexpectedErrorBody is the 500 body; it never carries internal detail.
func unexpectedErrorBody(r *http.Request) APIErrorResponse {
	return errorBody(r, string(types.ErrCodeInternalUnexpected), "an unexpected error occurred", nil)
}

// Respond writes data inside the success envelope.
func Respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	JSON(w, r, status, APIResponse{Data: data})
}

// JSON writes v as-is. A value that cannot be marshalled becomes a 500.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = writeJSON(w, errorBody(r, string(types.ErrCodeInternalUnexpected), "failed to marshal response", nil))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes err in the error envelope. An AppError anywhere in the chain
// supplies the status, code, message and details; anything else is an
// opaque 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError, unexpectedErrorBody(r))
		return
	}
	JSON(w, r, appErr.HTTPStatus(), errorBody(r, string(appErr.Code), appErr.Message, appErr.Details))
}

// DecodeJSON strictly decodes a single JSON value into dst: unknown fields,
// trailing values, empty bodies and bodies over 1 MB are all rejected with
// validation_invalid_json.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeFailure(err)
	}
	if dec.More() {
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must contain a single JSON object", nil)
	}
	return nil
}

func decodeFailure(err error) *types.AppError {
	var (
		maxBytesErr *http.MaxBytesError
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must not exceed 1MB", err)
	case errors.As(err, &syntaxErr):
		return types.NewAppError(errCodeValidationInvalidJSON, "malformed JSON in request body", err)
	case errors.As(err, &typeErr):
		return types.NewAppErrorWithDetails(errCodeValidationInvalidJSON, "invalid value for field", err,
			map[string]any{"field": typeErr.Field, "expected": typeErr.Type.String()})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return types.NewAppError(errCodeValidationInvalidJSON,
			"unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "), err)
	case errors.Is(err, io.EOF):
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must not be empty", err)
	default:
		return types.NewAppError(errCodeValidationInvalidJSON, "invalid JSON in request body", err)
	}
}
