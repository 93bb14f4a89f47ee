// Package handler contains the HTTP layer: request parsing, input
// validation, and response shaping. Business rules live in
// internal/service; this package only translates between HTTP and the
// domain.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/muzerhq/muzer/internal/apperror"
)

// ErrorResponse is the standard error shape for every endpoint:
//
//	{"error": "validation_error", "message": "...", "details": [...]}
//
// Details is only present for validation failures, listing every
// violated field.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers
// must be set before the first body write; follow the order here.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeFieldErrors reports schema-validation failures with the full
// field list.
func writeFieldErrors(w http.ResponseWriter, fields []FieldError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "validation failed",
		Details: fields,
	})
}

// writeError maps a domain error to its HTTP status code.
//
// STATUS MAPPING:
// Conflicts (duplicate stream, double upvote, retracting a missing
// upvote) map to 400, matching the public contract of this API — they
// are caller mistakes to fix and resubmit, not resource-state 409s.
// Anything not classified as an AppError is a 500 whose detail stays in
// the server log; the client only ever sees a generic message.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
			errorType = "conflict"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		}

		resp := ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		}
		if appErr.Field != "" {
			resp.Details = []FieldError{{Field: appErr.Field, Message: appErr.Message}}
		}
		writeJSON(w, status, resp)
		return
	}

	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
