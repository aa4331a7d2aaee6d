package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and map domain
// errors to status codes, so every handler answers with the same shape:
//
//	{"error": "unauthenticated", "message": "..."}
//
// ERROR MAPPING LIVES HERE, NOT IN THE SERVICE:
// The service layer returns apperror sentinels; it knows nothing about
// HTTP. This file translates them — 401 for auth failures, 404 for missing
// resources, 400 for validation, 500 for everything else. Auth failures
// and internal errors deliberately get generic messages: the server log
// has the detail, the caller doesn't need to know whether a signature was
// forged or merely expired.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/gitgate/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable error type (e.g. "unauthenticated")
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body — once Encode writes,
// the headers are on the wire.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends the standard
// error body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		msg := "invalid request"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: msg,
		})

	case errors.Is(err, apperror.ErrNotFound):
		msg := "not found"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: msg,
		})

	case errors.Is(err, apperror.ErrUnauthenticated),
		errors.Is(err, apperror.ErrTokenExpired),
		errors.Is(err, apperror.ErrTokenInvalid),
		errors.Is(err, apperror.ErrTokenMalformed):
		// One body for every auth failure. The distinct sentinels exist for
		// logging and tests, not for the client.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthenticated",
			Message: "valid authentication required",
		})

	default:
		// Provider failures, hash corruption, storage errors: internal details
		// never reach the client.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an internal error occurred",
		})
	}
}
