package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every API error has the same shape:
//
//	{"error": "not_found", "message": "interview not found with id abc123"}
//
// Auth routes answer like form actions instead:
//
//	{"success": false, "message": "The Email is already in use"}
//
// Both shapes share the status mapping in statusFor.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/interview-me/internal/apperror"
)

// maxBodyBytes caps JSON request bodies. Transcripts are the largest.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// ActionResponse is the {success, message} result of auth actions.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent; nothing left but to log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// statusFor maps a domain error onto an HTTP status and error type.
// Errors carrying no apperror sentinel are internal.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// publicMessage returns the AppError message for known errors and fallback
// for everything else. Internal error text never reaches the client.
func publicMessage(err error, fallback string) (string, string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if status, _ := statusFor(err); status != http.StatusInternalServerError {
			return appErr.Message, appErr.Field
		}
	}
	return fallback, ""
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
func writeError(w http.ResponseWriter, err error) {
	writeErrorWithFallback(w, err, "An internal error occurred")
}

// writeErrorWithFallback is writeError with an operation-specific message
// for internal errors.
func writeErrorWithFallback(w http.ResponseWriter, err error, fallback string) {
	status, errorType := statusFor(err)
	message, _ := publicMessage(err, fallback)
	writeJSON(w, status, ErrorResponse{Error: errorType, Message: message})
}

// writeActionError sends a failed ActionResponse.
func writeActionError(w http.ResponseWriter, err error, fallback string) {
	status, _ := statusFor(err)
	message, field := publicMessage(err, fallback)
	writeJSON(w, status, ActionResponse{Success: false, Message: message, Field: field})
}

// logIfInternal logs errors that will surface as a 500.
func logIfInternal(logger *slog.Logger, msg string, err error, attrs ...any) {
	if status, _ := statusFor(err); status == http.StatusInternalServerError {
		logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	}
}
