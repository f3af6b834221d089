package handler

// RESPONSE HELPERS:
// Every handler sends JSON through writeJSON and every failure through
// writeError, so the API has one error shape:
//
//	{"error": "not_found", "message": "snippet not found with id go/missing"}
//
// Unauthorized responses also carry "login", the endpoint to authenticate
// at, and validation errors name the offending "field".

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/snippet-vault/internal/apperror"
)

// LoginPath is advertised in 401 responses.
const LoginPath = "/api/login"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, for validation errors
	Login   string `json:"login,omitempty"` // Where to authenticate, for 401s
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written; once Encode
// writes, header changes are silently ignored.
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

// errorStatus maps a domain error to an HTTP status and error type.
//
// errors.Is walks the whole chain, so this works through fmt.Errorf wrapping:
//
//	service returns: fmt.Errorf("creating snippet: %w", apperror.Conflict(...))
//	errors.Is walks: outer error → AppError → ErrConflict ✓
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error" // 400
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized" // 401
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found" // 404
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict" // 409
	case errors.Is(err, apperror.ErrParse):
		return http.StatusUnprocessableEntity, "parse_error" // 422
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a domain error to the appropriate HTTP response.
//
// NEVER expose internal error details to the client: storage causes may
// contain queries or file paths. 500s get a generic message and the real
// error goes to the log.
func writeError(w http.ResponseWriter, err error) {
	status, errorType := errorStatus(err)

	resp := ErrorResponse{Error: errorType, Message: "An internal error occurred"}

	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
	}
	if status == http.StatusUnauthorized {
		resp.Login = LoginPath
	}

	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON request body into dst. Malformed bodies are a
// validation error on the "body" field.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
