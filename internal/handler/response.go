// Package handler exposes the service layer over HTTP. Handlers decode the
// request, run the access policy, call a service, and encode the result;
// error translation to HTTP status codes lives in writeError so every
// endpoint fails with the same JSON shape.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ametelin/reviewhub/internal/apperror"
	"github.com/ametelin/reviewhub/internal/repository"
)

// ErrorResponse is the error shape returned by every endpoint.
// Field is present only on validation and conflict errors, naming the
// offending input field.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers already sent, nothing left to do but log
			slog.Error("encoding response", "error", err)
		}
	}
}

// writeError maps a domain error to an HTTP status. Conflicts map to 400
// (not 409): they are reported as bad input naming the clashing field, the
// same way the validation errors are.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errType = "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
			errType = "conflict"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errType = "not_found"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// never leak internals from an unexpected error
	slog.Error("unhandled error", "error", err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

// decodeJSON reads the request body into dst and reports malformed JSON as
// a validation failure.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// listOptions reads ?limit= and ?offset= from the query string. Unparseable
// or missing values fall back to zero; the repository applies its defaults.
func listOptions(r *http.Request) repository.ListOptions {
	var opts repository.ListOptions
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		opts.Offset = v
	}
	return opts
}
