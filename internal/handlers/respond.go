// Package handlers contains the HTTP request handlers of the trust API.
// Handlers parse requests, call services, and return JSON responses; every
// service error is mapped to a stable status code exactly once, here.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eazylink/calltrust-server/internal/errs"
)

// respondJSON writes data as a JSON response body.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the sentinel taxonomy to HTTP status codes.
// Unknown errors become 500 without leaking internals.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, errs.ErrExpired):
		respondError(w, http.StatusGone, "Verification code expired")
	case errors.Is(err, errs.ErrForbidden):
		respondError(w, http.StatusForbidden, "You are not part of this call")
	case errors.Is(err, errs.ErrCodeMismatch):
		respondError(w, http.StatusBadRequest, "Incorrect verification code")
	case errors.Is(err, errs.ErrBadRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrConflict):
		respondError(w, http.StatusConflict, "Concurrent update, retry")
	default:
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}
