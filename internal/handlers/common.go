package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mainmuse-backend/internal/identity"
	"mainmuse-backend/internal/services"
	"mainmuse-backend/internal/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondServiceError maps a core error to its wire representation
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	retryable := false

	switch {
	case errors.Is(err, services.ErrInvalidID):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidSegment):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, identity.ErrVerificationFailed):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrUnknownCode),
		errors.Is(err, services.ErrQueueNotFound),
		errors.Is(err, store.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrOutOfRange):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNotYetAvailable):
		status = http.StatusTooEarly
		retryable = true
	case errors.Is(err, store.ErrTxnFailed),
		errors.Is(err, services.ErrCodeExhausted):
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Retryable: retryable})
}
