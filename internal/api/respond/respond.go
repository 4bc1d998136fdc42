// Package respond writes JSON HTTP responses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/SahanaGS-tech/voice-agent-backend/internal/model"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSlotUnavailable), errors.Is(err, model.ErrAlreadyClosed):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotIdentified):
		return http.StatusUnauthorized
	default:
		return http.StatusServiceUnavailable
	}
}

// WriteDomainError writes err with the status and kind of its error kind.
// Upstream failures are not echoed to the client.
func WriteDomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusServiceUnavailable {
		log.Error().Err(err).Msg("request failed")
		msg = "temporarily unavailable"
	}
	WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Kind:    model.KindOf(err),
		Message: msg,
	})
}
