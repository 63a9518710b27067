package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/neilberkman/claude-grep/internal/core/config"
	"github.com/neilberkman/claude-grep/internal/core/project"
	"github.com/neilberkman/claude-grep/internal/core/search"
)

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Warn("failed to encode response", "error", err)
		}
	}
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrNotFound), errors.Is(err, project.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, config.ErrUnknownKey), errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, search.ErrInvalidPattern):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	Error(w, statusFor(err), err.Error())
}
