package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/campuslink/server/src/server/data"
)

// writeError maps the engine's error taxonomy onto HTTP statuses. Every error
// reaches the client with a concrete message; nothing is swallowed.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, data.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, data.ErrPostNotFound),
		errors.Is(err, data.ErrClaimNotFound),
		errors.Is(err, data.ErrNoteNotFound):
		status = http.StatusNotFound
	case errors.Is(err, data.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, data.ErrClaimMismatch),
		errors.Is(err, data.ErrInvalidPostType),
		errors.Is(err, data.ErrPostNotClaimable),
		errors.Is(err, data.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, data.ErrStorage):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
