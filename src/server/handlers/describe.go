package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/campuslink/server/src/server/data"
	"github.com/campuslink/server/src/server/describe"
)

// DescribeHandler proxies the AI description generator. Nil Describer means
// the feature is disabled (no API key configured).
type DescribeHandler struct {
	Describer describe.Describer
}

// Generate handles POST /describe {title}.
func (h *DescribeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.Describer == nil {
		http.Error(w, `{"error":"description generator is not configured"}`, http.StatusServiceUnavailable)
		return
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if data.Blank(body.Title) {
		writeError(w, data.ErrValidation)
		return
	}

	text, err := h.Describer.Describe(r.Context(), body.Title)
	if err != nil {
		slog.Error("description generation failed", "error", err)
		http.Error(w, `{"error":"could not generate a description, please write one manually"}`, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": text})
}
