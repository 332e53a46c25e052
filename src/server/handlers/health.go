package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/campuslink/server/src/server/storage"
	"github.com/campuslink/server/src/server/store"
)

type HealthHandler struct {
	Store   store.Store
	Storage storage.ObjectStorage
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allOK := true

	if err := h.Store.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		allOK = false
	} else {
		checks["database"] = "ok"
	}

	if h.Storage != nil {
		if err := h.Storage.Ping(ctx); err != nil {
			checks["storage"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["storage"] = "ok"
		}
	}

	resp := healthResponse{
		Status: "ok",
		Checks: checks,
	}
	status := http.StatusOK
	if !allOK {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
