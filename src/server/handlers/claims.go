package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/server/src/server/engine"
	"github.com/campuslink/server/src/server/middleware"
)

type ClaimHandler struct {
	Engine *engine.Engine
}

// Submit handles POST /posts/{id}/claims. Retries can pass an Idempotency-Key
// header; the same key returns the originally created claim.
func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	claimer, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	claim, err := h.Engine.SubmitClaim(r.Context(), chi.URLParam(r, "id"),
		claimer, body.Description, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// Accept handles POST /posts/{id}/claims/{claimID}/accept
func (h *ClaimHandler) Accept(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	post, err := h.Engine.AcceptClaim(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "claimID"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Reject handles POST /posts/{id}/claims/{claimID}/reject
func (h *ClaimHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	// The body is optional; a bare reject has no reason.
	json.NewDecoder(r.Body).Decode(&body)

	claim, err := h.Engine.RejectClaim(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "claimID"), actor, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// Return handles POST /posts/{id}/return
func (h *ClaimHandler) Return(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	post, err := h.Engine.MarkReturned(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
