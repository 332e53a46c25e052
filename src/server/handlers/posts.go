package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/server/src/server/data"
	"github.com/campuslink/server/src/server/engine"
	"github.com/campuslink/server/src/server/middleware"
)

type PostHandler struct {
	Engine *engine.Engine
}

// List handles GET /posts?type=&search=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := data.PostFilter{
		Type:   data.PostType(r.URL.Query().Get("type")),
		Search: r.URL.Query().Get("search"),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, data.ErrValidation)
		return
	}

	posts, err := h.Engine.ListPosts(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []data.LostFoundPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// Get handles GET /posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.Engine.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Create handles POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	poster, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var draft data.PostDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	post, err := h.Engine.CreatePost(r.Context(), draft, poster)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}
