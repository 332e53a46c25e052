package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campuslink/server/src/server/data"
	"github.com/campuslink/server/src/server/engine"
	"github.com/campuslink/server/src/server/middleware"
)

type NoteHandler struct {
	Engine *engine.Engine
}

// List handles GET /notes?search=&subject=&semester=
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := data.NoteFilter{
		Search:  r.URL.Query().Get("search"),
		Subject: r.URL.Query().Get("subject"),
	}
	if s := r.URL.Query().Get("semester"); s != "" {
		sem, err := strconv.Atoi(s)
		if err != nil || sem <= 0 {
			writeError(w, data.ErrValidation)
			return
		}
		filter.Semester = sem
	}

	notes, err := h.Engine.ListNotes(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []data.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get handles GET /notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.Engine.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Create handles POST /notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	uploader, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var draft data.NoteDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	note, err := h.Engine.CreateNote(r.Context(), draft, uploader)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// AddComment handles POST /notes/{id}/comments
func (h *NoteHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	comment, err := h.Engine.AddComment(r.Context(), chi.URLParam(r, "id"), body.Text, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// Rate handles PUT /notes/{id}/rating. Re-rating replaces the previous score.
func (h *NoteHandler) Rate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	var body struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	note, err := h.Engine.RateNote(r.Context(), chi.URLParam(r, "id"), body.Rating, user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Download handles POST /notes/{id}/download, bumping the counter.
func (h *NoteHandler) Download(w http.ResponseWriter, r *http.Request) {
	note, err := h.Engine.RegisterDownload(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
