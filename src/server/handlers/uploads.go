package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/campuslink/server/src/server/middleware"
	"github.com/campuslink/server/src/server/storage"
)

// maxUploadBytes caps item photos and note files at 20MB.
const maxUploadBytes = 20 << 20

type UploadHandler struct {
	Storage storage.ObjectStorage
}

// Upload handles POST /uploads: a multipart "file" field is streamed into
// object storage under a fresh key, and the stable URL comes back for the
// client to put in image_url / file_url.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.IdentityFrom(r.Context()); !ok {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"missing file field"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := "uploads/" + uuid.NewString() + filepath.Ext(header.Filename)
	if err := h.Storage.Upload(r.Context(), key, file, contentType); err != nil {
		http.Error(w, `{"error":"upload failed"}`, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"key": key,
		"url": h.Storage.PublicURL(key),
	})
}
