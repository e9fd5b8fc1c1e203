package api

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/starford/storygraph/internal/storage"
)

// IllustrationHandler serves and accepts illustration files.
type IllustrationHandler struct {
	files storage.Provider
}

// NewIllustrationHandler creates a handler over the illustration store.
func NewIllustrationHandler(files storage.Provider) *IllustrationHandler {
	return &IllustrationHandler{files: files}
}

// ServeFile handles GET /illustrations/{filename}.
func (h *IllustrationHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	ok, err := h.files.Exists(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, err := h.files.Read(name)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	etag := `"` + storage.Checksum(data) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if ct := mimeByExt(name); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = w.Write(data)
}

// Upload handles POST /api/v1/illustrations (multipart/form-data, field "file").
//
//	@Summary		Upload an illustration
//	@Tags			illustrations
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	IllustrationUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/v1/illustrations [post]
func (h *IllustrationHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxIllustrationSize+(1<<20))

	if err := r.ParseMultipartForm(storage.MaxIllustrationSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxIllustrationSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	name := storage.SanitizeName(header.Filename, "")
	if err := storage.ValidateIllustration(name, data); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	exists, err := h.files.Exists(name)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if exists {
		writeJSON(w, http.StatusConflict, errorBody("illustration already exists"))
		return
	}

	if err := h.files.Write(name, data); err != nil {
		writeError(w, "store illustration", err)
		return
	}

	writeJSON(w, http.StatusCreated, IllustrationUploadResponse{
		Filename: name,
		Size:     int64(len(data)),
		SHA256:   storage.Checksum(data),
		URL:      "/illustrations/" + name,
	})
}

func mimeByExt(name string) string {
	switch filepath.Ext(name) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	}
	return ""
}
