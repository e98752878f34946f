// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// ImagesHandler serves stored capture snapshots.
type ImagesHandler struct {
	deps Dependencies
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(deps Dependencies) *ImagesHandler {
	return &ImagesHandler{deps: deps}
}

// HandleGetImage handles GET /images/{ref} requests.
func (h *ImagesHandler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_image"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ref := strings.TrimPrefix(r.URL.Path, "/images/")
	if ref == "" || strings.Contains(ref, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	data, err := h.deps.GetImage(r.Context(), ref)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
