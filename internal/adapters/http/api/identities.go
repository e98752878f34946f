// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// IdentitiesHandler handles identity enrollment.
type IdentitiesHandler struct {
	deps Dependencies
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(deps Dependencies) *IdentitiesHandler {
	return &IdentitiesHandler{deps: deps}
}

// HandlePostIdentity handles POST /identities requests. Re-enrolling a
// subject replaces the stored descriptor.
func (h *IdentitiesHandler) HandlePostIdentity(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_identity"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing subject_id")))
		return
	}
	if len(req.Descriptor) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing descriptor")))
		return
	}

	if err := h.deps.Enroll(r.Context(), req.SubjectID, req.Descriptor); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "enrolled", "subject_id": req.SubjectID})
}
