// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/facet/internal/app"
	"github.com/okian/facet/internal/domain/model"
)

// CapturesHandler handles capture submissions.
type CapturesHandler struct {
	deps Dependencies
}

// NewCapturesHandler creates a new captures handler.
func NewCapturesHandler(deps Dependencies) *CapturesHandler {
	return &CapturesHandler{deps: deps}
}

func (req captureRequest) validate() error {
	switch {
	case req.SessionID == "" && strings.TrimSpace(req.SubjectID) == "":
		return errors.New("missing subject_id")
	case strings.TrimSpace(req.Emotion) == "":
		return errors.New("missing emotion")
	case req.Confidence == nil:
		return errors.New("missing confidence")
	case strings.TrimSpace(req.TS) == "":
		return errors.New("missing ts")
	case strings.TrimSpace(req.Kind) == "":
		return errors.New("missing capture_kind")
	}
	if _, err := time.Parse(time.RFC3339, req.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	return nil
}

// HandlePostCapture handles POST /captures requests. A request without a
// session_id opens a new session; one with a session_id appends to it.
func (h *CapturesHandler) HandlePostCapture(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_capture"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ts, _ := time.Parse(time.RFC3339, req.TS)
	result, err := h.deps.SubmitCapture(r.Context(), service.SubmitCaptureRequest{
		SubjectID:  req.SubjectID,
		SessionID:  req.SessionID,
		RequestID:  req.RequestID,
		Emotion:    req.Emotion,
		Confidence: *req.Confidence,
		Timestamp:  ts,
		Kind:       model.CaptureKind(req.Kind),
		Module:     req.Module,
		Image:      req.Image,
	})
	if err != nil {
		if verr, ok := isValidation(err); ok {
			writeError(w, http.StatusBadRequest, "invalid_capture", verr)
			return
		}
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if result.Duplicate {
		writeJSON(w, http.StatusOK, captureResponse{
			Status:    "duplicate",
			SessionID: result.SessionID,
			Duplicate: true,
		})
		return
	}

	writeJSON(w, http.StatusCreated, captureResponse{
		Status:    "recorded",
		SessionID: result.SessionID,
		CaptureID: result.CaptureID,
	})
}
