// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// SessionsHandler handles per-session reads and assessment linking.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleSessions routes requests under /sessions/:
//
//	GET /sessions/{id}/stats      -> aggregate statistics
//	PUT /sessions/{id}/assessment -> link session to an assessment
func (h *SessionsHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	sessionID, action := parts[0], parts[1]

	switch {
	case action == "stats" && r.Method == http.MethodGet:
		h.handleStats(w, r, sessionID)
	case action == "assessment" && r.Method == http.MethodPut:
		h.handleLink(w, r, sessionID)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionsHandler) handleStats(w http.ResponseWriter, r *http.Request, sessionID string) {
	const op = "api.get_session_stats"
	stats, err := h.deps.GetStatistics(r.Context(), sessionID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *SessionsHandler) handleLink(w http.ResponseWriter, r *http.Request, sessionID string) {
	const op = "api.link_session"
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.AssessmentID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing assessment_id")))
		return
	}

	// The window closes now unless the caller supplies the end time.
	endTime := time.Now()
	if req.EndTS != "" {
		parsed, err := time.Parse(time.RFC3339, req.EndTS)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid end_ts; must be RFC3339")))
			return
		}
		endTime = parsed
	}

	if err := h.deps.LinkSession(r.Context(), sessionID, req.AssessmentID, endTime); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}
