// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/facet/internal/auth"
)

// AuthHandler runs live authentication flows over HTTP.
type AuthHandler struct {
	deps Dependencies
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(deps Dependencies) *AuthHandler {
	return &AuthHandler{deps: deps}
}

// HandleAuthenticate handles POST /authenticate requests. The request
// blocks while frames are sampled; timeout_ms bounds how long the caller
// is willing to wait for a match.
func (h *AuthHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	const op = "api.authenticate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing subject_id")))
		return
	}

	ctx := r.Context()
	if req.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	attempt, err := h.deps.Authenticate(ctx, req.SubjectID)
	resp := authResponse{
		SubjectID:    req.SubjectID,
		Outcome:      string(attempt.Outcome),
		Distance:     attempt.Distance,
		MatchPercent: attempt.MatchPercent,
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, auth.ErrAttemptsExhausted):
		writeJSON(w, http.StatusUnauthorized, resp)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusRequestTimeout, resp)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
