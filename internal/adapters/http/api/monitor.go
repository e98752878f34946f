// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/facet/internal/app"
)

// MonitorHandler controls the live emotion monitor over HTTP.
type MonitorHandler struct {
	deps Dependencies
}

// NewMonitorHandler creates a new monitor handler.
func NewMonitorHandler(deps Dependencies) *MonitorHandler {
	return &MonitorHandler{deps: deps}
}

// HandleMonitor routes /monitor requests:
//
//	GET  /monitor        -> monitor status
//	POST /monitor/start  -> start monitoring a subject
//	POST /monitor/stop   -> stop monitoring and report the run
func (h *MonitorHandler) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/monitor"), "/")

	switch action {
	case "":
		h.handleStatus(w, r)
	case "start":
		h.handleStart(w, r)
	case "stop":
		h.handleStop(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *MonitorHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	status := h.deps.MonitorStatus(r.Context())
	resp := monitorStatusResponse{
		Running:   status.Running,
		SubjectID: status.SubjectID,
		SessionID: status.SessionID,
		Captures:  status.Captures,
	}
	if status.Running {
		resp.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MonitorHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.monitor.start"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req monitorStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing subject_id")))
		return
	}

	err := h.deps.StartMonitoring(r.Context(), req.SubjectID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":     "monitoring",
			"subject_id": req.SubjectID,
		})
	case errors.Is(err, service.ErrMonitorRunning):
		writeError(w, http.StatusConflict, "monitor_running", err)
	case errors.Is(err, service.ErrMissingSubject):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

func (h *MonitorHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	const op = "api.monitor.stop"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	summary, err := h.deps.StopMonitoring(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, monitorStopResponse{
			Status:    "stopped",
			SubjectID: summary.SubjectID,
			SessionID: summary.SessionID,
			Captures:  summary.Captures,
		})
	case errors.Is(err, service.ErrMonitorNotRunning):
		writeError(w, http.StatusConflict, "monitor_not_running", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
