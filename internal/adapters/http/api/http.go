// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	repository "github.com/okian/facet/internal/adapters/repository"
	service "github.com/okian/facet/internal/app"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/internal/domain/session"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Capture ingestion and session reads.
	SubmitCapture(ctx context.Context, req service.SubmitCaptureRequest) (service.SubmitCaptureResult, error)
	GetStatistics(ctx context.Context, sessionID string) (session.Statistics, error)
	LinkSession(ctx context.Context, sessionID, assessmentID string, endTime time.Time) error
	SessionsBySubject(ctx context.Context, subjectID string) ([]model.CaptureSession, error)
	SessionByAssessment(ctx context.Context, assessmentID string) (model.CaptureSession, error)
	GetImage(ctx context.Context, ref string) ([]byte, error)

	// Identity enrollment and live authentication.
	Enroll(ctx context.Context, subjectID string, descriptor []float64) error
	Authenticate(ctx context.Context, subjectID string) (model.AuthenticationAttempt, error)

	// Live emotion monitoring.
	StartMonitoring(ctx context.Context, subjectID string) error
	StopMonitoring(ctx context.Context) (service.MonitorSummary, error)
	MonitorStatus(ctx context.Context) service.MonitorStatus
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	capturesHandler    *CapturesHandler
	sessionsHandler    *SessionsHandler
	subjectsHandler    *SubjectsHandler
	assessmentsHandler *AssessmentsHandler
	identitiesHandler  *IdentitiesHandler
	authHandler        *AuthHandler
	monitorHandler     *MonitorHandler
	imagesHandler      *ImagesHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		capturesHandler:    NewCapturesHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		subjectsHandler:    NewSubjectsHandler(deps),
		assessmentsHandler: NewAssessmentsHandler(deps),
		identitiesHandler:  NewIdentitiesHandler(deps),
		authHandler:        NewAuthHandler(deps),
		monitorHandler:     NewMonitorHandler(deps),
		imagesHandler:      NewImagesHandler(deps),
		dashboardHandler:   newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/captures", MetricsMiddleware(s.capturesHandler.HandlePostCapture, "captures"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSessions, "sessions"))
	mux.HandleFunc("/subjects/", MetricsMiddleware(s.subjectsHandler.HandleGetSessions, "subjects"))
	mux.HandleFunc("/assessments/", MetricsMiddleware(s.assessmentsHandler.HandleGetSession, "assessments"))
	mux.HandleFunc("/identities", MetricsMiddleware(s.identitiesHandler.HandlePostIdentity, "identities"))
	mux.HandleFunc("/authenticate", MetricsMiddleware(s.authHandler.HandleAuthenticate, "authenticate"))
	mux.HandleFunc("/monitor", MetricsMiddleware(s.monitorHandler.HandleMonitor, "monitor"))
	mux.HandleFunc("/monitor/", MetricsMiddleware(s.monitorHandler.HandleMonitor, "monitor"))
	mux.HandleFunc("/images/", MetricsMiddleware(s.imagesHandler.HandleGetImage, "images"))
}

// captureRequest mirrors the OpenAPI schema for POST /captures.
type captureRequest struct {
	SubjectID  string   `json:"subject_id"`
	SessionID  string   `json:"session_id,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
	Emotion    string   `json:"emotion"`
	Confidence *float64 `json:"confidence"` // pointer: absent differs from a literal 0
	TS         string   `json:"ts"`
	Kind       string   `json:"capture_kind"`
	Module     string   `json:"module_context,omitempty"`
	Image      []byte   `json:"image,omitempty"` // base64 in transit
}

type captureResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	CaptureID string `json:"capture_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// linkRequest mirrors the schema for PUT /sessions/{id}/assessment.
type linkRequest struct {
	AssessmentID string `json:"assessment_id"`
	EndTS        string `json:"end_ts,omitempty"`
}

// identityRequest mirrors the schema for POST /identities.
type identityRequest struct {
	SubjectID  string    `json:"subject_id"`
	Descriptor []float64 `json:"descriptor"`
}

// authRequest mirrors the schema for POST /authenticate.
type authRequest struct {
	SubjectID string `json:"subject_id"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

type authResponse struct {
	SubjectID    string  `json:"subject_id"`
	Outcome      string  `json:"outcome"`
	Distance     float64 `json:"distance"`
	MatchPercent float64 `json:"match_percent"`
}

// monitorStartRequest mirrors the schema for POST /monitor/start.
type monitorStartRequest struct {
	SubjectID string `json:"subject_id"`
}

type monitorStatusResponse struct {
	Running   bool   `json:"running"`
	SubjectID string `json:"subject_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Captures  int    `json:"captures"`
	StartedAt string `json:"started_at,omitempty"`
}

type monitorStopResponse struct {
	Status    string `json:"status"`
	SubjectID string `json:"subject_id"`
	SessionID string `json:"session_id,omitempty"`
	Captures  int    `json:"captures"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrSessionNotFound) ||
		errors.Is(err, repository.ErrIdentityNotFound) ||
		errors.Is(err, repository.ErrImageNotFound)
}

// isValidation translates capture validation failures to 400s carrying
// the offending field.
func isValidation(err error) (*session.ValidationError, bool) {
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
