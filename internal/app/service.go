// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/facet/internal/adapters/camera"
	"github.com/okian/facet/internal/adapters/perception"
	repository "github.com/okian/facet/internal/adapters/repository"
	"github.com/okian/facet/internal/auth"
	"github.com/okian/facet/internal/detect"
	"github.com/okian/facet/internal/domain/decision"
	"github.com/okian/facet/internal/domain/dedupe"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/internal/domain/session"
	"github.com/okian/facet/pkg/logger"
	"github.com/okian/facet/pkg/metrics"
)

// Service wires the capture, decision, and authentication components
// behind the API surface.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	decider  *decision.Engine
	frames   camera.Source
	perceive perception.Engine

	// Configuration
	sampleInterval     time.Duration
	detectionThreshold float64
	matchDistanceMax   float64
	descriptorLength   int
	authMaxAttempts    int
	dedupeSize         int
	// Simulated inference latency configuration
	inferenceMinLatency time.Duration
	inferenceMaxLatency time.Duration

	// Live monitor configuration
	monitorCaptureGap time.Duration

	// State
	started bool
	monitor *monitorRun

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSampleInterval sets the detection loop cadence.
func WithSampleInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sampleInterval = d
		}
	}
}

// WithDetectionThreshold sets the minimum face-detection confidence.
func WithDetectionThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 {
			s.detectionThreshold = t
		}
	}
}

// WithMatchDistanceMax sets the descriptor distance accept cutoff.
func WithMatchDistanceMax(d float64) Option {
	return func(s *Service) {
		if d > 0 {
			s.matchDistanceMax = d
		}
	}
}

// WithDescriptorLength sets the identity descriptor vector length.
func WithDescriptorLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.descriptorLength = n
		}
	}
}

// WithAuthMaxAttempts caps descriptor evaluations per authentication
// flow. Zero means retry until cancelled.
func WithAuthMaxAttempts(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.authMaxAttempts = n
		}
	}
}

// WithDedupeSize sets the size of the submit deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithInferenceLatencyRange sets the simulated inference latency range.
func WithInferenceLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.inferenceMinLatency = minLatency
			s.inferenceMaxLatency = maxLatency
		}
	}
}

// WithMonitorCaptureGap sets the minimum time between captures recorded
// by the live monitor. Zero records every accepted observation.
func WithMonitorCaptureGap(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.monitorCaptureGap = d
		}
	}
}

// WithFrameSource replaces the default synthetic frame source.
func WithFrameSource(src camera.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.frames = src
		}
	}
}

// WithPerceptionEngine replaces the default simulated perception engine.
func WithPerceptionEngine(engine perception.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.perceive = engine
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sampleInterval:      detect.DefaultInterval,
		detectionThreshold:  perception.DefaultDetectionThreshold,
		matchDistanceMax:    decision.DefaultMatchDistanceMax,
		descriptorLength:    128,
		authMaxAttempts:     0,
		dedupeSize:          50000,
		inferenceMinLatency: 15 * time.Millisecond,
		inferenceMaxLatency: 40 * time.Millisecond,
		monitorCaptureGap:   5 * time.Second,
		logger:              nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting capture service...")

	// Initialize components
	s.store = repository.NewMemStore()
	s.logger.Info(ctx, "using in-memory store")
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.decider = decision.New(
		decision.WithMatchDistanceMax(s.matchDistanceMax),
	)
	if s.frames == nil {
		s.frames = camera.NewSynthetic()
	}
	if s.perceive == nil {
		s.perceive = perception.NewSimulatedEngine(
			perception.WithDetectionThreshold(s.detectionThreshold),
			perception.WithDescriptorLength(s.descriptorLength),
			perception.WithLatencyRange(s.inferenceMinLatency, s.inferenceMaxLatency),
		)
	}

	s.started = true
	s.logger.Info(ctx, "capture service started",
		logger.Int("sample_interval_ms", int(s.sampleInterval.Milliseconds())),
		logger.Int("descriptor_length", s.descriptorLength),
		logger.Int("dedupe_size", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping capture service...")

	if s.monitor != nil {
		_ = s.stopMonitorLocked(context.Background())
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "capture service stopped")
}

// SubmitCaptureRequest carries one capture submission.
type SubmitCaptureRequest struct {
	SubjectID  string
	SessionID  string // empty starts a new session
	RequestID  string // optional idempotency key
	Emotion    string
	Confidence float64
	Timestamp  time.Time
	Kind       model.CaptureKind
	Module     string
	Image      []byte // optional frame snapshot
}

// SubmitCaptureResult reports where a capture landed.
type SubmitCaptureResult struct {
	SessionID string
	CaptureID string
	Created   bool // a new session was started for this capture
	Duplicate bool // the request id was already processed
}

// SubmitCapture validates and persists one capture, creating a session
// when the request names none. A repeated request id is acknowledged
// without persisting again.
func (s *Service) SubmitCapture(ctx context.Context, req SubmitCaptureRequest) (SubmitCaptureResult, error) {
	capture := model.Capture{
		Emotion:       req.Emotion,
		Confidence:    req.Confidence,
		Timestamp:     req.Timestamp,
		Kind:          req.Kind,
		ModuleContext: req.Module,
	}

	// A session-opening capture must name its owner.
	if req.SessionID == "" && strings.TrimSpace(req.SubjectID) == "" {
		metrics.RecordErrorByComponent("service", "invalid_capture")
		return SubmitCaptureResult{}, &session.ValidationError{Field: "subject_id"}
	}
	if err := session.ValidateCapture(capture); err != nil {
		metrics.RecordErrorByComponent("service", "invalid_capture")
		return SubmitCaptureResult{}, err
	}

	if req.RequestID != "" && s.deduper.SeenAndRecord(ctx, req.RequestID) {
		metrics.RecordCaptureDuplicate()
		s.logger.Debug(ctx, "duplicate capture submission, skipping",
			logger.String("request_id", req.RequestID),
			logger.String("session_id", req.SessionID),
		)
		return SubmitCaptureResult{SessionID: req.SessionID, Duplicate: true}, nil
	}

	if len(req.Image) > 0 {
		ref, err := s.store.StoreImage(ctx, req.Image)
		if err != nil {
			s.undoDedupe(ctx, req.RequestID)
			return SubmitCaptureResult{}, fmt.Errorf("store image: %w", err)
		}
		capture.ImageReference = ref
	}

	if req.SessionID == "" {
		sess, err := s.store.CreateSession(ctx, req.SubjectID, capture)
		if err != nil {
			s.undoDedupe(ctx, req.RequestID)
			return SubmitCaptureResult{}, fmt.Errorf("create session: %w", err)
		}
		metrics.RecordCapture()
		metrics.UpdateSessionsTracked(s.store.Count(ctx))
		s.logger.Info(ctx, "capture session started",
			logger.String("session_id", sess.ID),
			logger.String("subject_id", req.SubjectID),
			logger.String("emotion", capture.Emotion),
		)
		return SubmitCaptureResult{
			SessionID: sess.ID,
			CaptureID: sess.Captures[0].ID,
			Created:   true,
		}, nil
	}

	captureID, err := s.store.AppendCapture(ctx, req.SessionID, capture)
	if err != nil {
		s.undoDedupe(ctx, req.RequestID)
		return SubmitCaptureResult{}, fmt.Errorf("append capture: %w", err)
	}
	metrics.RecordCapture()

	return SubmitCaptureResult{
		SessionID: req.SessionID,
		CaptureID: captureID,
	}, nil
}

// undoDedupe releases an idempotency key after a failed submit so the
// client can retry it.
func (s *Service) undoDedupe(ctx context.Context, requestID string) {
	if requestID != "" {
		s.deduper.Unrecord(ctx, requestID)
	}
}

// GetSession returns one capture session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (model.CaptureSession, error) {
	return s.store.Session(ctx, sessionID)
}

// GetStatistics computes aggregate statistics for one session.
func (s *Service) GetStatistics(ctx context.Context, sessionID string) (session.Statistics, error) {
	sess, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return session.Statistics{}, err
	}
	return session.Compute(sess), nil
}

// LinkSession attaches an assessment to a session and closes its time
// window. Re-linking never shortens the window.
func (s *Service) LinkSession(ctx context.Context, sessionID, assessmentID string, endTime time.Time) error {
	if err := s.store.LinkAssessment(ctx, sessionID, assessmentID, endTime); err != nil {
		return err
	}
	s.logger.Info(ctx, "session linked to assessment",
		logger.String("session_id", sessionID),
		logger.String("assessment_id", assessmentID),
	)
	return nil
}

// SessionsBySubject returns a subject's sessions, newest first.
func (s *Service) SessionsBySubject(ctx context.Context, subjectID string) ([]model.CaptureSession, error) {
	return s.store.SessionsBySubject(ctx, subjectID)
}

// SessionByAssessment returns the session linked to an assessment.
func (s *Service) SessionByAssessment(ctx context.Context, assessmentID string) (model.CaptureSession, error) {
	return s.store.SessionByAssessment(ctx, assessmentID)
}

// GetImage returns a stored capture snapshot by reference.
func (s *Service) GetImage(ctx context.Context, ref string) ([]byte, error) {
	return s.store.Image(ctx, ref)
}

// Enroll saves a subject's reference descriptor for authentication.
func (s *Service) Enroll(ctx context.Context, subjectID string, descriptor []float64) error {
	if subjectID == "" {
		return fmt.Errorf("enroll: %w", ErrMissingSubject)
	}
	if len(descriptor) != s.descriptorLength {
		return fmt.Errorf("enroll: descriptor length %d, want %d: %w",
			len(descriptor), s.descriptorLength, decision.ErrInvalidDescriptor)
	}

	if err := s.store.SaveIdentity(ctx, model.EnrolledIdentity{
		SubjectID:  subjectID,
		Descriptor: descriptor,
	}); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}

	s.logger.Info(ctx, "subject enrolled", logger.String("subject_id", subjectID))
	return nil
}

// Authenticate runs a live authentication flow for the claimed subject,
// sampling the frame source until a match, the attempt cap, or ctx
// cancellation ends it.
func (s *Service) Authenticate(ctx context.Context, subjectID string) (model.AuthenticationAttempt, error) {
	enrolled, err := s.store.Identity(ctx, subjectID)
	if err != nil {
		return model.AuthenticationAttempt{}, err
	}

	loop := detect.New(s.frames, s.perceive,
		detect.WithInterval(s.sampleInterval),
		detect.WithDescriptors(true),
	)
	flow := auth.New(loop, s.decider,
		auth.WithMaxAttempts(s.authMaxAttempts),
	)

	return flow.Run(ctx, enrolled)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"sampleIntervalMs": s.sampleInterval.Milliseconds(),
		"descriptorLength": s.descriptorLength,
		"authMaxAttempts":  s.authMaxAttempts,
		"dedupeSize":       s.dedupeSize,
		"matchDistanceMax": s.matchDistanceMax,
	}

	if s.started {
		totalSessions := s.store.Count(ctx)
		stats["totalSessions"] = totalSessions
		stats["dedupeEntries"] = s.deduper.Size()
		stats["monitoring"] = s.monitor != nil

		// Update metrics
		metrics.UpdateSessionsTracked(totalSessions)
	}

	return stats
}
