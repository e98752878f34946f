package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/pkg/metrics"
)

// MemStore implements Store in memory. It stands in for the durable
// persistence gateway; all reads hand out copies so internal state never
// escapes the lock.
type MemStore struct {
	mu         sync.RWMutex
	sessions   map[string]*model.CaptureSession
	byAssess   map[string]string // assessmentID -> sessionID
	identities map[string]model.EnrolledIdentity
	images     map[string][]byte

	now func() time.Time
}

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithClock sets the time source used for creation stamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		sessions:   make(map[string]*model.CaptureSession),
		byAssess:   make(map[string]string),
		identities: make(map[string]model.EnrolledIdentity),
		images:     make(map[string][]byte),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateSession creates a session from its first capture.
func (s *MemStore) CreateSession(_ context.Context, subjectID string, first model.Capture) (model.CaptureSession, error) {
	defer trackOp("create_session")()

	s.mu.Lock()
	defer s.mu.Unlock()

	first.ID = uuid.New().String()
	sess := &model.CaptureSession{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Captures:  []model.Capture{first},
		StartTime: first.Timestamp,
		CreatedAt: s.now(),
	}
	s.sessions[sess.ID] = sess

	metrics.RecordSessionCreated()
	metrics.UpdateSessionsTracked(len(s.sessions))

	return copySession(sess), nil
}

// AppendCapture appends a capture to an existing session.
func (s *MemStore) AppendCapture(_ context.Context, sessionID string, c model.Capture) (string, error) {
	defer trackOp("append_capture")()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}

	c.ID = uuid.New().String()
	sess.Captures = append(sess.Captures, c)

	return c.ID, nil
}

// Session returns a copy of a session by identifier.
func (s *MemStore) Session(_ context.Context, sessionID string) (model.CaptureSession, error) {
	defer trackOp("session")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.CaptureSession{}, ErrSessionNotFound
	}
	return copySession(sess), nil
}

// SessionsBySubject returns the subject's sessions, newest first.
func (s *MemStore) SessionsBySubject(_ context.Context, subjectID string) ([]model.CaptureSession, error) {
	defer trackOp("sessions_by_subject")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CaptureSession
	for _, sess := range s.sessions {
		if sess.SubjectID == subjectID {
			out = append(out, copySession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SessionByAssessment returns the session linked to an assessment.
func (s *MemStore) SessionByAssessment(_ context.Context, assessmentID string) (model.CaptureSession, error) {
	defer trackOp("session_by_assessment")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, ok := s.byAssess[assessmentID]
	if !ok {
		return model.CaptureSession{}, ErrSessionNotFound
	}
	return copySession(s.sessions[sessionID]), nil
}

// LinkAssessment links a session to an assessment and stamps its end time.
func (s *MemStore) LinkAssessment(_ context.Context, sessionID, assessmentID string, endTime time.Time) error {
	defer trackOp("link_assessment")()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	sess.LinkedAssessmentID = assessmentID
	s.byAssess[assessmentID] = sessionID

	// The end time is set once and never unset or moved backwards.
	if sess.EndTime == nil || endTime.After(*sess.EndTime) {
		t := endTime
		sess.EndTime = &t
	}

	metrics.RecordSessionLinked()
	return nil
}

// SaveIdentity stores a subject's reference descriptor.
func (s *MemStore) SaveIdentity(_ context.Context, id model.EnrolledIdentity) error {
	defer trackOp("save_identity")()

	s.mu.Lock()
	defer s.mu.Unlock()

	id.Descriptor = append([]float64(nil), id.Descriptor...)
	s.identities[id.SubjectID] = id
	return nil
}

// Identity returns a subject's enrolled identity.
func (s *MemStore) Identity(_ context.Context, subjectID string) (model.EnrolledIdentity, error) {
	defer trackOp("identity")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.identities[subjectID]
	if !ok {
		return model.EnrolledIdentity{}, ErrIdentityNotFound
	}
	id.Descriptor = append([]float64(nil), id.Descriptor...)
	return id, nil
}

// StoreImage persists an image blob and returns an opaque reference.
func (s *MemStore) StoreImage(_ context.Context, data []byte) (string, error) {
	defer trackOp("store_image")()

	s.mu.Lock()
	defer s.mu.Unlock()

	ref := uuid.New().String()
	s.images[ref] = append([]byte(nil), data...)

	metrics.RecordImageStored()
	return ref, nil
}

// Image returns a previously stored blob by reference.
func (s *MemStore) Image(_ context.Context, ref string) ([]byte, error) {
	defer trackOp("image")()

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.images[ref]
	if !ok {
		return nil, ErrImageNotFound
	}
	return append([]byte(nil), data...), nil
}

// Count returns the number of sessions tracked.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// copySession deep-copies a session so the caller can't reach internals.
func copySession(sess *model.CaptureSession) model.CaptureSession {
	out := *sess
	out.Captures = append([]model.Capture(nil), sess.Captures...)
	if sess.EndTime != nil {
		t := *sess.EndTime
		out.EndTime = &t
	}
	return out
}

// trackOp times a repository operation into the latency histogram.
func trackOp(op string) func() {
	start := time.Now()
	return func() {
		metrics.RecordRepositoryOpLatency(op, float64(time.Since(start).Milliseconds()))
	}
}
