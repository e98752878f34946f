// Package repository defines the persistence gateway interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/facet/internal/domain/model"
)

// Store provides durable access to capture sessions, enrolled
// identities, and image blobs.
//
// Sessions exclusively own their captures: captures are stored and read
// back in the order they were appended, and a stored capture is never
// mutated or deleted.
type Store interface {
	// CreateSession creates a session owned by subjectID from its first
	// capture and returns the stored session.
	CreateSession(ctx context.Context, subjectID string, first model.Capture) (model.CaptureSession, error)

	// AppendCapture appends a capture to an existing session and returns
	// the new capture's identifier.
	// Returns ErrSessionNotFound if the session is unknown.
	AppendCapture(ctx context.Context, sessionID string, c model.Capture) (string, error)

	// Session returns a copy of the session by identifier.
	// Returns ErrSessionNotFound if unknown.
	Session(ctx context.Context, sessionID string) (model.CaptureSession, error)

	// SessionsBySubject returns the subject's sessions, newest first.
	SessionsBySubject(ctx context.Context, subjectID string) ([]model.CaptureSession, error)

	// SessionByAssessment returns the session linked to an assessment.
	// Returns ErrSessionNotFound if no session is linked to it.
	SessionByAssessment(ctx context.Context, assessmentID string) (model.CaptureSession, error)

	// LinkAssessment links a session to an assessment and stamps the
	// session's end time. A set end time is never unset or decreased.
	LinkAssessment(ctx context.Context, sessionID, assessmentID string, endTime time.Time) error

	// SaveIdentity stores a subject's reference descriptor, replacing
	// any previous enrollment.
	SaveIdentity(ctx context.Context, id model.EnrolledIdentity) error

	// Identity returns a subject's enrolled identity.
	// Returns ErrIdentityNotFound if the subject never enrolled.
	Identity(ctx context.Context, subjectID string) (model.EnrolledIdentity, error)

	// StoreImage persists an image blob and returns an opaque reference.
	StoreImage(ctx context.Context, data []byte) (string, error)

	// Image returns a previously stored blob by reference.
	Image(ctx context.Context, ref string) ([]byte, error)

	// Count returns the number of sessions tracked.
	Count(ctx context.Context) int
}
