// Package model contains domain models passed between layers.
package model

import "time"

// Observation represents a single perception result for one sampled frame.
// EmotionScores and Descriptor are only set when FacePresent is true; an
// absent face carries neither (they stay nil, never zeroed).
type Observation struct {
	Timestamp     time.Time          // capture-device clock
	FacePresent   bool               // whether a face was found this tick
	EmotionScores map[string]float64 // emotion label -> probability in [0,1]
	Descriptor    []float64          // identity signature, set only when requested
}

// Overlay carries the drawable detection geometry for one observation.
// Purely presentational; never part of a decision.
type Overlay struct {
	Box       Rect
	Landmarks []Point
}

// Rect is a face bounding box in frame coordinates.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Point is a single landmark position in frame coordinates.
type Point struct {
	X, Y float64
}

// EmotionDecision is the Decision Engine's verdict for one observation.
type EmotionDecision struct {
	Emotion           string
	ConfidencePercent float64 // 0-100, rounded to 2 decimals
	Accepted          bool
}

// AuthOutcome classifies the result of one authentication attempt.
type AuthOutcome string

// Authentication attempt outcomes.
const (
	OutcomeMatched  AuthOutcome = "matched"
	OutcomeRejected AuthOutcome = "rejected"
	OutcomeNoFace   AuthOutcome = "no-face"
)

// AuthenticationAttempt is the transient result of matching one live
// descriptor against an enrolled one. Never persisted.
type AuthenticationAttempt struct {
	ClaimedSubjectID string
	LiveDescriptor   []float64
	Distance         float64
	MatchPercent     float64
	Outcome          AuthOutcome
}

// EnrolledIdentity holds a subject's reference descriptor. Read-only to
// the capture and authentication flows.
type EnrolledIdentity struct {
	SubjectID  string
	Descriptor []float64
}
