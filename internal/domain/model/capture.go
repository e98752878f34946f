package model

import "time"

// CaptureKind distinguishes the session-opening capture from captures
// taken while an assessment module is running.
type CaptureKind string

// Capture kinds.
const (
	CaptureInitial    CaptureKind = "initial"
	CaptureDuringTest CaptureKind = "during_test"
)

// Valid reports whether k is one of the defined capture kinds.
func (k CaptureKind) Valid() bool {
	return k == CaptureInitial || k == CaptureDuringTest
}

// Capture is a persisted, accepted emotion observation tied to a session.
// Immutable after creation; sessions only ever append.
type Capture struct {
	ID             string      `json:"id"`
	Emotion        string      `json:"emotion"`
	Confidence     float64     `json:"confidence"` // 0.0-1.0
	Timestamp      time.Time   `json:"timestamp"`
	Kind           CaptureKind `json:"capture_kind"`
	ModuleContext  string      `json:"module_context,omitempty"`  // which assessment module was active
	ImageReference string      `json:"image_reference,omitempty"` // opaque pointer owned by the image store
}

// CaptureSession is the owning aggregate for a subject's emotional record
// across one assessment encounter. Captures are kept in insertion order,
// which equals chronological order.
type CaptureSession struct {
	ID                 string     `json:"id"`
	SubjectID          string     `json:"subject_id"`
	LinkedAssessmentID string     `json:"linked_assessment_id,omitempty"` // set post-hoc
	Captures           []Capture  `json:"captures"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            *time.Time `json:"end_time,omitempty"` // set once on linking, never unset
	CreatedAt          time.Time  `json:"created_at"`
}
