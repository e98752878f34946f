// Package perception wraps the face-detection, landmark, expression, and
// descriptor models behind one call contract.
//
// "No face found" is a normal result, never an error; an engine errors
// only on internal failure (model not loaded, invalid frame).
package perception

import (
	"context"

	"github.com/okian/facet/internal/adapters/camera"
	"github.com/okian/facet/internal/domain/model"
)

// DefaultDetectionThreshold is the minimum model confidence for a face
// candidate to be reported at all. Deliberately low: recall over
// precision, downstream acceptance is a separate concern.
const DefaultDetectionThreshold = 0.1

// EmotionLabels is the fixed label set produced by the expression model.
var EmotionLabels = []string{
	"angry", "disgusted", "fearful", "happy", "neutral", "sad", "surprised",
}

// Request carries one frame into the engine.
type Request struct {
	Frame camera.Frame

	// WithDescriptor asks the engine to also extract the identity
	// descriptor. Slower; only authentication flows need it.
	WithDescriptor bool
}

// Result is the engine's verdict for one frame.
type Result struct {
	Observation model.Observation

	// Overlay carries drawable detection geometry when a face is
	// present. Presentational only.
	Overlay *model.Overlay
}

// Engine computes a perception result for a frame. Implementations may
// be remote or compute-bound; they must honor ctx for cancellation.
type Engine interface {
	DetectFace(ctx context.Context, req Request) (Result, error)
}
