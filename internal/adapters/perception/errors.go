package perception

import "errors"

// Sentinel kinds for perception errors.
var (
	// ErrInvalidFrame indicates the frame could not be processed.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrModelNotLoaded indicates the underlying models are not ready.
	ErrModelNotLoaded = errors.New("model not loaded")
)
