package decision

import "errors"

// Sentinel kinds for decision errors.
var (
	// ErrInvalidDescriptor indicates a descriptor length mismatch,
	// typically an upstream model/version mismatch. Never coerced.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)
