package auth

import "errors"

// Sentinel kinds for authentication flow errors.
var (
	// ErrAttemptsExhausted ends a flow whose attempt cap was reached
	// without a match.
	ErrAttemptsExhausted = errors.New("authentication attempts exhausted")

	// ErrStreamEnded reports that the observation stream closed before
	// a match was found, typically a device failure mid-flow.
	ErrStreamEnded = errors.New("observation stream ended")
)
