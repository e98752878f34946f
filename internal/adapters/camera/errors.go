package camera

import "errors"

// Sentinel kinds for camera errors.
var (
	// ErrUnavailable indicates the device cannot be opened at all
	// (missing hardware, permission denied). Recoverable by user action.
	ErrUnavailable = errors.New("camera unavailable")

	// ErrBusy indicates another holder currently owns the device.
	ErrBusy = errors.New("camera busy")

	// ErrNotAcquired indicates a frame was requested outside an
	// Acquire/Release window.
	ErrNotAcquired = errors.New("camera not acquired")
)
