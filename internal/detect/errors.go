package detect

import "errors"

// Sentinel kinds for detection loop errors.
var (
	// ErrDeviceUnavailable is fatal to a loop instance; the user can
	// retry after fixing the device or its permissions.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrAlreadyRunning rejects a second Start on an active loop; the
	// device handle is never shared silently.
	ErrAlreadyRunning = errors.New("detection loop already running")
)
