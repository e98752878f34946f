package service

import "errors"

// Service-level sentinel errors.
var (
	// ErrMissingSubject rejects enrollment without a subject id.
	ErrMissingSubject = errors.New("subject id is required")

	// ErrNotStarted rejects operations on a service that was never started.
	ErrNotStarted = errors.New("service not started")

	// ErrMonitorRunning rejects starting a second live monitor.
	ErrMonitorRunning = errors.New("live monitor already running")

	// ErrMonitorNotRunning rejects stopping a monitor that is not running.
	ErrMonitorNotRunning = errors.New("live monitor not running")
)
