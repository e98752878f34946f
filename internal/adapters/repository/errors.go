package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrIdentityNotFound = errors.New("identity not found")
	ErrImageNotFound    = errors.New("image not found")
)
