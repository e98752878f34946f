// Package api declares HTTP contracts and route registration helpers.
package api

// This file contains common types and utilities for the API package.
// Most utility functions are defined in http.go to avoid circular dependencies.
