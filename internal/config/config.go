// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SampleIntervalMS sets the detection loop cadence in milliseconds.
	SampleIntervalMS int `koanf:"sample_interval_ms"`

	// DetectionThreshold is the minimum face-detection confidence.
	DetectionThreshold float64 `koanf:"detection_threshold"`

	// MatchDistanceMax is the descriptor distance accept cutoff.
	MatchDistanceMax float64 `koanf:"match_distance_max"`

	// DescriptorLength sets the identity descriptor vector length.
	DescriptorLength int `koanf:"descriptor_length"`

	// AuthMaxAttempts caps descriptor evaluations per authentication
	// flow. Zero means retry until cancelled.
	AuthMaxAttempts int `koanf:"auth_max_attempts"`

	// DedupeSize sets the size of the submit deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// InferenceLatencyMinMS and InferenceLatencyMaxMS simulate model
	// inference latency bounds.
	InferenceLatencyMinMS int `koanf:"inference_latency_min_ms"`
	InferenceLatencyMaxMS int `koanf:"inference_latency_max_ms"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use
// and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		SampleIntervalMS:      100,
		DetectionThreshold:    0.1,
		MatchDistanceMax:      0.6,
		DescriptorLength:      128,
		AuthMaxAttempts:       0,
		DedupeSize:            50_000,
		InferenceLatencyMinMS: 15,
		InferenceLatencyMaxMS: 40,
	}
	return c
}
