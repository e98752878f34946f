package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if FACET_CONFIG is set
//  3. env (prefix FACET_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("FACET_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: FACET_ADDR, FACET_SAMPLE_INTERVAL_MS, ...
	// Map env keys like FACET_SAMPLE_INTERVAL_MS -> sample_interval_ms
	// (flat keys). Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("FACET_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "facet_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.SampleIntervalMS <= 0 {
		return nil, fmt.Errorf("%w: sample_interval_ms must be positive", ErrInvalidConfig)
	}
	if cfg.MatchDistanceMax <= 0 {
		return nil, fmt.Errorf("%w: match_distance_max must be positive", ErrInvalidConfig)
	}
	if cfg.DescriptorLength <= 0 {
		return nil, fmt.Errorf("%w: descriptor_length must be positive", ErrInvalidConfig)
	}
	if cfg.InferenceLatencyMinMS <= 0 || cfg.InferenceLatencyMaxMS < cfg.InferenceLatencyMinMS {
		return nil, fmt.Errorf("%w: inference latency bounds must satisfy 0 < min <= max", ErrInvalidConfig)
	}
	return &cfg, nil
}
