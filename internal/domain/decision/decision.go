// Package decision converts raw observations into emotion decisions and
// authentication outcomes by applying the configured thresholds.
package decision

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/pkg/logger"
)

// Default threshold constants.
const (
	// DefaultMatchDistanceMax is the maximum descriptor distance still
	// considered the same identity. Doubles as the scale for match percent.
	DefaultMatchDistanceMax = 0.6

	percentScale = 100
)

// Engine applies confidence and distance thresholds to observations.
type Engine struct {
	matchDistanceMax float64
	logger           logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMatchDistanceMax sets the accept/reject descriptor distance cutoff.
func WithMatchDistanceMax(d float64) Option {
	return func(e *Engine) {
		if d > 0 {
			e.matchDistanceMax = d
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs an Engine with default thresholds.
func New(opts ...Option) *Engine {
	e := &Engine{
		matchDistanceMax: DefaultMatchDistanceMax,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Get().Named("decision")
	}

	return e
}

// MatchDistanceMax returns the configured descriptor distance cutoff.
func (e *Engine) MatchDistanceMax() float64 {
	return e.matchDistanceMax
}

// DecideEmotion selects the dominant emotion from one observation.
//
// The label with the maximum probability wins. Ties are broken by
// lexicographic (byte-wise ascending) order over the label strings: the
// smallest tied label wins. The result never depends on map iteration
// order.
//
// An observation with a face but an empty score map is a contract
// violation by the perception adapter; it is logged and treated as
// face-absent.
func (e *Engine) DecideEmotion(ctx context.Context, obs model.Observation) model.EmotionDecision {
	if !obs.FacePresent {
		return model.EmotionDecision{Accepted: false}
	}

	if len(obs.EmotionScores) == 0 {
		e.logger.Warn(ctx, "face present but no emotion scores; treating as no face")
		return model.EmotionDecision{Accepted: false}
	}

	var (
		best      string
		bestScore = math.Inf(-1)
	)
	for label, score := range obs.EmotionScores {
		switch {
		case score > bestScore:
			best, bestScore = label, score
		case score == bestScore && label < best:
			best = label
		}
	}

	return model.EmotionDecision{
		Emotion:           best,
		ConfidencePercent: round2(bestScore * percentScale),
		Accepted:          true,
	}
}

// MatchDescriptor computes the Euclidean distance between a live
// descriptor and an enrolled one and classifies the attempt.
//
// A missing live descriptor yields a no-face outcome. Vectors of
// mismatched length are a model/version mismatch upstream and return
// ErrInvalidDescriptor; they are never truncated or padded.
func (e *Engine) MatchDescriptor(ctx context.Context, claimedSubjectID string, live []float64, enrolled []float64) (model.AuthenticationAttempt, error) {
	attempt := model.AuthenticationAttempt{
		ClaimedSubjectID: claimedSubjectID,
		LiveDescriptor:   live,
	}

	if len(live) == 0 {
		attempt.Outcome = model.OutcomeNoFace
		return attempt, nil
	}

	if len(live) != len(enrolled) {
		return model.AuthenticationAttempt{}, fmt.Errorf("descriptor length %d does not match enrolled length %d: %w",
			len(live), len(enrolled), ErrInvalidDescriptor)
	}

	var sum float64
	for i := range live {
		d := live[i] - enrolled[i]
		sum += d * d
	}
	distance := math.Sqrt(sum)

	attempt.Distance = distance
	attempt.MatchPercent = round2(math.Max(0, 1-distance/e.matchDistanceMax) * percentScale)

	if distance < e.matchDistanceMax {
		attempt.Outcome = model.OutcomeMatched
	} else {
		attempt.Outcome = model.OutcomeRejected
	}

	return attempt, nil
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
