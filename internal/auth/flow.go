// Package auth implements the camera-driven authentication flow: a
// subject claims an identity, live descriptors are matched against the
// enrolled one, and the flow retries tick after tick until a match
// succeeds, the attempt cap is reached, or the caller cancels.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/facet/internal/domain/decision"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/pkg/logger"
	"github.com/okian/facet/pkg/metrics"
)

// Sampler supplies the live observation stream for a flow, normally a
// detection loop configured to produce descriptors.
type Sampler interface {
	Start(ctx context.Context) (<-chan model.Observation, error)
	Stop()
}

// Flow runs authentication attempts over a live observation stream.
type Flow struct {
	sampler Sampler
	engine  *decision.Engine
	logger  logger.Logger

	// maxAttempts caps evaluated descriptors; zero means retry until
	// the caller cancels. No-face ticks never count against the cap.
	maxAttempts int
}

// Option applies a configuration option to the Flow.
type Option func(*Flow)

// WithMaxAttempts caps how many live descriptors are evaluated before
// the flow gives up. Zero or negative means unbounded.
func WithMaxAttempts(n int) Option {
	return func(f *Flow) {
		f.maxAttempts = n
	}
}

// WithLogger sets a custom logger for the flow.
func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// New constructs a Flow over a sampler and a decision engine.
func New(sampler Sampler, engine *decision.Engine, opts ...Option) *Flow {
	f := &Flow{
		sampler: sampler,
		engine:  engine,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = logger.Get().Named("auth")
	}

	return f
}

// Run authenticates the claimed identity against the live stream.
//
// Each face-bearing observation is matched against the enrolled
// descriptor; failed attempts are retried on the next tick rather than
// ending the flow. Run returns the matching attempt on success, or the
// last evaluated attempt together with a reason when the flow ends
// without one: ctx.Err() on cancellation, ErrAttemptsExhausted when the
// cap is hit, ErrStreamEnded when the sampler stops on its own.
func (f *Flow) Run(ctx context.Context, enrolled model.EnrolledIdentity) (model.AuthenticationAttempt, error) {
	stream, err := f.sampler.Start(ctx)
	if err != nil {
		return model.AuthenticationAttempt{}, fmt.Errorf("start sampler: %w", err)
	}
	defer f.sampler.Stop()

	start := time.Now()
	defer func() {
		metrics.RecordAuthDuration(float64(time.Since(start).Milliseconds()))
	}()

	f.logger.Info(ctx, "authentication flow started",
		logger.String("subject_id", enrolled.SubjectID),
		logger.Int("max_attempts", f.maxAttempts),
	)

	var last model.AuthenticationAttempt
	evaluated := 0

	for {
		select {
		case <-ctx.Done():
			f.logger.Info(ctx, "authentication flow cancelled",
				logger.String("subject_id", enrolled.SubjectID),
				logger.Int("attempts", evaluated),
			)
			return last, ctx.Err()

		case obs, ok := <-stream:
			if !ok {
				metrics.RecordErrorByComponent("auth", "stream_ended")
				return last, ErrStreamEnded
			}

			attempt, err := f.engine.MatchDescriptor(ctx, enrolled.SubjectID, obs.Descriptor, enrolled.Descriptor)
			if err != nil {
				metrics.RecordErrorByComponent("auth", "invalid_descriptor")
				return last, fmt.Errorf("match descriptor: %w", err)
			}

			last = attempt
			metrics.RecordAuthAttempt(string(attempt.Outcome))

			if attempt.Outcome == model.OutcomeNoFace {
				// Nothing to evaluate this tick; wait for the next frame.
				continue
			}

			evaluated++
			metrics.RecordMatchDistance(attempt.Distance)

			if attempt.Outcome == model.OutcomeMatched {
				f.logger.Info(ctx, "subject authenticated",
					logger.String("subject_id", enrolled.SubjectID),
					logger.Float64("distance", attempt.Distance),
					logger.Int("attempts", evaluated),
				)
				return attempt, nil
			}

			f.logger.Debug(ctx, "authentication attempt rejected",
				logger.String("subject_id", enrolled.SubjectID),
				logger.Float64("distance", attempt.Distance),
				logger.Int("attempts", evaluated),
			)

			if f.maxAttempts > 0 && evaluated >= f.maxAttempts {
				f.logger.Warn(ctx, "authentication attempts exhausted",
					logger.String("subject_id", enrolled.SubjectID),
					logger.Int("attempts", evaluated),
				)
				return last, ErrAttemptsExhausted
			}
		}
	}
}
