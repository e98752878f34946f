// Package detect implements the detection loop: fixed-cadence sampling
// of the frame source into a stream of observations.
//
// At most one inference is in flight at any time. A tick that fires
// while the previous inference is still running is skipped outright (no
// queueing), which bounds backlog and keeps observations temporally
// fresh rather than exhaustive.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/facet/internal/adapters/camera"
	"github.com/okian/facet/internal/adapters/perception"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/pkg/logger"
	"github.com/okian/facet/pkg/metrics"
)

// Default loop configuration constants.
const (
	// DefaultInterval is the sampling cadence.
	DefaultInterval = 100 * time.Millisecond

	observationBuffer = 16
)

// liveLoops tracks how many loops are currently sampling, across instances.
var liveLoops atomic.Int64 //nolint:gochecknoglobals // feeds a process-wide gauge

// Loop samples the frame source at a fixed cadence and emits one
// observation per completed tick.
type Loop struct {
	src    camera.Source
	engine perception.Engine

	interval        time.Duration
	withDescriptors bool
	overlaySink     func(model.Overlay)
	logger          logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	obs     chan model.Observation
	err     error

	inflight atomic.Bool
	wg       sync.WaitGroup
}

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithInterval sets the sampling cadence.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithDescriptors asks the engine for identity descriptors on every
// face-bearing tick. Authentication flows need this; emotion capture
// does not.
func WithDescriptors(enabled bool) Option {
	return func(l *Loop) {
		l.withDescriptors = enabled
	}
}

// WithOverlaySink installs a callback that receives drawable detection
// geometry for face-bearing ticks. Presentational only; the sink must
// not block.
func WithOverlaySink(sink func(model.Overlay)) Option {
	return func(l *Loop) {
		l.overlaySink = sink
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New constructs a detection loop over a frame source and an engine.
func New(src camera.Source, engine perception.Engine, opts ...Option) *Loop {
	l := &Loop{
		src:      src,
		engine:   engine,
		interval: DefaultInterval,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = logger.Get().Named("detect")
	}

	return l
}

// Start acquires the frame source and begins sampling. The returned
// channel delivers observations in non-decreasing timestamp order and
// is closed when the loop stops.
//
// A loop that is already running returns ErrAlreadyRunning; the frame
// source is never shared silently. Acquisition failure is fatal and
// reported as ErrDeviceUnavailable.
func (l *Loop) Start(ctx context.Context) (<-chan model.Observation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil, ErrAlreadyRunning
	}

	if err := l.src.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire frame source: %w: %w", ErrDeviceUnavailable, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.obs = make(chan model.Observation, observationBuffer)
	l.err = nil
	l.running = true

	metrics.UpdateDetectionLoopsLive(int(liveLoops.Add(1)))
	l.logger.Info(ctx, "detection loop started",
		logger.Int("interval_ms", int(l.interval.Milliseconds())),
		logger.Bool("descriptors", l.withDescriptors),
	)

	go l.run(loopCtx)

	return l.obs, nil
}

// Stop halts sampling, releases the frame source synchronously, and
// discards any in-flight inference result. Idempotent and safe to call
// at any time.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.done == nil {
		l.mu.Unlock()
		return
	}
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
}

// Err returns the terminal error after the observation channel closed,
// or nil for a clean stop.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// run drives the ticker until the loop context is cancelled.
func (l *Loop) run(ctx context.Context) {
	defer func() {
		// Release the device before draining so the camera indicator
		// turns off as soon as sampling ends.
		l.src.Release()
		l.wg.Wait() // no in-flight inference may outlive the loop
		close(l.obs)
		metrics.UpdateDetectionLoopsLive(int(liveLoops.Add(-1)))
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		close(l.done)
	}()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.inflight.CompareAndSwap(false, true) {
				// Previous inference still running; keep fresh, drop this tick.
				metrics.RecordTickSkipped()
				continue
			}
			if fatal := l.tick(ctx); fatal != nil {
				l.setErr(fatal)
				return
			}
		}
	}
}

// tick runs one sample. A non-nil return is fatal to the loop.
func (l *Loop) tick(ctx context.Context) error {
	frame, err := l.src.Frame(ctx)
	if err != nil {
		l.inflight.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, camera.ErrUnavailable) || errors.Is(err, camera.ErrNotAcquired) {
			l.logger.Error(ctx, "frame source lost", logger.Error(err))
			return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		// One bad frame degrades to a no-face tick.
		l.logger.Warn(ctx, "frame read failed", logger.Error(err))
		metrics.RecordInferenceFailure()
		l.emit(ctx, model.Observation{Timestamp: time.Now()})
		return nil
	}

	// Inference runs off the ticker goroutine so the cadence holds and
	// overlapping ticks are observed (and skipped) rather than queued.
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.infer(ctx, frame)
	}()
	return nil
}

// infer submits one frame to the perception engine and emits the
// resulting observation.
func (l *Loop) infer(ctx context.Context, frame camera.Frame) {
	defer l.inflight.Store(false)

	start := time.Now()
	res, err := l.engine.DetectFace(ctx, perception.Request{
		Frame:          frame,
		WithDescriptor: l.withDescriptors,
	})
	metrics.RecordInferenceLatency(float64(time.Since(start).Milliseconds()))

	if ctx.Err() != nil {
		// Late result after stop: discard.
		return
	}

	obs := res.Observation
	if err != nil {
		// A single inference failure degrades this tick to no-face.
		l.logger.Warn(ctx, "inference failed; treating tick as no face", logger.Error(err))
		metrics.RecordInferenceFailure()
		metrics.RecordErrorByComponent("detect", "inference_failure")
		obs = model.Observation{Timestamp: frame.CapturedAt}
	}

	if obs.FacePresent {
		metrics.RecordFaceDetected()
		if l.overlaySink != nil && res.Overlay != nil {
			l.overlaySink(*res.Overlay)
		}
	}

	l.emit(ctx, obs)
}

// emit delivers one observation, abandoning it if the loop stops first.
func (l *Loop) emit(ctx context.Context, obs model.Observation) {
	select {
	case l.obs <- obs:
		metrics.RecordObservation()
	case <-ctx.Done():
	}
}

func (l *Loop) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}
