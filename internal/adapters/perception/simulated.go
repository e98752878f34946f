package perception

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/facet/internal/adapters/camera"
	"github.com/okian/facet/internal/domain/model"
)

// Default simulated engine configuration constants.
const (
	defaultMinLatency       = 15 * time.Millisecond
	defaultMaxLatency       = 40 * time.Millisecond
	defaultRandomSeed       = 42
	defaultDescriptorLength = 128
	defaultFaceAbsenceRate  = 0.05
	defaultDescriptorJitter = 0.01
	landmarkCount           = 68
)

// Option applies a configuration option to the SimulatedEngine.
type Option func(*SimulatedEngine)

// WithDetectionThreshold sets the minimum confidence for reporting a face.
func WithDetectionThreshold(t float64) Option {
	return func(e *SimulatedEngine) {
		if t >= 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithLatencyRange sets the simulated inference latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(e *SimulatedEngine) {
		if minLatency > 0 && maxLatency > minLatency {
			e.minLatency = minLatency
			e.maxLatency = maxLatency
		}
	}
}

// WithDescriptorLength sets the length of generated descriptors.
func WithDescriptorLength(n int) Option {
	return func(e *SimulatedEngine) {
		if n > 0 {
			e.descriptorLength = n
		}
	}
}

// WithFaceAbsenceRate sets the fraction of frames reported face-absent.
func WithFaceAbsenceRate(rate float64) Option {
	return func(e *SimulatedEngine) {
		if rate >= 0 && rate <= 1 {
			e.faceAbsenceRate = rate
		}
	}
}

// WithSubjectDescriptor pins the identity descriptor the simulated face
// carries; extracted descriptors jitter around it.
func WithSubjectDescriptor(d []float64) Option {
	return func(e *SimulatedEngine) {
		if len(d) > 0 {
			e.identity = append([]float64(nil), d...)
			e.descriptorLength = len(d)
		}
	}
}

// WithDominantMood biases generated expression scores toward one label.
func WithDominantMood(label string) Option {
	return func(e *SimulatedEngine) {
		if label != "" {
			e.mood = label
		}
	}
}

// WithSeed sets the random seed for deterministic output.
func WithSeed(seed int64) Option {
	return func(e *SimulatedEngine) {
		e.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible simulation
	}
}

// SimulatedEngine implements Engine without any real model, fabricating
// plausible detections with simulated inference latency.
type SimulatedEngine struct {
	threshold        float64
	minLatency       time.Duration
	maxLatency       time.Duration
	descriptorLength int
	faceAbsenceRate  float64
	identity         []float64
	mood             string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedEngine creates a simulated perception engine.
func NewSimulatedEngine(opts ...Option) *SimulatedEngine {
	e := &SimulatedEngine{
		threshold:        DefaultDetectionThreshold,
		minLatency:       defaultMinLatency,
		maxLatency:       defaultMaxLatency,
		descriptorLength: defaultDescriptorLength,
		faceAbsenceRate:  defaultFaceAbsenceRate,
		mood:             "neutral",
		rng:              rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.identity == nil {
		e.identity = make([]float64, e.descriptorLength)
		for i := range e.identity {
			e.identity[i] = e.rng.Float64()
		}
	}

	return e
}

// DetectFace fabricates a perception result for the frame.
func (e *SimulatedEngine) DetectFace(ctx context.Context, req Request) (Result, error) {
	if len(req.Frame.Data) == 0 {
		return Result{}, fmt.Errorf("empty frame: %w", ErrInvalidFrame)
	}

	latency := e.minLatency
	if e.maxLatency > e.minLatency {
		e.mu.Lock()
		latency += time.Duration(e.rng.Int63n(int64(e.maxLatency - e.minLatency)))
		e.mu.Unlock()
	}

	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("inference cancelled: %w", ctx.Err())
	case <-time.After(latency):
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	obs := model.Observation{Timestamp: req.Frame.CapturedAt}

	if e.rng.Float64() < e.faceAbsenceRate {
		return Result{Observation: obs}, nil
	}

	scores := e.generateScores()
	if maxScore(scores) < e.threshold {
		// Below the detection threshold no candidate is reported at all.
		return Result{Observation: obs}, nil
	}

	obs.FacePresent = true
	obs.EmotionScores = scores
	if req.WithDescriptor {
		obs.Descriptor = e.generateDescriptor()
	}

	return Result{
		Observation: obs,
		Overlay:     e.generateOverlay(req.Frame),
	}, nil
}

// generateScores produces a normalized score map biased toward the mood.
func (e *SimulatedEngine) generateScores() map[string]float64 {
	scores := make(map[string]float64, len(EmotionLabels))
	var sum float64
	for _, label := range EmotionLabels {
		w := e.rng.Float64() * 0.3
		if label == e.mood {
			w += 1.0
		}
		scores[label] = w
		sum += w
	}
	for label := range scores {
		scores[label] /= sum
	}
	return scores
}

// generateDescriptor jitters the pinned identity vector.
func (e *SimulatedEngine) generateDescriptor() []float64 {
	d := make([]float64, len(e.identity))
	for i, v := range e.identity {
		d[i] = v + (e.rng.Float64()-0.5)*defaultDescriptorJitter
	}
	return d
}

// generateOverlay fabricates a centered bounding box plus landmarks.
func (e *SimulatedEngine) generateOverlay(f camera.Frame) *model.Overlay {
	w := float64(f.Width)
	h := float64(f.Height)
	box := model.Rect{X: w / 4, Y: h / 4, Width: w / 2, Height: h / 2}

	landmarks := make([]model.Point, landmarkCount)
	for i := range landmarks {
		landmarks[i] = model.Point{
			X: box.X + e.rng.Float64()*box.Width,
			Y: box.Y + e.rng.Float64()*box.Height,
		}
	}

	return &model.Overlay{Box: box, Landmarks: landmarks}
}

func maxScore(scores map[string]float64) float64 {
	var best float64
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return best
}
