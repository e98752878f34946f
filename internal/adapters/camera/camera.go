// Package camera defines the frame source contract and a synthetic
// implementation used for development and tests.
//
// A source's underlying device handle is exclusively owned: exactly one
// caller may hold it at a time, and release must free it synchronously
// so the device indicator turns off immediately.
package camera

import (
	"context"
	"sync"
	"time"
)

// Frame is one video frame handed to the perception engine.
type Frame struct {
	Data       []byte // encoded image bytes, opaque to the core
	Width      int
	Height     int
	CapturedAt time.Time // capture-device clock
}

// Source supplies a continuous stream of video frames.
type Source interface {
	// Acquire takes exclusive ownership of the device.
	// Returns ErrBusy if another holder is active, or ErrUnavailable if
	// the device cannot be opened (missing hardware, permission denied).
	Acquire(ctx context.Context) error

	// Frame returns the most recent frame. Only valid between Acquire
	// and Release.
	Frame(ctx context.Context) (Frame, error)

	// Release frees the device synchronously. Idempotent.
	Release()
}

// Synthetic is an in-process Source that fabricates frames on demand.
type Synthetic struct {
	mu       sync.Mutex
	acquired bool
	seq      uint64

	width       int
	height      int
	now         func() time.Time
	acquireErr  error // injected acquisition failure
	frameErrSeq map[uint64]error
}

// SyntheticOption applies a configuration option to the Synthetic source.
type SyntheticOption func(*Synthetic)

// WithDimensions sets the fabricated frame dimensions.
func WithDimensions(width, height int) SyntheticOption {
	return func(s *Synthetic) {
		if width > 0 && height > 0 {
			s.width = width
			s.height = height
		}
	}
}

// WithClock sets the time source used to stamp frames.
func WithClock(now func() time.Time) SyntheticOption {
	return func(s *Synthetic) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAcquireError makes Acquire fail with the given error, simulating a
// missing device or denied permission.
func WithAcquireError(err error) SyntheticOption {
	return func(s *Synthetic) {
		s.acquireErr = err
	}
}

// WithFrameError makes the nth Frame call (0-based) fail with err.
func WithFrameError(n uint64, err error) SyntheticOption {
	return func(s *Synthetic) {
		if s.frameErrSeq == nil {
			s.frameErrSeq = make(map[uint64]error)
		}
		s.frameErrSeq[n] = err
	}
}

// NewSynthetic creates a synthetic frame source.
func NewSynthetic(opts ...SyntheticOption) *Synthetic {
	s := &Synthetic{
		width:  640,
		height: 480,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Acquire takes exclusive ownership of the synthetic device.
func (s *Synthetic) Acquire(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquireErr != nil {
		return s.acquireErr
	}
	if s.acquired {
		return ErrBusy
	}
	s.acquired = true
	return nil
}

// Frame fabricates the next frame.
func (s *Synthetic) Frame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return Frame{}, ErrNotAcquired
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if err, ok := s.frameErrSeq[s.seq]; ok {
		s.seq++
		return Frame{}, err
	}

	f := Frame{
		Data:       []byte{byte(s.seq), byte(s.seq >> 8)},
		Width:      s.width,
		Height:     s.height,
		CapturedAt: s.now(),
	}
	s.seq++
	return f, nil
}

// Release frees the synthetic device. Idempotent.
func (s *Synthetic) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired = false
}
