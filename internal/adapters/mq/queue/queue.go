// Package queue buffers detection-loop observations for the live
// monitor pipeline.
//
// The queue decouples the fixed-cadence detection loop from monitor
// workers: the loop never blocks on a slow consumer, and observations
// that cannot be buffered are dropped and counted rather than queued
// without bound.
package queue

import (
	"context"
	"sync"

	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity   = 1024
	defaultBufferSize = 1024
)

// Observation is the payload type flowing through the queue.
type Observation = model.Observation

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an observation to the queue.
	// Returns false if the observation was dropped.
	Enqueue(ctx context.Context, obs Observation) bool

	// Dequeue returns a channel that receives observations as they
	// become available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Observation

	// Len returns the current number of buffered observations.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new observations
	// can be enqueued and the dequeue channel drains then closes.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	observations chan Observation
	capacity     int
	bufferSize   int
	mu           sync.RWMutex
	closed       bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultCapacity,
		bufferSize: defaultBufferSize,
	}

	// Apply all options
	for _, opt := range opts {
		opt(q)
	}

	q.observations = make(chan Observation, q.bufferSize)

	metrics.UpdateObservationQueueCapacity(q.capacity)
	metrics.UpdateObservationQueueSize(0)

	return q
}

// Enqueue adds an observation to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, obs Observation) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordObservationDropped()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.observations) >= q.capacity {
		metrics.RecordObservationDropped()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.observations <- obs:
		metrics.RecordObservationEnqueued()
		metrics.UpdateObservationQueueSize(len(q.observations))
		return true
	case <-ctx.Done():
		metrics.RecordObservationDropped()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordObservationDropped()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives observations as they become
// available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Observation {
	out := make(chan Observation)
	go func() {
		defer close(out)
		for obs := range q.observations {
			select {
			case out <- obs:
				metrics.RecordObservationDequeued()
				metrics.UpdateObservationQueueSize(len(q.observations))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered observations.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.observations)
	metrics.UpdateObservationQueueSize(size)
	return size
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.observations)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
