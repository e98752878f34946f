package queue

import (
	"context"
	"testing"
	"time"

	"github.com/okian/facet/internal/domain/model"
)

func obsAt(seq int) model.Observation {
	return model.Observation{
		Timestamp:     time.Unix(int64(seq), 0),
		FacePresent:   true,
		EmotionScores: map[string]float64{"neutral": 0.9},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Test empty queue
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	// Test enqueue
	first := obsAt(1)
	if !q.Enqueue(ctx, first) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	// Test dequeue
	obsChan := q.Dequeue(ctx)
	obs := <-obsChan
	if !obs.Timestamp.Equal(first.Timestamp) {
		t.Errorf("expected timestamp %v, got %v", first.Timestamp, obs.Timestamp)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	// Fill the queue
	if !q.Enqueue(ctx, obsAt(1)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, obsAt(2)) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, obsAt(3)) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numObservations := 100

	// Start producer goroutines
	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numObservations; j++ {
				obs := obsAt(id*numObservations + j)
				for !q.Enqueue(ctx, obs) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	// Start consumer goroutines
	consumed := make(chan time.Time, numGoroutines*numObservations)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			obsChan := q.Dequeue(ctx)
			for obs := range obsChan {
				consumed <- obs.Timestamp
			}
		}()
	}

	// Wait for producers to finish
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	// Check final queue length
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	// Enqueue some observations
	if !q.Enqueue(ctx, obsAt(1)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, obsAt(2)) {
		t.Error("expected enqueue to succeed")
	}

	// Check initial state
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	// Close the queue
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	// Check closed state
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Try to enqueue after closing (should fail)
	if q.Enqueue(ctx, obsAt(3)) {
		t.Error("expected enqueue to fail after closing")
	}

	// Dequeue channel drains the buffered observations, then closes
	obsChan := q.Dequeue(ctx)

	timeout := time.After(100 * time.Millisecond)
	received := 0
	for {
		select {
		case _, ok := <-obsChan:
			if !ok {
				if received != 2 {
					t.Errorf("expected 2 drained observations, got %d", received)
				}
				goto channelClosed
			}
			received++
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
