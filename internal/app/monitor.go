package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/facet/internal/adapters/mq/queue"
	"github.com/okian/facet/internal/adapters/mq/worker"
	repository "github.com/okian/facet/internal/adapters/repository"
	"github.com/okian/facet/internal/detect"
	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/pkg/logger"
	"github.com/okian/facet/pkg/metrics"
)

// monitorModuleContext tags captures recorded by the live monitor.
const monitorModuleContext = "live_monitor"

// MonitorStatus reports the state of the live monitor.
type MonitorStatus struct {
	Running   bool
	SubjectID string
	SessionID string // empty until the first capture opens the session
	Captures  int
	StartedAt time.Time
}

// MonitorSummary reports what a finished monitor run recorded.
type MonitorSummary struct {
	SubjectID string
	SessionID string
	Captures  int
}

// monitorRun holds one running monitor pipeline: a detection loop
// feeding an observation queue drained by a worker pool.
type monitorRun struct {
	subjectID string
	startedAt time.Time
	loop      *detect.Loop
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	recorder  *monitorRecorder
	cancel    context.CancelFunc
	pump      sync.WaitGroup
}

// StartMonitoring begins ambient emotion monitoring for a subject. The
// monitor samples the frame source continuously and records accepted
// emotion decisions as captures; the first recorded capture opens the
// session. Only one monitor runs at a time.
func (s *Service) StartMonitoring(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return fmt.Errorf("start monitoring: %w", ErrMissingSubject)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("start monitoring: %w", ErrNotStarted)
	}
	if s.monitor != nil {
		return fmt.Errorf("start monitoring: %w", ErrMonitorRunning)
	}

	q := queue.NewInMemoryQueue()
	recorder := &monitorRecorder{
		store:     s.store,
		subjectID: subjectID,
		minGap:    s.monitorCaptureGap,
	}
	// A single consumer drains the queue so captures commit in
	// observation order; the session must stay chronological.
	pool := worker.NewPool(1, q, s.decider, recorder)
	loop := detect.New(s.frames, s.perceive,
		detect.WithInterval(s.sampleInterval),
	)

	// The monitor outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.Background())

	observations, err := loop.Start(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start detection loop: %w", err)
	}

	pool.Start(runCtx)

	run := &monitorRun{
		subjectID: subjectID,
		startedAt: time.Now(),
		loop:      loop,
		queue:     q,
		pool:      pool,
		recorder:  recorder,
		cancel:    cancel,
	}

	run.pump.Add(1)
	go func() {
		defer run.pump.Done()
		for obs := range observations {
			q.Enqueue(runCtx, obs)
		}
	}()

	s.monitor = run
	s.logger.Info(ctx, "live monitor started",
		logger.String("subject_id", subjectID),
		logger.Int("capture_gap_ms", int(s.monitorCaptureGap.Milliseconds())),
	)

	return nil
}

// StopMonitoring stops the live monitor and reports what it recorded.
func (s *Service) StopMonitoring(ctx context.Context) (MonitorSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.monitor == nil {
		return MonitorSummary{}, fmt.Errorf("stop monitoring: %w", ErrMonitorNotRunning)
	}

	summary := s.stopMonitorLocked(ctx)
	s.logger.Info(ctx, "live monitor stopped",
		logger.String("subject_id", summary.SubjectID),
		logger.String("session_id", summary.SessionID),
		logger.Int("captures", summary.Captures),
	)

	return summary, nil
}

// MonitorStatus reports whether a monitor is running and its progress.
func (s *Service) MonitorStatus(_ context.Context) MonitorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.monitor == nil {
		return MonitorStatus{}
	}

	sessionID, captures := s.monitor.recorder.progress()
	return MonitorStatus{
		Running:   true,
		SubjectID: s.monitor.subjectID,
		SessionID: sessionID,
		Captures:  captures,
		StartedAt: s.monitor.startedAt,
	}
}

// stopMonitorLocked tears down the running pipeline. Caller holds s.mu.
func (s *Service) stopMonitorLocked(ctx context.Context) MonitorSummary {
	run := s.monitor
	s.monitor = nil

	run.cancel()
	run.loop.Stop()
	run.pump.Wait()
	_ = run.pool.Shutdown(ctx)

	sessionID, captures := run.recorder.progress()
	return MonitorSummary{
		SubjectID: run.subjectID,
		SessionID: sessionID,
		Captures:  captures,
	}
}

// monitorRecorder persists accepted emotion decisions as session
// captures, throttled to at most one capture per minGap.
type monitorRecorder struct {
	store     repository.Store
	subjectID string
	minGap    time.Duration

	mu          sync.Mutex
	sessionID   string
	captures    int
	lastCapture time.Time
}

// RecordEmotion implements worker.Recorder. The first recorded decision
// opens the subject's session; later ones append to it.
func (r *monitorRecorder) RecordEmotion(ctx context.Context, d model.EmotionDecision, observedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.minGap > 0 && !r.lastCapture.IsZero() && observedAt.Sub(r.lastCapture) < r.minGap {
		return false, nil
	}

	capture := model.Capture{
		Emotion:       d.Emotion,
		Confidence:    d.ConfidencePercent / 100,
		Timestamp:     observedAt,
		ModuleContext: monitorModuleContext,
	}

	if r.sessionID == "" {
		capture.Kind = model.CaptureInitial
		sess, err := r.store.CreateSession(ctx, r.subjectID, capture)
		if err != nil {
			return false, fmt.Errorf("create session: %w", err)
		}
		r.sessionID = sess.ID
	} else {
		capture.Kind = model.CaptureDuringTest
		if _, err := r.store.AppendCapture(ctx, r.sessionID, capture); err != nil {
			return false, fmt.Errorf("append capture: %w", err)
		}
	}

	metrics.RecordCapture()
	r.captures++
	r.lastCapture = observedAt
	return true, nil
}

// progress returns the session id and capture count recorded so far.
func (r *monitorRecorder) progress() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID, r.captures
}
