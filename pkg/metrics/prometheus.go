// Package metrics provides Prometheus metrics for the FACET capture service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the FACET service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Detection Loop Metrics - the heartbeat of the capture engine
	observationsTotal  prometheus.Counter
	facesDetected      prometheus.Counter
	ticksSkipped       prometheus.Counter
	inferenceFailures  prometheus.Counter
	inferenceLatency   prometheus.Histogram
	detectionLoopsLive prometheus.Gauge

	// Capture & Session Metrics
	capturesTotal     prometheus.Counter
	capturesDuplicate prometheus.Counter
	sessionsCreated   prometheus.Counter
	sessionsLinked    prometheus.Counter
	sessionsTracked   prometheus.Gauge

	// Authentication Metrics
	authAttempts  *prometheus.CounterVec
	matchDistance prometheus.Histogram
	authDuration  prometheus.Histogram

	// Repository Metrics
	repositoryOpLatency *prometheus.HistogramVec
	imagesStored        prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Observation Queue Metrics
	observationQueueSize     prometheus.Gauge
	observationQueueCapacity prometheus.Gauge
	observationQueueEnqueued prometheus.Counter
	observationQueueDequeued prometheus.Counter
	observationQueueDropped  prometheus.Counter

	// Monitor Worker Metrics
	monitorProcessingLatency prometheus.Histogram
	monitorWorkersActive     prometheus.Gauge
	monitorCapturesRecorded  prometheus.Counter

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "facet",
		subsystem:        "capture",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.observationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observations_total",
		Help:      "Total number of observations emitted by detection loops",
	})

	m.facesDetected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "faces_detected_total",
		Help:      "Total number of observations with a face present",
	})

	m.ticksSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ticks_skipped_total",
		Help:      "Total number of sampling ticks skipped because inference was still in flight",
	})

	m.inferenceFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inference_failures_total",
		Help:      "Total number of per-tick inference failures degraded to no-face observations",
	})

	m.inferenceLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inference_latency_milliseconds",
		Help:      "Histogram of perception engine inference latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.detectionLoopsLive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detection_loops_live",
		Help:      "Number of detection loops currently sampling",
	})

	m.capturesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "captures_total",
		Help:      "Total number of emotion captures appended to sessions",
	})

	m.capturesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "captures_duplicate_total",
		Help:      "Total number of duplicate capture submissions suppressed",
	})

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_created_total",
		Help:      "Total number of capture sessions created",
	})

	m.sessionsLinked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_linked_total",
		Help:      "Total number of sessions linked to an assessment",
	})

	m.sessionsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_tracked",
		Help:      "Number of capture sessions currently held by the repository",
	})

	m.authAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts by outcome",
	}, []string{"outcome"})

	m.matchDistance = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_distance",
		Help:      "Histogram of descriptor Euclidean distances observed during authentication",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0, 1.5},
	})

	m.authDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "auth_duration_milliseconds",
		Help:      "Histogram of end-to-end authentication flow duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryOpLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_op_latency_milliseconds",
		Help:      "Histogram of repository operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.imagesStored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "images_stored_total",
		Help:      "Total number of capture images persisted",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint, method, and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.observationQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observation_queue_size",
		Help:      "Current number of observations buffered by the monitor queue",
	})

	m.observationQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observation_queue_capacity",
		Help:      "Configured capacity of the monitor observation queue",
	})

	m.observationQueueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observation_queue_enqueued_total",
		Help:      "Total number of observations enqueued for monitoring",
	})

	m.observationQueueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observation_queue_dequeued_total",
		Help:      "Total number of observations handed to monitor workers",
	})

	m.observationQueueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observation_queue_dropped_total",
		Help:      "Total number of observations dropped by the monitor queue",
	})

	m.monitorProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_processing_milliseconds",
		Help:      "Histogram of monitor worker observation processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.monitorWorkersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_workers_active",
		Help:      "Number of monitor workers currently running",
	})

	m.monitorCapturesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitor_captures_total",
		Help:      "Total number of captures recorded by the live monitor",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Histogram of garbage collection pause times in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Detection Loop Metrics Functions.

// RecordObservation increments the observations counter.
func RecordObservation() {
	globalManager.observationsTotal.Inc()
}

// RecordFaceDetected increments the faces detected counter.
func RecordFaceDetected() {
	globalManager.facesDetected.Inc()
}

// RecordTickSkipped increments the skipped ticks counter.
func RecordTickSkipped() {
	globalManager.ticksSkipped.Inc()
}

// RecordInferenceFailure increments the inference failures counter.
func RecordInferenceFailure() {
	globalManager.inferenceFailures.Inc()
}

// RecordInferenceLatency records perception engine latency in milliseconds.
func RecordInferenceLatency(latencyMs float64) {
	globalManager.inferenceLatency.Observe(latencyMs)
}

// UpdateDetectionLoopsLive sets the number of live detection loops.
func UpdateDetectionLoopsLive(count int) {
	globalManager.detectionLoopsLive.Set(float64(count))
}

// Capture & Session Metrics Functions.

// RecordCapture increments the captures counter.
func RecordCapture() {
	globalManager.capturesTotal.Inc()
}

// RecordCaptureDuplicate increments the duplicate capture counter.
func RecordCaptureDuplicate() {
	globalManager.capturesDuplicate.Inc()
}

// RecordSessionCreated increments the sessions created counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionLinked increments the sessions linked counter.
func RecordSessionLinked() {
	globalManager.sessionsLinked.Inc()
}

// UpdateSessionsTracked sets the number of sessions held by the repository.
func UpdateSessionsTracked(count int) {
	globalManager.sessionsTracked.Set(float64(count))
}

// Authentication Metrics Functions.

// RecordAuthAttempt records an authentication attempt with its outcome label.
func RecordAuthAttempt(outcome string) {
	globalManager.authAttempts.WithLabelValues(outcome).Inc()
}

// RecordMatchDistance records a descriptor distance observed during authentication.
func RecordMatchDistance(distance float64) {
	globalManager.matchDistance.Observe(distance)
}

// RecordAuthDuration records the duration of an authentication flow in milliseconds.
func RecordAuthDuration(durationMs float64) {
	globalManager.authDuration.Observe(durationMs)
}

// Repository Metrics Functions.

// RecordRepositoryOpLatency records repository operation latency by operation name.
func RecordRepositoryOpLatency(op string, latencyMs float64) {
	globalManager.repositoryOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordImageStored increments the stored images counter.
func RecordImageStored() {
	globalManager.imagesStored.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request with endpoint, method, and status labels.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Observation Queue Metrics Functions.

// UpdateObservationQueueSize sets the current monitor queue depth.
func UpdateObservationQueueSize(size int) {
	globalManager.observationQueueSize.Set(float64(size))
}

// UpdateObservationQueueCapacity sets the configured monitor queue capacity.
func UpdateObservationQueueCapacity(capacity int) {
	globalManager.observationQueueCapacity.Set(float64(capacity))
}

// RecordObservationEnqueued increments the enqueued observations counter.
func RecordObservationEnqueued() {
	globalManager.observationQueueEnqueued.Inc()
}

// RecordObservationDequeued increments the dequeued observations counter.
func RecordObservationDequeued() {
	globalManager.observationQueueDequeued.Inc()
}

// RecordObservationDropped increments the dropped observations counter.
func RecordObservationDropped() {
	globalManager.observationQueueDropped.Inc()
}

// Monitor Worker Metrics Functions.

// RecordMonitorProcessingLatency records per-observation monitor latency
// in milliseconds.
func RecordMonitorProcessingLatency(latencyMs float64) {
	globalManager.monitorProcessingLatency.Observe(latencyMs)
}

// UpdateMonitorWorkers sets the number of running monitor workers.
func UpdateMonitorWorkers(count int) {
	globalManager.monitorWorkersActive.Set(float64(count))
}

// RecordMonitorCapture increments the monitor-recorded captures counter.
func RecordMonitorCapture() {
	globalManager.monitorCapturesRecorded.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the current heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes float64) {
	globalManager.systemMemoryUsage.Set(bytes)
}

// UpdateSystemGoroutineCount sets the current number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a garbage collection pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
