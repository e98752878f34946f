package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			metricPrefixOpt := WithMetricPrefix("test-prefix")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(metricPrefixOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(customLabelsOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithMetricPrefix("test-prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test", "version": "1.0"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording detection loop metrics", func() {
			Convey("Then it should record observations", func() {
				So(func() {
					RecordObservation()
					RecordFaceDetected()
					RecordTickSkipped()
					RecordInferenceFailure()
					RecordInferenceLatency(42.0)
					UpdateDetectionLoopsLive(1)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording capture and session metrics", func() {
			Convey("Then it should record without panicking", func() {
				So(func() {
					RecordCapture()
					RecordCaptureDuplicate()
					RecordSessionCreated()
					RecordSessionLinked()
					UpdateSessionsTracked(3)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording authentication metrics", func() {
			Convey("Then it should record by outcome", func() {
				So(func() {
					RecordAuthAttempt("matched")
					RecordAuthAttempt("rejected")
					RecordAuthAttempt("no-face")
					RecordMatchDistance(0.35)
					RecordAuthDuration(250.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording repository metrics", func() {
			Convey("Then it should record operation latencies", func() {
				So(func() {
					RecordRepositoryOpLatency("append_capture", 1.5)
					RecordRepositoryOpLatency("create_session", 2.0)
					RecordImageStored()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording HTTP metrics", func() {
			Convey("Then it should record requests and durations", func() {
				So(func() {
					RecordHTTPRequest("captures", "POST", "201")
					RecordHTTPRequestDuration("captures", "POST", "201", 12.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording error metrics", func() {
			Convey("Then it should record by component", func() {
				So(func() {
					RecordErrorByComponent("detect", "inference_failure")
					RecordErrorByComponent("repository", "not_found")
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global metrics registry", t, func() {
		Convey("When retrieving it", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil", func() {
				So(registry, ShouldNotBeNil)
			})
		})
	})
}
