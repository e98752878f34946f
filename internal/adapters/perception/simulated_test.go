package perception_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/facet/internal/adapters/camera"
	"github.com/okian/facet/internal/adapters/perception"
	. "github.com/smartystreets/goconvey/convey"
)

func testFrame() camera.Frame {
	return camera.Frame{
		Data:       []byte{1, 2, 3},
		Width:      640,
		Height:     480,
		CapturedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestSimulatedEngine(t *testing.T) {
	Convey("Given a simulated perception engine", t, func() {
		ctx := context.Background()

		Convey("When a face is always present", func() {
			engine := perception.NewSimulatedEngine(
				perception.WithFaceAbsenceRate(0),
				perception.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
				perception.WithDominantMood("happy"),
			)

			res, err := engine.DetectFace(ctx, perception.Request{Frame: testFrame()})

			Convey("Then the observation carries normalized scores", func() {
				So(err, ShouldBeNil)
				So(res.Observation.FacePresent, ShouldBeTrue)
				So(res.Observation.Timestamp, ShouldEqual, testFrame().CapturedAt)
				So(len(res.Observation.EmotionScores), ShouldEqual, len(perception.EmotionLabels))

				var sum float64
				for _, s := range res.Observation.EmotionScores {
					So(s, ShouldBeBetweenOrEqual, 0, 1)
					sum += s
				}
				So(sum, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("And the mood label dominates", func() {
				best, bestScore := "", -1.0
				for label, s := range res.Observation.EmotionScores {
					if s > bestScore {
						best, bestScore = label, s
					}
				}
				So(best, ShouldEqual, "happy")
			})

			Convey("And an overlay is produced", func() {
				So(res.Overlay, ShouldNotBeNil)
				So(res.Overlay.Box.Width, ShouldBeGreaterThan, 0)
				So(len(res.Overlay.Landmarks), ShouldEqual, 68)
			})

			Convey("And no descriptor is extracted unless requested", func() {
				So(res.Observation.Descriptor, ShouldBeNil)
			})
		})

		Convey("When a descriptor is requested", func() {
			subject := []float64{0.25, 0.5, 0.75, 1.0}
			engine := perception.NewSimulatedEngine(
				perception.WithFaceAbsenceRate(0),
				perception.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
				perception.WithSubjectDescriptor(subject),
			)

			res, err := engine.DetectFace(ctx, perception.Request{Frame: testFrame(), WithDescriptor: true})

			Convey("Then the descriptor jitters around the subject identity", func() {
				So(err, ShouldBeNil)
				So(len(res.Observation.Descriptor), ShouldEqual, len(subject))
				for i, v := range res.Observation.Descriptor {
					So(v, ShouldAlmostEqual, subject[i], 0.02)
				}
			})
		})

		Convey("When faces are never present", func() {
			engine := perception.NewSimulatedEngine(
				perception.WithFaceAbsenceRate(1),
				perception.WithLatencyRange(time.Millisecond, 2*time.Millisecond),
			)

			res, err := engine.DetectFace(ctx, perception.Request{Frame: testFrame()})

			Convey("Then no face is a normal result, not an error", func() {
				So(err, ShouldBeNil)
				So(res.Observation.FacePresent, ShouldBeFalse)
				So(res.Observation.EmotionScores, ShouldBeNil)
				So(res.Observation.Descriptor, ShouldBeNil)
				So(res.Overlay, ShouldBeNil)
			})
		})

		Convey("When the frame is empty", func() {
			engine := perception.NewSimulatedEngine()
			_, err := engine.DetectFace(ctx, perception.Request{})

			Convey("Then it fails with ErrInvalidFrame", func() {
				So(errors.Is(err, perception.ErrInvalidFrame), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled mid-inference", func() {
			engine := perception.NewSimulatedEngine(
				perception.WithFaceAbsenceRate(0),
				perception.WithLatencyRange(50*time.Millisecond, 100*time.Millisecond),
			)
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := engine.DetectFace(cancelled, perception.Request{Frame: testFrame()})

			Convey("Then the cancellation propagates", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When two engines share a seed", func() {
			a := perception.NewSimulatedEngine(perception.WithSeed(7), perception.WithFaceAbsenceRate(0), perception.WithLatencyRange(time.Millisecond, 2*time.Millisecond))
			b := perception.NewSimulatedEngine(perception.WithSeed(7), perception.WithFaceAbsenceRate(0), perception.WithLatencyRange(time.Millisecond, 2*time.Millisecond))

			ra, errA := a.DetectFace(ctx, perception.Request{Frame: testFrame()})
			rb, errB := b.DetectFace(ctx, perception.Request{Frame: testFrame()})

			Convey("Then their output is identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(ra.Observation.EmotionScores, ShouldResemble, rb.Observation.EmotionScores)
			})
		})
	})
}
