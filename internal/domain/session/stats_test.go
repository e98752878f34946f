package session_test

import (
	"testing"
	"time"

	"github.com/okian/facet/internal/domain/model"
	"github.com/okian/facet/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestComputeStatistics(t *testing.T) {
	t0 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	Convey("Given a session created from a single initial capture", t, func() {
		s := model.CaptureSession{
			ID:        "sess-1",
			SubjectID: "subject-1",
			StartTime: t0,
			Captures: []model.Capture{
				{ID: "c1", Emotion: "happy", Confidence: 0.82, Timestamp: t0, Kind: model.CaptureInitial},
			},
		}

		Convey("When computing statistics", func() {
			stats := session.Compute(s)

			Convey("Then counts, dominant emotion, and average match the capture", func() {
				So(stats.TotalCaptures, ShouldEqual, 1)
				So(stats.EmotionCounts["happy"], ShouldEqual, 1)
				So(stats.DominantEmotion, ShouldNotBeNil)
				So(stats.DominantEmotion.Emotion, ShouldEqual, "happy")
				So(stats.DominantEmotion.Count, ShouldEqual, 1)
				So(stats.AverageConfidence, ShouldEqual, 0.82)
			})

			Convey("And the session is still open", func() {
				So(stats.TestDurationMinutes, ShouldBeNil)
			})
		})
	})

	Convey("Given a session with a during-test capture and an assessment link", t, func() {
		end := t0.Add(6 * time.Minute)
		s := model.CaptureSession{
			ID:        "sess-2",
			SubjectID: "subject-1",
			StartTime: t0,
			EndTime:   &end,
			Captures: []model.Capture{
				{ID: "c1", Emotion: "happy", Confidence: 0.82, Timestamp: t0, Kind: model.CaptureInitial},
				{ID: "c2", Emotion: "neutral", Confidence: 0.5, Timestamp: t0.Add(5 * time.Minute), Kind: model.CaptureDuringTest, ModuleContext: "moduleA"},
			},
		}

		Convey("When computing statistics", func() {
			stats := session.Compute(s)

			Convey("Then duration is rounded to minutes", func() {
				So(stats.TestDurationMinutes, ShouldNotBeNil)
				So(*stats.TestDurationMinutes, ShouldEqual, 6)
			})

			Convey("And module grouping contains only module captures", func() {
				So(stats.EmotionsByModule, ShouldContainKey, "moduleA")
				So(len(stats.EmotionsByModule["moduleA"]), ShouldEqual, 1)
				So(stats.EmotionsByModule["moduleA"][0].Emotion, ShouldEqual, "neutral")
				So(stats.EmotionsByModule["moduleA"][0].Confidence, ShouldEqual, 0.5)
				So(stats.EmotionsByModule["moduleA"][0].Timestamp, ShouldEqual, t0.Add(5*time.Minute))
			})

			Convey("And captures without a module still count toward totals", func() {
				So(stats.TotalCaptures, ShouldEqual, 2)
				So(stats.EmotionCounts["happy"], ShouldEqual, 1)
				So(stats.EmotionCounts["neutral"], ShouldEqual, 1)
				So(stats.AverageConfidence, ShouldEqual, 0.66)
			})
		})
	})

	Convey("Given two emotions tied at one capture each", t, func() {
		s := model.CaptureSession{
			ID:        "sess-3",
			SubjectID: "subject-1",
			StartTime: t0,
			Captures: []model.Capture{
				{ID: "c1", Emotion: "happy", Confidence: 0.6, Timestamp: t0, Kind: model.CaptureInitial},
				{ID: "c2", Emotion: "sad", Confidence: 0.7, Timestamp: t0.Add(time.Minute), Kind: model.CaptureDuringTest},
			},
		}

		Convey("When computing statistics repeatedly", func() {
			Convey("Then the earliest-occurring emotion always wins", func() {
				for i := 0; i < 50; i++ {
					stats := session.Compute(s)
					So(stats.DominantEmotion.Emotion, ShouldEqual, "happy")
					So(stats.DominantEmotion.Count, ShouldEqual, 1)
				}
			})
		})
	})

	Convey("Given a session with no captures", t, func() {
		s := model.CaptureSession{ID: "sess-4", SubjectID: "subject-1", StartTime: t0}

		Convey("When computing statistics", func() {
			stats := session.Compute(s)

			Convey("Then average confidence is zero, not an error", func() {
				So(stats.TotalCaptures, ShouldEqual, 0)
				So(stats.AverageConfidence, ShouldEqual, 0)
				So(stats.DominantEmotion, ShouldBeNil)
			})
		})
	})
}

func TestValidateCapture(t *testing.T) {
	t0 := time.Now()

	Convey("Given capture validation", t, func() {
		valid := model.Capture{
			Emotion:    "happy",
			Confidence: 0.82,
			Timestamp:  t0,
			Kind:       model.CaptureInitial,
		}

		Convey("When all required fields are present", func() {
			So(session.ValidateCapture(valid), ShouldBeNil)
		})

		Convey("When the emotion is missing", func() {
			c := valid
			c.Emotion = ""
			err := session.ValidateCapture(c)

			Convey("Then the error names the field", func() {
				So(err, ShouldNotBeNil)
				var verr *session.ValidationError
				So(err, ShouldHaveSameTypeAs, verr)
				So(err.Error(), ShouldContainSubstring, "emotion")
			})
		})

		Convey("When the confidence is out of range", func() {
			c := valid
			c.Confidence = 1.2
			err := session.ValidateCapture(c)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "confidence")
		})

		Convey("When the timestamp is zero", func() {
			c := valid
			c.Timestamp = time.Time{}
			err := session.ValidateCapture(c)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "timestamp")
		})

		Convey("When the capture kind is unknown", func() {
			c := valid
			c.Kind = "casual"
			err := session.ValidateCapture(c)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "capture_kind")
		})
	})
}
