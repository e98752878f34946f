// Package session owns capture validation and the on-demand statistics
// computed over a capture session. Statistics are derived from the full
// capture sequence on every call; nothing is maintained incrementally,
// which keeps the append path trivial.
package session

import (
	"math"
	"time"

	"github.com/okian/facet/internal/domain/model"
)

// ModuleCapture is one capture as grouped under its assessment module.
type ModuleCapture struct {
	Emotion    string    `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// DominantEmotion is the most frequent emotion across a session.
type DominantEmotion struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// Statistics summarizes a capture session.
type Statistics struct {
	TotalCaptures       int                        `json:"total_captures"`
	EmotionCounts       map[string]int             `json:"emotion_counts"`
	DominantEmotion     *DominantEmotion           `json:"dominant_emotion"`
	AverageConfidence   float64                    `json:"average_confidence"`
	EmotionsByModule    map[string][]ModuleCapture `json:"emotions_by_module"`
	TestDurationMinutes *int                       `json:"test_duration_minutes"`
}

// Compute derives statistics from the session's capture sequence.
//
// The dominant emotion is the one with the highest occurrence count;
// ties resolve to the emotion that appears earliest in the capture
// sequence. Average confidence is rounded to two decimals and defined
// as 0 for an empty sequence. Test duration is nil until the session is
// linked to an assessment.
func Compute(s model.CaptureSession) Statistics {
	stats := Statistics{
		EmotionCounts:    make(map[string]int),
		EmotionsByModule: make(map[string][]ModuleCapture),
	}

	var totalConfidence float64
	for _, c := range s.Captures {
		stats.EmotionCounts[c.Emotion]++
		totalConfidence += c.Confidence

		if c.ModuleContext != "" {
			stats.EmotionsByModule[c.ModuleContext] = append(stats.EmotionsByModule[c.ModuleContext], ModuleCapture{
				Emotion:    c.Emotion,
				Confidence: c.Confidence,
				Timestamp:  c.Timestamp,
			})
		}
	}

	stats.TotalCaptures = len(s.Captures)
	if stats.TotalCaptures > 0 {
		stats.AverageConfidence = round2(totalConfidence / float64(stats.TotalCaptures))
	}

	maxCount := 0
	for _, count := range stats.EmotionCounts {
		if count > maxCount {
			maxCount = count
		}
	}
	// First-occurrence order breaks ties, so scan the capture sequence
	// rather than the count map.
	for _, c := range s.Captures {
		if stats.EmotionCounts[c.Emotion] == maxCount {
			stats.DominantEmotion = &DominantEmotion{Emotion: c.Emotion, Count: maxCount}
			break
		}
	}

	if s.EndTime != nil {
		minutes := int(math.Round(s.EndTime.Sub(s.StartTime).Minutes()))
		stats.TestDurationMinutes = &minutes
	}

	return stats
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
