package capturesim

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// verifyResults checks every retrieved session's statistics against what
// the simulation actually recorded.
func verifyResults(ctx context.Context, config *Config, results []SessionResult, stats *Stats) error {
	log.Println("verifying session statistics...")

	verified := 0
	inconsistent := 0
	for _, result := range results {
		if result.Stats == nil {
			continue
		}
		if err := verifySessionStats(result); err != nil {
			inconsistent++
			log.Printf("session %s inconsistency: %v", result.SessionID, err)
			continue
		}
		verified++
	}

	if verified == 0 {
		return fmt.Errorf("no session statistics to verify")
	}

	stats.StatsInconsistent = inconsistent

	// Display the aggregate emotion distribution
	displayEmotionDistribution(results, config.Verbose)

	log.Printf("statistics verification completed (verified: %d, inconsistent: %d)", verified, inconsistent)
	return nil
}

// verifySessionStats checks one session's aggregates for internal and
// external consistency.
func verifySessionStats(result SessionResult) error {
	s := result.Stats

	if s.TotalCaptures != result.Recorded {
		return fmt.Errorf("total captures (%d) does not match recorded captures (%d)",
			s.TotalCaptures, result.Recorded)
	}

	countSum := 0
	maxCount := 0
	for _, count := range s.EmotionCounts {
		countSum += count
		if count > maxCount {
			maxCount = count
		}
	}
	if countSum != s.TotalCaptures {
		return fmt.Errorf("emotion counts sum to %d, expected %d", countSum, s.TotalCaptures)
	}

	if s.TotalCaptures > 0 {
		if s.DominantEmotion == nil {
			return fmt.Errorf("missing dominant emotion for %d captures", s.TotalCaptures)
		}
		if s.DominantEmotion.Count != maxCount {
			return fmt.Errorf("dominant emotion count (%d) is not the maximum (%d)",
				s.DominantEmotion.Count, maxCount)
		}
		if s.EmotionCounts[s.DominantEmotion.Emotion] != maxCount {
			return fmt.Errorf("dominant emotion %q does not carry the maximum count",
				s.DominantEmotion.Emotion)
		}
	}

	if s.AverageConfidence < 0 || s.AverageConfidence > 1 {
		return fmt.Errorf("average confidence %.2f outside [0, 1]", s.AverageConfidence)
	}

	return nil
}

// displayEmotionDistribution shows the emotion spread across all sessions.
func displayEmotionDistribution(results []SessionResult, verbose bool) {
	totals := make(map[string]int)
	captures := 0
	for _, result := range results {
		if result.Stats == nil {
			continue
		}
		for emotion, count := range result.Stats.EmotionCounts {
			totals[emotion] += count
			captures += count
		}
	}

	if captures == 0 {
		return
	}

	emotions := make([]string, 0, len(totals))
	for emotion := range totals {
		emotions = append(emotions, emotion)
	}
	sort.Slice(emotions, func(i, j int) bool {
		return totals[emotions[i]] > totals[emotions[j]]
	})

	log.Printf("emotion distribution across %d captures:", captures)
	for _, emotion := range emotions {
		share := float64(totals[emotion]) / float64(captures) * PercentageMultiplier
		log.Printf("   %s - %d (%.1f%%)", emotion, totals[emotion], share)
	}

	if verbose {
		avg := calculateAverageConfidence(results)
		log.Printf("mean of session average confidences: %.3f", avg)
	}
}

// calculateAverageConfidence averages the per-session confidence means.
func calculateAverageConfidence(results []SessionResult) float64 {
	sum := 0.0
	sessions := 0
	for _, result := range results {
		if result.Stats == nil {
			continue
		}
		sum += result.Stats.AverageConfidence
		sessions++
	}

	if sessions == 0 {
		return 0
	}

	return sum / float64(sessions)
}
