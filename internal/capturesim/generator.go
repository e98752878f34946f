package capturesim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/okian/facet/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	emotionCaseDivisor = 8
)

// Constants for confidence generation ranges.
const (
	calmConfidenceMin    = 0.75
	calmConfidenceRange  = 0.2
	happyConfidenceMin   = 0.6
	happyConfidenceRange = 0.35
	midConfidenceMin     = 0.45
	midConfidenceRange   = 0.3
	lowConfidenceMin     = 0.2
	lowConfidenceRange   = 0.3
	wideConfidenceMin    = 0.1
	wideConfidenceRange  = 0.85
)

// Constants for emotion distribution cases.
const (
	caseNeutral   = 0
	caseNeutral2  = 1
	caseHappy     = 2
	caseHappy2    = 3
	caseSad       = 4
	caseSurprised = 5
	caseAngry     = 6
	caseWideOpen  = 7
)

// moduleContexts are cycled through for in-test captures.
var moduleContexts = []string{
	"reading_comprehension",
	"logical_reasoning",
	"numeric_series",
	"pattern_matching",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateSubjects creates the planned capture traffic, one session per subject.
func generateSubjects(ctx context.Context, config *Config, stats *Stats) ([]Subject, error) {
	logger.Get().Info(ctx, "generating capture plans for subjects",
		logger.Int("numSubjects", config.NumSubjects),
		logger.Int("capturesPerSubject", config.CapturesPerSubject))

	subjects := make([]Subject, config.NumSubjects)

	type subjectResult struct {
		index   int
		subject Subject
		err     error
	}

	resultChan := make(chan subjectResult, config.NumSubjects)

	// Use worker pool for plan generation
	workerCount := minInt(config.Workers, config.NumSubjects)
	subjectsPerWorker := config.NumSubjects / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * subjectsPerWorker
		end := start + subjectsPerWorker
		if worker == workerCount-1 {
			end = config.NumSubjects // Last worker gets remaining subjects
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- subjectResult{index: i, err: ctx.Err()}
					return
				default:
					subject := generateSubjectPlan(config.CapturesPerSubject)
					resultChan <- subjectResult{index: i, subject: subject, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumSubjects; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during plan generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate plan %d: %w", result.index, result.err)
			}
			subjects[result.index] = result.subject
		}
	}

	total := 0
	for _, s := range subjects {
		total += len(s.Captures)
	}
	stats.SubjectsGenerated = len(subjects)
	stats.CapturesGenerated = total
	logger.Get().Info(ctx, "generated capture plans successfully",
		logger.Int("subjects", len(subjects)),
		logger.Int("captures", total))

	return subjects, nil
}

// generateSubjectPlan builds one subject's session: an opening capture
// followed by in-test captures cycling through module contexts.
func generateSubjectPlan(capturesPerSubject int) Subject {
	subjectID := uuid.New().String()
	captures := make([]Capture, 0, capturesPerSubject)

	now := time.Now().UTC()
	for i := 0; i < capturesPerSubject; i++ {
		emotion, confidence := generateEmotionSample()
		capture := Capture{
			RequestID:  uuid.New().String(),
			Emotion:    emotion,
			Confidence: confidence,
			TS:         now.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
		if i == 0 {
			capture.SubjectID = subjectID
			capture.Kind = "initial"
		} else {
			capture.Kind = "during_test"
			capture.Module = moduleContexts[(i-1)%len(moduleContexts)]
		}
		captures = append(captures, capture)
	}

	return Subject{ID: subjectID, Captures: captures}
}

// generateEmotionSample picks an emotion label and a confidence from a
// weighted distribution: neutral and happy dominate, the rest are rare.
func generateEmotionSample() (string, float64) {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(emotionCaseDivisor))
	switch randNum.Int64() {
	case caseNeutral, caseNeutral2:
		// Neutral with high confidence - most common
		return "neutral", calmConfidenceMin + getRandomFloat()*calmConfidenceRange
	case caseHappy, caseHappy2:
		// Happy with moderate to high confidence
		return "happy", happyConfidenceMin + getRandomFloat()*happyConfidenceRange
	case caseSad:
		return "sad", midConfidenceMin + getRandomFloat()*midConfidenceRange
	case caseSurprised:
		return "surprised", midConfidenceMin + getRandomFloat()*midConfidenceRange
	case caseAngry:
		// Angry with low confidence - rare
		return "angry", lowConfidenceMin + getRandomFloat()*lowConfidenceRange
	case caseWideOpen:
		// Fearful across the full confidence range - rare
		return "fearful", wideConfidenceMin + getRandomFloat()*wideConfidenceRange
	default:
		return "neutral", wideConfidenceMin + getRandomFloat()*wideConfidenceRange
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
