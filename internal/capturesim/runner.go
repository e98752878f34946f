package capturesim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/facet/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete capture simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting facet capture simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("subjects", config.NumSubjects),
		logger.Int("capturesPerSubject", config.CapturesPerSubject),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate capture plans
	subjects, err := generateSubjects(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("capture plan generation failed: %w", err)
	}

	// Step 3: Submit captures concurrently
	results, err := submitCaptures(ctx, config, subjects, stats)
	if err != nil {
		return fmt.Errorf("capture submission failed: %w", err)
	}

	// Step 4: Wait for the service to settle
	logger.Get().Info(ctx, "waiting for captures to be processed")
	time.Sleep(ProcessingDelay)

	// Step 5: Link sessions to assessments
	if err := linkSessions(ctx, config, results, stats); err != nil {
		return fmt.Errorf("session linking failed: %w", err)
	}

	// Step 6: Retrieve session statistics concurrently
	if err := retrieveSessionStats(ctx, config, results, stats); err != nil {
		return fmt.Errorf("statistics retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(ctx, config, results, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save generated captures to file
	if err := saveCapturesToFile(ctx, config, subjects); err != nil {
		logger.Get().Warn(ctx, "failed to save captures to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveCapturesToFile saves the generated capture plans to a JSON file.
func saveCapturesToFile(ctx context.Context, config *Config, subjects []Subject) error {
	if len(subjects) == 0 {
		return fmt.Errorf("no captures to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_captures_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write subjects to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, subject := range subjects {
		jsonData, err := marshalJSON(subject)
		if err != nil {
			return fmt.Errorf("failed to marshal subject %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write subject %d: %w", i, err)
		}

		// Add comma except for last subject
		if i < len(subjects)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "captures saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, capturesPerSecond float64

	if stats.CapturesSubmitted > 0 {
		successRate = float64(stats.CapturesRecorded) / float64(stats.CapturesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		capturesPerSecond = float64(stats.CapturesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("subjectsGenerated", stats.SubjectsGenerated),
		logger.Int("capturesGenerated", stats.CapturesGenerated),
		logger.Int("capturesSubmitted", stats.CapturesSubmitted),
		logger.Int("capturesRecorded", stats.CapturesRecorded),
		logger.Int("capturesDuplicate", stats.CapturesDuplicate),
		logger.Int("capturesFailed", stats.CapturesFailed),
		logger.Int("sessionsOpened", stats.SessionsOpened),
		logger.Int("sessionsLinked", stats.SessionsLinked),
		logger.Int("statsRetrieved", stats.StatsRetrieved),
		logger.Int("statsInconsistent", stats.StatsInconsistent),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("capturesPerSecond", capturesPerSecond))
}
