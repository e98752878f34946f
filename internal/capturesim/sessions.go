package capturesim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// linkSessions links every opened session to a generated assessment ID
// concurrently.
func linkSessions(ctx context.Context, config *Config, results []SessionResult, stats *Stats) error {
	log.Printf("linking %d sessions to assessments with %d workers...", len(results), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		linked int64
		failed int64
	)

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					sessionID := results[index].SessionID
					if sessionID == "" {
						continue
					}
					if err := linkSingleSession(ctx, client, config.BaseURL, sessionID); err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to link session %s: %v", sessionID, err)
						}
					} else {
						atomic.AddInt64(&linked, 1)
					}
				}
			}
		}()
	}

	// Send session indices to workers
	go func() {
		defer close(indexChan)
		for i := range results {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	stats.SessionsLinked = int(atomic.LoadInt64(&linked))

	log.Printf(`session linking completed:
   Linked: %d
   Failed: %d
`, stats.SessionsLinked, int(atomic.LoadInt64(&failed)))

	return nil
}

// linkSingleSession links one session to a fresh assessment ID.
func linkSingleSession(ctx context.Context, client *HTTPClient, baseURL, sessionID string) error {
	url := fmt.Sprintf("%s/sessions/%s/assessment", baseURL, sessionID)
	body := map[string]string{
		"assessment_id": uuid.New().String(),
		"end_ts":        time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := client.Put(ctx, url, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	respBody, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// retrieveSessionStats retrieves aggregate statistics for all sessions concurrently.
func retrieveSessionStats(ctx context.Context, config *Config, results []SessionResult, stats *Stats) error {
	log.Printf("retrieving statistics for %d sessions with %d workers...", len(results), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					sessionID := results[index].SessionID
					if sessionID == "" {
						continue
					}
					sessionStats, err := retrieveSingleStats(ctx, client, config.BaseURL, sessionID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get stats for %s: %v", sessionID, err)
						}
					} else {
						results[index].Stats = sessionStats
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("stats progress: %d/%d retrieved (success: %d, failed: %d)",
							total, len(results), ret, fail)
					}
				}
			}
		}()
	}

	// Send session indices to workers
	go func() {
		defer close(indexChan)
		for i := range results {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	stats.StatsRetrieved = int(atomic.LoadInt64(&retrieved))

	log.Printf(`statistics retrieval completed:
   Retrieved: %d
   Failed: %d
`, stats.StatsRetrieved, int(atomic.LoadInt64(&failed)))

	return nil
}

// retrieveSingleStats retrieves aggregate statistics for one session.
func retrieveSingleStats(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (*SessionStats, error) {
	url := fmt.Sprintf("%s/sessions/%s/stats", baseURL, sessionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var sessionStats SessionStats
	if err := unmarshalJSON(body, &sessionStats); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &sessionStats, nil
}
