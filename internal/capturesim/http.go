package capturesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, url, body)
}

// Put performs a PUT request with JSON body
func (c *HTTPClient) Put(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, url, body)
}

func (c *HTTPClient) send(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitCaptures submits every subject's session concurrently using worker pools.
// Each worker owns whole subjects so in-test captures can carry the session ID
// returned by the opening capture.
func submitCaptures(ctx context.Context, config *Config, subjects []Subject, stats *Stats) ([]SessionResult, error) {
	log.Printf("submitting %d sessions with %d workers...", len(subjects), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/captures"

	results := make([]SessionResult, len(subjects))

	// Counters for statistics
	var (
		recorded  int64
		duplicate int64
		failed    int64
		submitted int64
		opened    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	subjectChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range subjectChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSubjectSession(ctx, client, url, subjects[index])
					results[index] = result

					atomic.AddInt64(&submitted, int64(result.Recorded)+int64(result.duplicates)+int64(result.failures))
					atomic.AddInt64(&recorded, int64(result.Recorded))
					atomic.AddInt64(&duplicate, int64(result.duplicates))
					atomic.AddInt64(&failed, int64(result.failures))
					if result.SessionID != "" {
						atomic.AddInt64(&opened, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						rec := atomic.LoadInt64(&recorded)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("progress: %d captures submitted (recorded: %d, duplicate: %d, failed: %d)",
								total, rec, dup, fail)
						} else {
							fmt.Printf("\rsubmitted: %d (recorded: %d, duplicate: %d, failed: %d)",
								total, rec, dup, fail)
						}
					}
				}
			}
		}()
	}

	// Send subject indices to workers
	go func() {
		defer close(subjectChan)
		for i := range subjects {
			select {
			case <-ctx.Done():
				return
			case subjectChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.CapturesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.CapturesRecorded = int(atomic.LoadInt64(&recorded))
	stats.CapturesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.CapturesFailed = int(atomic.LoadInt64(&failed))
	stats.SessionsOpened = int(atomic.LoadInt64(&opened))

	log.Printf(`capture submission completed:
   Sessions opened: %d
   Recorded: %d
   Duplicate: %d
   Failed: %d
`, stats.SessionsOpened, stats.CapturesRecorded, stats.CapturesDuplicate, stats.CapturesFailed)

	return results, nil
}

// submitSubjectSession drives one subject's captures in order. The opening
// capture yields the session ID for the rest, and the second capture is
// re-posted with its original request ID to probe idempotent handling.
func submitSubjectSession(ctx context.Context, client *HTTPClient, url string, subject Subject) SessionResult {
	result := SessionResult{SubjectID: subject.ID}

	for i, capture := range subject.Captures {
		if i > 0 {
			if result.SessionID == "" {
				// Without a session there is nothing to append to.
				result.failures++
				continue
			}
			capture.SessionID = result.SessionID
		}

		ack, outcome := submitSingleCapture(ctx, client, url, capture)
		switch outcome {
		case "recorded":
			result.Recorded++
			if i == 0 {
				result.SessionID = ack.SessionID
			}
		case "duplicate":
			result.duplicates++
		default:
			result.failures++
		}

		// Idempotency probe: replay the second capture verbatim.
		if i == 1 && outcome == "recorded" {
			if _, replay := submitSingleCapture(ctx, client, url, capture); replay == "duplicate" {
				result.duplicates++
			} else {
				result.failures++
			}
		}
	}

	return result
}

// submitSingleCapture submits a single capture and classifies the outcome
func submitSingleCapture(ctx context.Context, client *HTTPClient, url string, capture Capture) (CaptureAck, string) {
	resp, err := client.Post(ctx, url, capture)
	if err != nil {
		return CaptureAck{}, "failed"
	}

	// Read response body
	body, err := readResponseBody(resp)
	if err != nil {
		return CaptureAck{}, "failed"
	}

	// Parse response based on status code
	var ack CaptureAck
	switch resp.StatusCode {
	case StatusCreated:
		// Created - new capture
		if err := unmarshalJSON(body, &ack); err != nil {
			return CaptureAck{}, "failed"
		}
		return ack, "recorded"
	case StatusOK:
		// OK - duplicate capture
		if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
			return ack, "duplicate"
		}
		return ack, "duplicate" // Assume duplicate for 200 even if parsing fails
	default:
		// Error
		return CaptureAck{}, "failed"
	}
}
