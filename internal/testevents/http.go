package testevents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/tracker/pkg/logger"
)

// adminPINHeader carries the PIN on admin requests.
const adminPINHeader = "X-Admin-Pin"

// submission outcomes.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
	pin    string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration, pin string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		pin:    pin,
	}
}

// Get performs a GET request. The admin PIN is attached when configured.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.pin != "" {
		req.Header.Set(adminPINHeader, c.pin)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tracker-test-events")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// fetchStats reads the current stats summary.
func fetchStats(ctx context.Context, config *Config) (Snapshot, error) {
	client := newHTTPClient(config.Timeout, config.PIN)
	resp, err := client.Get(ctx, strings.TrimRight(config.BaseURL, "/")+"/stats")
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to request stats: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read stats: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("stats request failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return snap, nil
}

// submitEvents submits events concurrently using a worker pool.
func submitEvents(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	workers := maxInt(config.Workers, 1)
	logger.Get().Info(ctx, "submitting events", logger.Int("count", len(events)), logger.Int("workers", workers))

	client := newHTTPClient(config.Timeout, "")
	url := strings.TrimRight(config.BaseURL, "/") + "/track"

	var (
		accepted  int64
		searches  int64
		rejected  int64
		failed    int64
		submitted int64
	)

	var lastReport atomic.Int64
	eventChan := make(chan Event, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for event := range eventChan {
				if ctx.Err() != nil {
					continue
				}
				result := submitSingleEvent(ctx, client, url, event)

				atomic.AddInt64(&submitted, 1)
				switch result {
				case resultAccepted:
					atomic.AddInt64(&accepted, 1)
					if event.IsSearch() {
						atomic.AddInt64(&searches, 1)
					}
				case resultRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(ProgressInterval) && lastReport.CompareAndSwap(last, now) {
					msg := fmt.Sprintf("submitted %d/%d (accepted: %d, rejected: %d, failed: %d)",
						atomic.LoadInt64(&submitted), len(events),
						atomic.LoadInt64(&accepted), atomic.LoadInt64(&rejected), atomic.LoadInt64(&failed))
					if config.Verbose {
						logger.Get().Debug(ctx, "progress", logger.String("status", msg))
					} else {
						fmt.Printf("\r%s", msg)
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	if !config.Verbose {
		fmt.Println()
	}

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsAccepted = int(atomic.LoadInt64(&accepted))
	stats.SearchesAccepted = int(atomic.LoadInt64(&searches))
	stats.EventsRejected = int(atomic.LoadInt64(&rejected))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "event submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failed", stats.EventsFailed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

// submitSingleEvent submits a single event and returns the result
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event Event) string {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return resultFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var ack TrackResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.OK {
			return resultFailed
		}
		return resultAccepted
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return resultRejected
	default:
		return resultFailed
	}
}
