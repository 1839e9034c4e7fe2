package testevents

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/tracker/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete traffic test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting tracker traffic test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("events", config.NumEvents),
		logger.Int("devices", config.NumDevices),
		logger.Float64("searchRatio", config.SearchRatio),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Read baseline stats
	before, err := fetchStats(ctx, config)
	if err != nil {
		return fmt.Errorf("baseline stats retrieval failed: %w", err)
	}
	stats.Before = before

	// Step 3: Generate events
	events, err := generateEvents(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("event generation failed: %w", err)
	}

	// Step 4: Submit events concurrently
	if err := submitEvents(ctx, config, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 5: Re-read stats. Writes are synchronous so no wait is needed.
	after, err := fetchStats(ctx, config)
	if err != nil {
		return fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.After = after

	// Step 6: Verify deltas
	if err := verifyResults(ctx, config, events, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save events to file
	if err := saveEventsToFile(ctx, config, events); err != nil {
		logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout, "")
	resp, err := client.Get(ctx, strings.TrimRight(config.BaseURL, "/")+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy", logger.String("body", string(bytes.TrimSpace(body))))
	return nil
}

// saveEventsToFile saves the generated events to a JSON file.
func saveEventsToFile(ctx context.Context, config *Config, events []Event) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_events_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsAccepted) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("searchesGenerated", stats.SearchesGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("totalEvents", stats.After.TotalEvents),
		logger.Int("uniqueDevices", stats.After.UniqueDevices),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
