package testevents

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/tracker/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initialises the logger to write to both console and file.
// If logFile is empty, a timestamped filename is generated. The returned
// closer releases the log file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}

	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the test events tool.
func ShowHelp() {
	os.Stdout.WriteString(`Tracker Traffic Test Tool
=========================

Generates synthetic page_view and search events, submits them concurrently to
/track and verifies that /stats reflects exactly what was accepted.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -pin string
        Admin PIN used to read /stats (default $TRACKER_ADMIN_PIN, then the server default)
  -events int
        Number of events to generate and submit (default 10000)
  -devices int
        Number of distinct devices (default events / 10)
  -search-ratio float
        Fraction of events that are searches (default 0.3)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated events (default: generated_events_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run ./cmd/test-events

  # Search-heavy traffic from a small device pool
  go run ./cmd/test-events -pin 1234 -events 50000 -devices 200 -search-ratio 0.8

  # Test with verbose output and a custom log file
  go run ./cmd/test-events -pin 1234 -verbose -log my_test.log
`)
}
