package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/tracker/internal/config"
	"github.com/okian/tracker/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumEvents   = 10000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "Base URL of the service")
		pin         = flag.String("pin", defaultPIN(), "Admin PIN used to read /stats")
		numEvents   = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		numDevices  = flag.Int("devices", 0, "Number of distinct devices (default events / 10)")
		searchRatio = flag.Float64("search-ratio", testevents.DefaultSearchRatio, "Fraction of events that are searches")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated events (default: generated_events_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	closer, err := testevents.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &testevents.Config{
		BaseURL:     *baseURL,
		PIN:         *pin,
		NumEvents:   *numEvents,
		NumDevices:  *numDevices,
		SearchRatio: *searchRatio,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := testevents.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		closer.Close()
		os.Exit(1)
	}
}

// defaultPIN prefers the server's environment override over its built-in
// default.
func defaultPIN() string {
	if pin := os.Getenv("TRACKER_ADMIN_PIN"); pin != "" {
		return pin
	}
	return config.New().AdminPIN
}
