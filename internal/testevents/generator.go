package testevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/tracker/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// SearchQueries is the vocabulary search events draw from. Queries repeat so
// the top-search ranking has counts worth comparing.
var SearchQueries = []string{
	"shoes",
	"red shoes",
	"running shoes",
	"boots",
	"sandals",
	"hat",
	"winter jacket",
	"rain coat",
	"socks",
	"backpack",
	"sunglasses",
	"gift card",
}

// page is a page_view target.
type page struct {
	path  string
	title string
}

var pages = []page{
	{path: "/", title: "Home"},
	{path: "/catalog", title: "Catalog"},
	{path: "/catalog/shoes", title: "Shoes"},
	{path: "/catalog/outerwear", title: "Outerwear"},
	{path: "/cart", title: "Cart"},
	{path: "/checkout", title: "Checkout"},
	{path: "/about", title: "About"},
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomIndex returns a random index in [0, n).
func getRandomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// deviceCount resolves the number of distinct devices for the config.
func deviceCount(config *Config) int {
	n := config.NumDevices
	if n <= 0 {
		n = config.NumEvents / defaultDevicesDiv
	}
	if n <= 0 {
		n = 1
	}
	if config.NumEvents > 0 && n > config.NumEvents {
		n = config.NumEvents
	}
	return n
}

// searchRatio resolves the search share for the config.
func searchRatio(config *Config) float64 {
	r := config.SearchRatio
	if r < 0 || r > 1 {
		return DefaultSearchRatio
	}
	return r
}

// generateEvents creates the configured number of events spread over a pool
// of random device ids.
func generateEvents(ctx context.Context, config *Config, stats *Stats) ([]Event, error) {
	if config.NumEvents <= 0 {
		return nil, fmt.Errorf("number of events must be positive, got %d", config.NumEvents)
	}

	devices := make([]string, deviceCount(config))
	for i := range devices {
		devices[i] = uuid.New().String()
	}
	ratio := searchRatio(config)

	logger.Get().Info(ctx, "generating events",
		logger.Int("numEvents", config.NumEvents),
		logger.Int("devices", len(devices)),
		logger.Float64("searchRatio", ratio))

	events := make([]Event, config.NumEvents)

	type eventResult struct {
		index int
		event Event
		err   error
	}

	resultChan := make(chan eventResult, config.NumEvents)

	// Use worker pool for event generation
	workerCount := minInt(maxInt(config.Workers, 1), config.NumEvents)
	eventsPerWorker := config.NumEvents / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * eventsPerWorker
		end := start + eventsPerWorker
		if worker == workerCount-1 {
			end = config.NumEvents // Last worker gets remaining events
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- eventResult{index: i, err: ctx.Err()}
					return
				default:
					device := devices[getRandomIndex(len(devices))]
					resultChan <- eventResult{index: i, event: generateSingleEvent(device, ratio)}
				}
			}
		}(start, end)
	}

	for i := 0; i < config.NumEvents; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during event generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate event %d: %w", result.index, result.err)
			}
			events[result.index] = result.event
		}
	}

	stats.EventsGenerated = len(events)
	stats.SearchesGenerated = countSearches(events)
	logger.Get().Info(ctx, "generated events successfully",
		logger.Int("count", len(events)),
		logger.Int("searches", stats.SearchesGenerated))

	return events, nil
}

// generateSingleEvent creates a search with probability ratio, otherwise a
// page view.
func generateSingleEvent(deviceID string, ratio float64) Event {
	if getRandomFloat() < ratio {
		return Event{
			Kind:     KindSearch,
			DeviceID: deviceID,
			Payload: map[string]any{
				"q":    SearchQueries[getRandomIndex(len(SearchQueries))],
				"page": 1 + getRandomIndex(3),
			},
		}
	}
	p := pages[getRandomIndex(len(pages))]
	return Event{
		Kind:     KindPageView,
		DeviceID: deviceID,
		Payload:  map[string]any{"path": p.path, "title": p.title},
	}
}

func countSearches(events []Event) int {
	n := 0
	for _, e := range events {
		if e.IsSearch() {
			n++
		}
	}
	return n
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
