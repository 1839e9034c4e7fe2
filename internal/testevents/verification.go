package testevents

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/tracker/pkg/logger"
)

// ErrVerification reports that the service counters do not reflect the
// submitted traffic.
var ErrVerification = errors.New("verification failed")

// verifyResults checks that the stats moved by exactly what was accepted.
func verifyResults(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	var errs []error
	if got := stats.After.TotalEvents - stats.Before.TotalEvents; got != stats.EventsAccepted {
		errs = append(errs, fmt.Errorf("total_events grew by %d, want %d", got, stats.EventsAccepted))
	}
	if got := stats.After.TotalSearches - stats.Before.TotalSearches; got != stats.SearchesAccepted {
		errs = append(errs, fmt.Errorf("total_searches grew by %d, want %d", got, stats.SearchesAccepted))
	}
	if stats.After.UniqueDevices < stats.Before.UniqueDevices {
		errs = append(errs, fmt.Errorf("unique_devices dropped from %d to %d", stats.Before.UniqueDevices, stats.After.UniqueDevices))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
	}

	if unknown := unknownTopSearches(stats.Before, stats.After, events); len(unknown) > 0 {
		logger.Get().Warn(ctx, "top searches grew for queries that were not generated", logger.Any("queries", unknown))
	} else {
		logger.Get().Info(ctx, "top searches consistent with generated queries")
	}

	displayTopSearches(ctx, stats.After, config.Verbose)

	logger.Get().Info(ctx, "result verification completed")
	return nil
}

// unknownTopSearches returns queries whose count grew between before and
// after without being among the generated search queries.
func unknownTopSearches(before, after Snapshot, events []Event) []string {
	generated := make(map[string]struct{})
	for _, e := range events {
		if !e.IsSearch() {
			continue
		}
		if q, ok := e.Payload["q"].(string); ok {
			generated[q] = struct{}{}
		}
	}
	previous := make(map[string]int, len(before.TopSearches))
	for _, ts := range before.TopSearches {
		previous[ts.Query] = ts.Count
	}

	var unknown []string
	for _, ts := range after.TopSearches {
		if ts.Count <= previous[ts.Query] {
			continue
		}
		if _, ok := generated[ts.Query]; !ok {
			unknown = append(unknown, ts.Query)
		}
	}
	return unknown
}

// displayTopSearches logs the leading top-search entries.
func displayTopSearches(ctx context.Context, snap Snapshot, verbose bool) {
	topN := 10
	if verbose {
		topN = len(snap.TopSearches)
	}
	topN = minInt(topN, len(snap.TopSearches))

	for i := 0; i < topN; i++ {
		entry := snap.TopSearches[i]
		logger.Get().Info(ctx, "top search",
			logger.Int("rank", i+1),
			logger.String("q", entry.Query),
			logger.Int("count", entry.Count))
	}
}
