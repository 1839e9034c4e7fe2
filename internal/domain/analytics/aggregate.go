// Package analytics turns a stored event set into the statistics summary shown
// on the owner dashboard.
//
// Aggregation is recomputed from scratch on every call and never fails on a
// malformed individual event: an unparseable timestamp is bucketed under the
// current UTC date, a missing payload is treated as empty and a non-string
// query as absent.
package analytics

import (
	"sort"
	"time"

	"github.com/okian/tracker/internal/domain/model"
)

// Default limits.
const (
	DefaultTopSearchLimit = 50
	DefaultLatestLimit    = 20
)

// DailyBucket summarises one UTC calendar date.
type DailyBucket struct {
	Date          string `json:"date"`
	UniqueDevices int    `json:"unique_devices"`
	Searches      int    `json:"searches"`
}

// TopSearch is a search query and how often it occurred.
type TopSearch struct {
	Query string `json:"q"`
	Count int    `json:"count"`
}

// Summary is the statistics view served by GET /stats.
type Summary struct {
	UniqueDevices int           `json:"unique_devices"`
	TotalEvents   int           `json:"total_events"`
	TotalSearches int           `json:"total_searches"`
	Daily         []DailyBucket `json:"daily"`
	TopSearches   []TopSearch   `json:"top_searches"`
	LatestEvents  []model.Event `json:"latest_events"`
}

// Aggregator computes summaries. The zero value is not usable; use New.
type Aggregator struct {
	topSearchLimit int
	latestLimit    int
	now            func() time.Time
}

// New constructs an Aggregator with default limits.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		topSearchLimit: DefaultTopSearchLimit,
		latestLimit:    DefaultLatestLimit,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// dayAcc accumulates one daily bucket.
type dayAcc struct {
	devices  map[string]struct{}
	searches int
}

// searchAcc counts one query; first keeps first-encounter order for ties.
type searchAcc struct {
	count int
	first int
}

// Aggregate computes the summary of events. The input order is not assumed to
// be chronological.
func (a *Aggregator) Aggregate(events []model.Event) Summary {
	today := a.now().UTC().Format(model.DateLayout)

	devices := make(map[string]struct{})
	days := make(map[string]*dayAcc)
	searches := make(map[string]*searchAcc)
	totalSearches := 0

	for _, e := range events {
		if e.DeviceID != "" {
			devices[e.DeviceID] = struct{}{}
		}

		date := today
		if t, ok := e.Time(); ok {
			date = t.Format(model.DateLayout)
		}
		day, ok := days[date]
		if !ok {
			day = &dayAcc{devices: make(map[string]struct{})}
			days[date] = day
		}
		if e.DeviceID != "" {
			day.devices[e.DeviceID] = struct{}{}
		}

		if !e.IsSearch() {
			continue
		}
		totalSearches++
		day.searches++

		q, ok := e.Payload.Query()
		if !ok || q == "" {
			continue
		}
		acc, ok := searches[q]
		if !ok {
			acc = &searchAcc{first: len(searches)}
			searches[q] = acc
		}
		acc.count++
	}

	return Summary{
		UniqueDevices: len(devices),
		TotalEvents:   len(events),
		TotalSearches: totalSearches,
		Daily:         dailySeries(days),
		TopSearches:   topSearches(searches, a.topSearchLimit),
		LatestEvents:  latestEvents(events, a.latestLimit),
	}
}

// dailySeries orders buckets by date. DateLayout sorts lexically in date order.
func dailySeries(days map[string]*dayAcc) []DailyBucket {
	out := make([]DailyBucket, 0, len(days))
	for date, acc := range days {
		out = append(out, DailyBucket{
			Date:          date,
			UniqueDevices: len(acc.devices),
			Searches:      acc.searches,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// topSearches returns at most limit queries by descending count, ties in
// first-encounter order.
func topSearches(searches map[string]*searchAcc, limit int) []TopSearch {
	type ranked struct {
		TopSearch
		first int
	}
	all := make([]ranked, 0, len(searches))
	for q, acc := range searches {
		all = append(all, ranked{TopSearch: TopSearch{Query: q, Count: acc.count}, first: acc.first})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].first < all[j].first
	})
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]TopSearch, len(all))
	for i, r := range all {
		out[i] = r.TopSearch
	}
	return out
}

// latestEvents returns the limit most recent events, newest first. Events with
// equal or unparseable timestamps are ordered by write order, later first;
// unparseable timestamps sort as the oldest.
func latestEvents(events []model.Event, limit int) []model.Event {
	type indexed struct {
		at    time.Time
		index int
	}
	order := make([]indexed, len(events))
	for i, e := range events {
		t, _ := e.Time()
		order[i] = indexed{at: t, index: i}
	}
	sort.Slice(order, func(i, j int) bool {
		if !order[i].at.Equal(order[j].at) {
			return order[i].at.After(order[j].at)
		}
		return order[i].index > order[j].index
	})
	if limit >= 0 && len(order) > limit {
		order = order[:limit]
	}

	out := make([]model.Event, len(order))
	for i, o := range order {
		out[i] = events[o.index]
	}
	return out
}
