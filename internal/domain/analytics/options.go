package analytics

import "time"

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithTopSearchLimit caps the number of top-search entries.
func WithTopSearchLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topSearchLimit = n
		}
	}
}

// WithLatestLimit caps the number of latest events returned.
func WithLatestLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.latestLimit = n
		}
	}
}

// WithClock sets the clock that decides "today" for events whose timestamp
// cannot be parsed.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}
