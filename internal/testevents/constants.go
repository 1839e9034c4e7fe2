package testevents

import "time"

// Event kinds understood by the service aggregator.
const (
	KindPageView = "page_view"
	KindSearch   = "search"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProgressInterval     = time.Second
	PercentageMultiplier = 100
)

// Generator defaults applied when the config leaves a field unset.
const (
	DefaultSearchRatio = 0.3
	defaultDevicesDiv  = 10
)
