package testevents

import "time"

// Config holds configuration for the traffic test
type Config struct {
	BaseURL     string        // Base URL of the service
	PIN         string        // Admin PIN used to read /stats
	NumEvents   int           // Number of events to generate
	NumDevices  int           // Number of distinct device ids to spread events over
	SearchRatio float64       // Fraction of events that are searches, 0..1
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for events
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Event is a /track request body.
type Event struct {
	Kind     string         `json:"event"`
	DeviceID string         `json:"deviceId"`
	Payload  map[string]any `json:"payload"`
}

// IsSearch reports whether the event is a search.
func (e Event) IsSearch() bool { return e.Kind == KindSearch }

// TrackResponse represents the response from event submission
type TrackResponse struct {
	OK bool `json:"ok"`
}

// TopSearch is one entry of the stats top_searches list.
type TopSearch struct {
	Query string `json:"q"`
	Count int    `json:"count"`
}

// Snapshot is the subset of GET /stats the test inspects.
type Snapshot struct {
	UniqueDevices int         `json:"unique_devices"`
	TotalEvents   int         `json:"total_events"`
	TotalSearches int         `json:"total_searches"`
	TopSearches   []TopSearch `json:"top_searches"`
}

// Stats holds test statistics
type Stats struct {
	EventsGenerated   int
	SearchesGenerated int
	EventsSubmitted   int
	EventsAccepted    int
	SearchesAccepted  int
	EventsRejected    int
	EventsFailed      int
	Before            Snapshot
	After             Snapshot
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
