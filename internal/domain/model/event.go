// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Well-known event kinds emitted by the browser tracker.
const (
	KindPageView = "page_view"
	KindSearch   = "search"
)

// Well-known payload keys.
const (
	PayloadQuery = "q"
	PayloadPath  = "path"
)

// TimestampLayout is the layout of server-assigned timestamps: UTC, microsecond
// precision, literal Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// DateLayout is the layout of daily bucket keys.
const DateLayout = "2006-01-02"

// Event is one recorded user action. The JSON keys are the persisted line
// format and must stay stable.
type Event struct {
	TS       string  `json:"ts"`       // server-assigned receipt time, see TimestampLayout
	IP       *string `json:"ip"`       // caller address as seen by the server, nil when unknown
	UA       *string `json:"ua"`       // User-Agent header, nil when absent
	Kind     string  `json:"event"`    // event type, e.g. "page_view", "search"
	DeviceID string  `json:"deviceId"` // opaque client-generated device identifier
	Payload  Payload `json:"payload"`  // schema-less event details
}

// Valid reports whether the event carries the required kind and device id.
func (e Event) Valid() bool {
	return e.Kind != "" && e.DeviceID != ""
}

// IsSearch reports whether the event is a search.
func (e Event) IsSearch() bool {
	return e.Kind == KindSearch
}

// Time parses TS. ok is false when the stored value is missing or malformed.
func (e Event) Time() (t time.Time, ok bool) {
	return ParseTimestamp(e.TS)
}

// Payload is the open key/value mapping attached to an event.
type Payload map[string]any

// UnmarshalJSON decodes an object into p, keeping numbers as json.Number so
// integers beyond 2^53 survive a round trip. Any other JSON value, null
// included, decodes to an empty payload. Malformed JSON is an error.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if m, ok := v.(map[string]any); ok {
		*p = m
		return nil
	}
	*p = Payload{}
	return nil
}

// Query returns the trimmed search query. ok is false when q is absent or not
// a string.
func (p Payload) Query() (string, bool) {
	return p.stringValue(PayloadQuery)
}

// Path returns the trimmed page path of a page view.
func (p Payload) Path() (string, bool) {
	return p.stringValue(PayloadPath)
}

func (p Payload) stringValue(key string) (string, bool) {
	v, ok := p[key].(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// FormatTimestamp renders t in the stored timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// acceptedLayouts are tried in order by ParseTimestamp. Values without a zone
// are read as UTC.
var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	DateLayout,
}

// ParseTimestamp parses an ISO-8601 timestamp and normalises it to UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ErrInvalidEvent reports that a submission lacks a kind or device id.
var ErrInvalidEvent = errors.New("missing event/deviceId")

// TrackRequest is an event submission after transport decoding. IP and UA are
// the caller address and User-Agent as seen by the server; empty means
// unknown.
type TrackRequest struct {
	Kind     string
	DeviceID string
	Payload  Payload
	IP       string
	UA       string
}
