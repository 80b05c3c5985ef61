package storage

import (
	"encoding/json"
	"time"
)

// Event is one click to record. The timestamp is always assigned by the
// Recorder.
type Event struct {
	EventID string
	UserID  *string // nil stores NULL; "" is stored as is

	// AdditionalData is stored verbatim when it is a string, as text when
	// it is []byte or json.RawMessage, and JSON-encoded otherwise.
	AdditionalData any

	// Fields holds values for extension columns, keyed by column name.
	Fields map[string]any
}

// EventRecord is one stored row as returned by EventStats.
type EventRecord struct {
	EventID        string
	UserID         *string
	Timestamp      string
	AdditionalData *string

	// Extra holds every non-base column, keyed by column name.
	Extra map[string]any
}

// Time parses Timestamp.
func (r EventRecord) Time() (time.Time, error) {
	return parseTimestamp(r.Timestamp)
}

// MarshalJSON flattens Extra next to the base fields, the way the row looks
// in the table.
func (r EventRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 4+len(r.Extra))
	for k, v := range r.Extra {
		m[k] = v
	}
	m[ColEventID] = r.EventID
	m[ColUserID] = r.UserID
	m[ColTimestamp] = r.Timestamp
	m[ColAdditionalData] = r.AdditionalData
	return json.Marshal(m)
}

// EventSummary aggregates every row of one event id.
type EventSummary struct {
	EventID    string `json:"eventId"`
	Count      int64  `json:"count"`
	FirstClick string `json:"firstClick"`
	LastClick  string `json:"lastClick"`
}

// TimeBucket counts one event id within one period bucket.
type TimeBucket struct {
	Period  string `json:"period"`
	EventID string `json:"eventId"`
	Count   int64  `json:"count"`
}
