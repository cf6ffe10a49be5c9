package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// RefreshRequest asks for a narrative to be (re)computed for one place.
// Exactly one of City, Query or Lat/Lon identifies the place; City wins,
// then coordinates, then Query.
type RefreshRequest struct {
	ID       string   `json:"id"`
	Session  string   `json:"session,omitempty"`
	City     string   `json:"city,omitempty"`
	Query    string   `json:"query,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Label    string   `json:"label,omitempty"`
	Language string   `json:"language,omitempty"`

	RequestedAt time.Time `json:"requested_at,omitzero"`
}

// HasCoordinates reports whether both coordinates are set.
func (r RefreshRequest) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// SessionKey groups requests whose results replace one another. Requests
// without a session are keyed by their ID, so only a redelivery of the same
// request supersedes them.
func (r RefreshRequest) SessionKey() string {
	if r.Session != "" {
		return r.Session
	}
	return r.ID
}

// NarrativeEvent is the narrative published for one refresh request.
type NarrativeEvent struct {
	RequestID   string    `json:"request_id"`
	Session     string    `json:"session,omitempty"`
	Location    Place     `json:"location"`
	Language    string    `json:"language"`
	Narrative   Narrative `json:"narrative"`
	Synthetic   bool      `json:"synthetic,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
