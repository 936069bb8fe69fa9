package api

import "encoding/json"

// BatchEvent is one event in a batch-ingest request.
type BatchEvent struct {
	ID         string         `json:"event_id"`
	Type       string         `json:"event_type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// BatchResult is the outcome of a batch-ingest call. Failed lists event IDs
// the server rejected; partial failure is reported, not an error.
type BatchResult struct {
	Accepted int
	Failed   []string
}

// Message is a server-supplied content item. Nil limits mean the
// corresponding constraint does not apply; a nil DismissDays means a
// dismissal suppresses the message permanently.
type Message struct {
	ID               string          `json:"id"`
	Priority         int             `json:"priority"`
	DismissDays      *int            `json:"dismiss_days"`
	MaxImpressions   *int            `json:"max_impressions"`
	MinIntervalHours *int            `json:"min_interval_hours"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}
