package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind distinguishes who a displayed entry belongs to.
type Kind string

// Displayed entry kinds.
const (
	KindUser Kind = "user"
	KindBot  Kind = "bot"
)

// Displayed is a transcript entry as the client shows and persists it:
// a wire message plus identity, wall-clock time, and an error flag
// marking locally synthesized failure notices. Error-flagged entries are
// never sent back to the gateway.
type Displayed struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}

// encodeHistory serializes the transcript for the store.
func encodeHistory(msgs []Displayed) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	return data, nil
}

// decodeHistory deserializes a stored transcript.
func decodeHistory(data []byte) ([]Displayed, error) {
	var msgs []Displayed
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return msgs, nil
}
