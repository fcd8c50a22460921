package models

import (
	"encoding/json"
	"time"
)

// Author identifies the sender of a message.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location is a single point captured once at send time
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Message represents a chat message in the shared room. Text, Image and
// Location are independent payload fields; renderers check each field on
// its own rather than assuming exclusivity.
type Message struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"` // durable download URL
	Location  *Location `json:"location,omitempty"`
}

// HasPayload reports whether the message carries at least one payload field.
func (m *Message) HasPayload() bool {
	return m.Text != "" || m.Image != "" || m.Location != nil
}

// FeedType identifies the type of feed frame.
type FeedType string

const (
	// Server -> Client
	FeedSnapshot FeedType = "snapshot" // full current feed, sent on subscribe
	FeedMessage  FeedType = "message"  // a single newly appended message
	FeedError    FeedType = "error"
)

// FeedEnvelope wraps all feed frames with a type field.
type FeedEnvelope struct {
	Type FeedType        `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SnapshotData carries the full current feed, newest first.
type SnapshotData struct {
	Messages []Message `json:"messages"`
}

// MessageData carries one appended message.
type MessageData struct {
	Message Message `json:"message"`
}

// ErrorData carries a server-side failure notice.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewFeedEnvelope creates an envelope with the given type and data.
func NewFeedEnvelope(t FeedType, data interface{}) (*FeedEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &FeedEnvelope{Type: t, Data: raw}, nil
}

// ParseFeedEnvelope parses a JSON frame into an envelope.
func ParseFeedEnvelope(data []byte) (*FeedEnvelope, error) {
	var env FeedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
