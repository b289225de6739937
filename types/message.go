package types

import "time"

// DisplayTimeLayout is the human-readable layout used for every timestamp
// shown to owners and administrators.
const DisplayTimeLayout = "02/01/2006 15:04:05"

// Message represents a single anonymous message delivered to a handle.
type Message struct {
	// ID identifies the message within its owner's inbox.
	// IDs are assigned from a per-user counter and are never reused.
	ID int64 `json:"id"`

	// Text is the message body as submitted, trimmed.
	Text string `json:"text"`

	// ReceivedAt is the timestamp when the message was accepted.
	ReceivedAt time.Time `json:"timestamp"`

	// Reaction is the owner's annotation, set after reading.
	Reaction string `json:"reaction,omitempty"`

	// ReadAt is set together with Reaction.
	ReadAt *time.Time `json:"read_at,omitempty"`
}
