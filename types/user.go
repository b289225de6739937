package types

import "time"

// User represents a handle and its inbox.
// It is created lazily the first time any route references the handle.
type User struct {
	// Username is the unique, lowercase handle under which messages are received.
	Username string `json:"username"`

	// CreatedAt is the timestamp when the handle was first touched.
	CreatedAt time.Time `json:"created_at"`

	// Messages is the inbox, ordered by receipt.
	Messages []Message `json:"messages"`
}

// MessageCount returns the number of messages currently in the inbox.
func (u User) MessageCount() int {
	return len(u.Messages)
}
