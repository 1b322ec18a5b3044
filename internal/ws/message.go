package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

// MessagePreferencesUpdated tells a client its stored preference changed
// and should be pulled again.
const MessagePreferencesUpdated MessageType = "preferences.updated"

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
}
