package store

import (
	"encoding/json"
	"time"
)

// Exchange is one chat round trip: the user's message and the assistant's
// reply as it was sent to the client.
type Exchange struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	UserMessage string          `json:"user_message"`
	Type        string          `json:"type"`
	BotResponse json.RawMessage `json:"bot_response"`
	CreatedAt   time.Time       `json:"timestamp"`
}

// SessionSummary describes one stored session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Count     int       `json:"count"`
	LastAt    time.Time `json:"last_at"`
}
