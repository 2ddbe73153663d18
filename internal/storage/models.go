package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction is one message of a conversation together with the reply it
// received.
type Interaction struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	UserMessage    string    `json:"user_message"`
	Reply          string    `json:"reply"`
	Source         string    `json:"source"`   // "safeguard", "knowledge", "model", "fallback"
	Category       string    `json:"category"` // "clean", "abusive", "sensitive"
	Stage          string    `json:"stage"`
	WarningCount   int       `json:"warning_count"`
}
