package model

import "time"

// Event is an append-only audit record (reminders sent, completions
// forwarded, delivery errors).
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
