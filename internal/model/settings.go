package model

import "time"

// Settings is the singleton configuration row (id = 1, seeded by migration).
type Settings struct {
	ManagerID     *string   `json:"manager_id,omitempty"`
	DestinationID *string   `json:"destination_id,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
