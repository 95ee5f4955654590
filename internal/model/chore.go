package model

import "time"

type ChoreStatus string

const (
	StatusOpen ChoreStatus = "open"
	StatusDone ChoreStatus = "done"
)

type Chore struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	AssigneeID string      `json:"assignee_id"`
	DueAt      time.Time   `json:"due_at"`
	RepeatRule string      `json:"repeat_rule,omitempty"`
	Status     ChoreStatus `json:"status"`
	CreatedBy  string      `json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Overdue reports whether the chore's due instant has passed.
func (c Chore) Overdue(now time.Time) bool {
	return c.DueAt.Before(now) || c.DueAt.Equal(now)
}

type Submission struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
	FileID      *string   `json:"file_id,omitempty"`
	FileURL     *string   `json:"file_url,omitempty"`
	Note        *string   `json:"note,omitempty"`
}
