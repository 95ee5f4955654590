package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// Log appends an audit event. The payload is marshaled to JSON; a nil
// payload records an empty object.
func (s *EventStore) Log(eventType string, payload map[string]any) error {
	data := []byte("{}")
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
	}

	_, err := s.db.Exec(`INSERT INTO events (type, payload) VALUES (?, ?)`, eventType, string(data))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *EventStore) ListRecent(limit int) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, type, payload, created_at FROM events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
