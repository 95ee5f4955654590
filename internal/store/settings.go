package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// SettingsStore reads and writes the singleton settings row. The row is
// seeded by the initial migration, so Get never returns "no rows" on a
// healthy database.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get() (*model.Settings, error) {
	var settings model.Settings
	var managerID, destinationID sql.NullString

	err := s.db.QueryRow(
		`SELECT manager_id, destination_id, updated_at FROM settings WHERE id = 1`,
	).Scan(&managerID, &destinationID, &settings.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if managerID.Valid {
		settings.ManagerID = &managerID.String
	}
	if destinationID.Valid {
		settings.DestinationID = &destinationID.String
	}
	return &settings, nil
}

func (s *SettingsStore) SetManager(managerID string, now time.Time) error {
	_, err := s.db.Exec(
		`UPDATE settings SET manager_id = ?, updated_at = ? WHERE id = 1`,
		managerID, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("set manager: %w", err)
	}
	return nil
}

func (s *SettingsStore) SetDestination(destinationID string, now time.Time) error {
	_, err := s.db.Exec(
		`UPDATE settings SET destination_id = ?, updated_at = ? WHERE id = 1`,
		destinationID, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("set destination: %w", err)
	}
	return nil
}
