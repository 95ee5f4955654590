package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Ensure upserts a user record, refreshing the display name.
func (s *UserStore) Ensure(id, displayName string) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, display_name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, updated_at = CURRENT_TIMESTAMP`,
		id, displayName,
	)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT id, display_name, created_at, updated_at FROM users WHERE id = ?`, id)

	var u model.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
