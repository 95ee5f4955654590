package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var repeatRule sql.NullString

	err := scanner.Scan(
		&c.ID, &c.Title, &c.AssigneeID, &c.DueAt, &repeatRule,
		&c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if repeatRule.Valid {
		c.RepeatRule = repeatRule.String
	}
	return &c, nil
}

const choreCols = `id, title, assignee_id, due_at, repeat_rule, status, created_by, created_at, updated_at`

func (s *ChoreStore) Create(title, assigneeID string, dueAt time.Time, createdBy, repeatRule string) (*model.Chore, error) {
	var rule sql.NullString
	if repeatRule != "" {
		rule = sql.NullString{String: repeatRule, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (title, assignee_id, due_at, repeat_rule, created_by) VALUES (?, ?, ?, ?, ?)`,
		title, assigneeID, dueAt.UTC(), rule, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// MarkDone atomically transitions a chore from open to done. It returns the
// updated record, or nil if the chore does not exist or is already done.
// The conditional WHERE clause is what serializes concurrent completions:
// exactly one caller observes the transition.
func (s *ChoreStore) MarkDone(id int64, now time.Time) (*model.Chore, error) {
	result, err := s.db.Exec(
		`UPDATE chores SET status = 'done', updated_at = ? WHERE id = ? AND status = 'open'`,
		now.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark chore done: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// ListOpenDueBy returns open chores whose due instant is at or before the
// given cutoff, soonest first.
func (s *ChoreStore) ListOpenDueBy(cutoff time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE status = 'open' AND due_at <= ? ORDER BY due_at ASC`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due chores: %w", err)
	}
	return collectChores(rows)
}

func (s *ChoreStore) ListOpenByAssignee(assigneeID string, limit int) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE assignee_id = ? AND status = 'open' ORDER BY due_at ASC LIMIT ?`,
		assigneeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by assignee: %w", err)
	}
	return collectChores(rows)
}

func (s *ChoreStore) ListOpen(limit int) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE status = 'open' ORDER BY due_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list open chores: %w", err)
	}
	return collectChores(rows)
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}
