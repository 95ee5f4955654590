package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func scanSubmission(scanner interface{ Scan(...any) error }) (*model.Submission, error) {
	var sub model.Submission
	var fileID, fileURL, note sql.NullString

	err := scanner.Scan(
		&sub.ID, &sub.ChoreID, &sub.SubmittedBy, &sub.SubmittedAt,
		&fileID, &fileURL, &note,
	)
	if err != nil {
		return nil, err
	}

	if fileID.Valid {
		sub.FileID = &fileID.String
	}
	if fileURL.Valid {
		sub.FileURL = &fileURL.String
	}
	if note.Valid {
		sub.Note = &note.String
	}
	return &sub, nil
}

const submissionCols = `id, chore_id, submitted_by, submitted_at, file_id, file_url, note`

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (s *SubmissionStore) Create(choreID int64, submittedBy string, fileID, fileURL, note *string) (*model.Submission, error) {
	result, err := s.db.Exec(
		`INSERT INTO submissions (chore_id, submitted_by, file_id, file_url, note) VALUES (?, ?, ?, ?, ?)`,
		choreID, submittedBy, nullStr(fileID), nullStr(fileURL), nullStr(note),
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+submissionCols+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionStore) ListByChore(choreID int64) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT `+submissionCols+` FROM submissions WHERE chore_id = ? ORDER BY submitted_at DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
