package chore

import (
	"errors"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

var (
	// ErrAmbiguous means more than one chore could match; the user must
	// pick explicitly rather than the engine guessing.
	ErrAmbiguous = errors.New("multiple candidate chores")

	ErrNoCandidates = errors.New("no open chores")
)

// PickForProof selects the chore a bare proof submission applies to when
// the submitter gave no chore id: the single overdue chore wins, else the
// single open chore. Zero or multiple candidates require an explicit
// choice.
func PickForProof(open []model.Chore, now time.Time) (*model.Chore, error) {
	var overdue []model.Chore
	for _, c := range open {
		if c.Overdue(now) {
			overdue = append(overdue, c)
		}
	}

	switch {
	case len(overdue) == 1:
		return &overdue[0], nil
	case len(overdue) > 1:
		return nil, ErrAmbiguous
	case len(open) == 1:
		return &open[0], nil
	case len(open) > 1:
		return nil, ErrAmbiguous
	}
	return nil, ErrNoCandidates
}
