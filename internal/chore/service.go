package chore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
)

var (
	ErrNotFound    = errors.New("chore not found")
	ErrAlreadyDone = errors.New("chore already completed")
	ErrInvalid     = errors.New("invalid chore input")

	// ErrSpawnFailed marks a completion that succeeded but whose recurring
	// successor could not be created. The completed chore is still returned
	// so the caller can report the partial outcome.
	ErrSpawnFailed = errors.New("next occurrence not created")
)

// Proof is an optional completion artifact: a file reference, a URL, or a
// free-text note. All fields are opaque to the engine.
type Proof struct {
	FileID  *string
	FileURL *string
	Note    *string
}

// CompletionEvent is handed to the forwarder after a successful completion.
type CompletionEvent struct {
	Chore       model.Chore
	CompletedBy string
	CompletedAt time.Time
	ProofFileID string
	HasProof    bool
}

// Forwarder mirrors completion events to the configured destination.
type Forwarder interface {
	Forward(ctx context.Context, ev CompletionEvent) error
}

// CompletionResult reports a successful completion and, for recurring
// chores, the spawned next occurrence.
type CompletionResult struct {
	Completed model.Chore
	Next      *model.Chore
}

// Service is the chore lifecycle engine: it enforces valid state
// transitions and recurrence regeneration. All due arithmetic is relative
// to the injected clock, and recurrence arithmetic runs in the household's
// location so wall-clock times survive DST transitions.
type Service struct {
	chores      *store.ChoreStore
	submissions *store.SubmissionStore
	forwarder   Forwarder
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(chores *store.ChoreStore, submissions *store.SubmissionStore, forwarder Forwarder, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		chores:      chores,
		submissions: submissions,
		forwarder:   forwarder,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock overrides the time source. Tests use this for deterministic
// timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create validates and records a new open chore. It has no side effect on
// any other chore.
func (s *Service) Create(title, assigneeID string, dueAt time.Time, createdBy, repeat string) (*model.Chore, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalid)
	}
	if dueAt.IsZero() {
		return nil, fmt.Errorf("%w: missing due time", ErrInvalid)
	}
	if repeat != "" {
		if _, err := recurrence.Parse(repeat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	chore, err := s.chores.Create(title, assigneeID, dueAt, createdBy, repeat)
	if err != nil {
		return nil, fmt.Errorf("create chore: %w", err)
	}
	s.logger.Info("chore created", "chore_id", chore.ID, "assignee", assigneeID, "due_at", chore.DueAt)
	return chore, nil
}

// Complete transitions a chore open→done, records the submission, spawns
// the next occurrence for recurring chores, and emits a completion event.
// The status transition is the only gate: the store's conditional update
// guarantees a second completion attempt (concurrent or not) gets
// ErrAlreadyDone and causes no submission, no spawn, and no forward.
func (s *Service) Complete(ctx context.Context, choreID int64, completedBy string, proof *Proof) (*CompletionResult, error) {
	chore, err := s.chores.GetByID(choreID)
	if err != nil {
		return nil, fmt.Errorf("load chore: %w", err)
	}
	if chore == nil {
		return nil, ErrNotFound
	}
	if chore.Status == model.StatusDone {
		return nil, ErrAlreadyDone
	}

	completedAt := s.now()
	done, err := s.chores.MarkDone(choreID, completedAt)
	if err != nil {
		return nil, fmt.Errorf("mark done: %w", err)
	}
	if done == nil {
		// Lost the race to a concurrent completion.
		return nil, ErrAlreadyDone
	}

	if proof == nil {
		note := "completed without file"
		proof = &Proof{Note: &note}
	}
	if _, err := s.submissions.Create(choreID, completedBy, proof.FileID, proof.FileURL, proof.Note); err != nil {
		// The transition already happened; the missing submission is an
		// audit gap, not a reason to pretend the chore is still open.
		s.logger.Error("record submission", "chore_id", choreID, "error", err)
	}

	result := &CompletionResult{Completed: *done}
	var spawnErr error
	if done.RepeatRule != "" {
		result.Next, spawnErr = s.spawnNext(done)
	}

	s.emit(ctx, done, completedBy, completedAt, proof)

	s.logger.Info("chore completed", "chore_id", choreID, "by", completedBy, "spawned", result.Next != nil)
	if spawnErr != nil {
		return result, spawnErr
	}
	return result, nil
}

// spawnNext creates the successor of a completed recurring chore. The next
// due instant is computed from the original due instant, not from now, so
// a late completion does not drift the schedule. The stored instant is UTC;
// converting to the household location first keeps the calendar arithmetic
// on wall-clock days, so a due time of 09:00 stays 09:00 across a DST
// transition instead of shifting by the changed offset.
func (s *Service) spawnNext(done *model.Chore) (*model.Chore, error) {
	rule, err := recurrence.Parse(done.RepeatRule)
	if err != nil {
		s.logger.Error("stored repeat rule invalid", "chore_id", done.ID, "rule", done.RepeatRule, "error", err)
		return nil, nil
	}

	next, err := s.chores.Create(done.Title, done.AssigneeID, rule.Next(done.DueAt.In(s.loc)), done.CreatedBy, done.RepeatRule)
	if err != nil {
		s.logger.Error("spawn next occurrence", "chore_id", done.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	return next, nil
}

func (s *Service) emit(ctx context.Context, done *model.Chore, completedBy string, completedAt time.Time, proof *Proof) {
	if s.forwarder == nil {
		return
	}

	ev := CompletionEvent{
		Chore:       *done,
		CompletedBy: completedBy,
		CompletedAt: completedAt,
		HasProof:    proof.FileID != nil,
	}
	if proof.FileID != nil {
		ev.ProofFileID = *proof.FileID
	}

	if err := s.forwarder.Forward(ctx, ev); err != nil {
		s.logger.Error("forward completion", "chore_id", done.ID, "error", err)
	}
}
