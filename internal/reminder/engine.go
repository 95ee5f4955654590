package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

// Notifier delivers a pre-rendered message to a conversation or user. The
// content is opaque to the engine.
type Notifier interface {
	Send(ctx context.Context, target, text string) error
}

// Renderer produces the reminder text for a chore. Message tone (due soon
// vs overdue) lives here, outside the engine.
type Renderer func(c model.Chore, now time.Time) string

// Engine selects chores needing a reminder and enforces the no-repeat
// window. It owns the Tracker exclusively.
type Engine struct {
	chores   *store.ChoreStore
	events   *store.EventStore
	notifier Notifier
	render   Renderer
	tracker  *Tracker
	logger   *slog.Logger
}

func NewEngine(chores *store.ChoreStore, events *store.EventStore, notifier Notifier, render Renderer, logger *slog.Logger) *Engine {
	return &Engine{
		chores:   chores,
		events:   events,
		notifier: notifier,
		render:   render,
		tracker:  NewTracker(),
		logger:   logger,
	}
}

// Tracker exposes the dedup state for tests.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Sweep runs one reminder pass: every open chore due at or before
// now+window is a candidate, the tracker filters out recently-reminded
// ones, and successful deliveries raise the dedup timestamp. A failed
// delivery is logged and skipped; the chore retries on the next sweep.
// Per-chore failures never abort the sweep.
func (e *Engine) Sweep(ctx context.Context, now time.Time, window time.Duration) error {
	candidates, err := e.chores.ListOpenDueBy(now.Add(window))
	if err != nil {
		return fmt.Errorf("list candidates: %w", err)
	}

	for _, c := range candidates {
		if !e.tracker.ShouldSend(c.ID, now, window) {
			continue
		}

		if err := e.notifier.Send(ctx, c.AssigneeID, e.render(c, now)); err != nil {
			e.logger.Error("send reminder", "chore_id", c.ID, "assignee", c.AssigneeID, "error", err)
			e.logEvent("reminder_error", map[string]any{"chore_id": c.ID, "error": err.Error()})
			continue
		}

		e.tracker.MarkSent(c.ID, now)
		e.logEvent("reminder_sent", map[string]any{
			"chore_id": c.ID,
			"assignee": c.AssigneeID,
			"due_at":   c.DueAt,
		})
	}

	e.collectGarbage()
	return nil
}

// collectGarbage drops tracker entries for chores that are gone or done,
// bounding memory to the set of open, recently-reminded chores.
func (e *Engine) collectGarbage() {
	for _, id := range e.tracker.IDs() {
		c, err := e.chores.GetByID(id)
		if err != nil {
			e.logger.Error("tracker gc lookup", "chore_id", id, "error", err)
			continue
		}
		if c == nil || c.Status == model.StatusDone {
			e.tracker.Forget(id)
		}
	}
}

func (e *Engine) logEvent(eventType string, payload map[string]any) {
	if e.events == nil {
		return
	}
	if err := e.events.Log(eventType, payload); err != nil {
		e.logger.Error("log event", "type", eventType, "error", err)
	}
}
