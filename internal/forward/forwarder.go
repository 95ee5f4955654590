package forward

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/bywater/internal/chore"
	"github.com/dukerupert/bywater/internal/store"
)

// Notifier delivers a pre-rendered message to a conversation or user.
type Notifier interface {
	Send(ctx context.Context, target, text string) error
}

// ProofMirror copies a proof artifact somewhere the destination audience
// can see it and returns its URL.
type ProofMirror interface {
	Mirror(ctx context.Context, choreID int64, fileID string) (string, error)
}

// Forwarder mirrors completion events to the destination configured in
// settings. With no destination configured every forward is a silent no-op.
type Forwarder struct {
	settings *store.SettingsStore
	users    *store.UserStore
	events   *store.EventStore
	notifier Notifier
	mirror   ProofMirror
	logger   *slog.Logger
}

func New(settings *store.SettingsStore, users *store.UserStore, events *store.EventStore, notifier Notifier, mirror ProofMirror, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		settings: settings,
		users:    users,
		events:   events,
		notifier: notifier,
		mirror:   mirror,
		logger:   logger,
	}
}

// Forward sends the completion summary, then tries to surface the proof
// artifact if one was attached. The secondary step is best-effort: its
// failure is logged and swallowed, never undoing the summary.
func (f *Forwarder) Forward(ctx context.Context, ev chore.CompletionEvent) error {
	settings, err := f.settings.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.DestinationID == nil {
		return nil
	}
	dest := *settings.DestinationID

	summary := f.renderSummary(ev)
	if err := f.notifier.Send(ctx, dest, summary); err != nil {
		return fmt.Errorf("forward completion: %w", err)
	}

	f.logEvent("completion_forwarded", map[string]any{
		"chore_id":  ev.Chore.ID,
		"by":        ev.CompletedBy,
		"has_proof": ev.HasProof,
	})

	if ev.HasProof && f.mirror != nil {
		url, err := f.mirror.Mirror(ctx, ev.Chore.ID, ev.ProofFileID)
		if err != nil {
			f.logger.Error("mirror proof", "chore_id", ev.Chore.ID, "file_id", ev.ProofFileID, "error", err)
			return nil
		}
		proofMsg := fmt.Sprintf("Proof image for %q: %s", ev.Chore.Title, url)
		if err := f.notifier.Send(ctx, dest, proofMsg); err != nil {
			f.logger.Error("send proof link", "chore_id", ev.Chore.ID, "error", err)
		}
	}
	return nil
}

func (f *Forwarder) renderSummary(ev chore.CompletionEvent) string {
	proofNote := "no proof attached"
	if ev.HasProof {
		proofNote = "proof attached"
	}
	return fmt.Sprintf("Chore completed: %q\nAssignee: %s\nCompleted by: %s at %s (%s)",
		ev.Chore.Title,
		f.displayName(ev.Chore.AssigneeID),
		f.displayName(ev.CompletedBy),
		ev.CompletedAt.Format("Jan 2, 2006 15:04"),
		proofNote,
	)
}

func (f *Forwarder) displayName(userID string) string {
	u, err := f.users.GetByID(userID)
	if err != nil || u == nil {
		return userID
	}
	return u.DisplayName
}

func (f *Forwarder) logEvent(eventType string, payload map[string]any) {
	if f.events == nil {
		return
	}
	if err := f.events.Log(eventType, payload); err != nil {
		f.logger.Error("log event", "type", eventType, "error", err)
	}
}
