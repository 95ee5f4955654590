package gateway

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/chore"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

type fakeSender struct {
	sent []struct{ target, text string }
}

func (s *fakeSender) Send(_ context.Context, target, text string) error {
	s.sent = append(s.sent, struct{ target, text string }{target, text})
	return nil
}

func (s *fakeSender) last() string {
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1].text
}

func setupDispatcher(t *testing.T) (*Dispatcher, *store.ChoreStore, *fakeSender) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	choreStore := store.NewChoreStore(db)
	users := store.NewUserStore(db)
	for _, id := range []string{"U1", "U2"} {
		if err := users.Ensure(id, "User "+id); err != nil {
			t.Fatalf("ensure user: %v", err)
		}
	}
	settings := store.NewSettingsStore(db)
	subs := store.NewSubmissionStore(db)
	svc := chore.NewService(choreStore, subs, nil, time.UTC, logger)

	dir := NewDirectory()
	dir.Update([]UserInfo{
		{ID: "U1", Name: "sam", DisplayName: "Sam"},
		{ID: "U2", Name: "rosie", DisplayName: "Rosie"},
	}, []ChannelInfo{
		{ID: "C1", Name: "chores"},
	})

	sender := &fakeSender{}
	d := NewDispatcher(svc, choreStore, users, settings, dir, sender, time.UTC, logger)
	d.SetClock(func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) })
	return d, choreStore, sender
}

func msg(user, text string, files ...File) Event {
	return Event{Type: eventMessage, User: user, Text: text, Files: files}
}

func TestDispatchHelp(t *testing.T) {
	d, _, sender := setupDispatcher(t)

	d.HandleEvent(context.Background(), msg("U1", "help"))
	if !strings.Contains(sender.last(), "Bywater commands") {
		t.Errorf("help reply = %q", sender.last())
	}
}

func TestDispatchUnknown(t *testing.T) {
	d, _, sender := setupDispatcher(t)

	d.HandleEvent(context.Background(), msg("U1", "make me a sandwich"))
	if !strings.Contains(sender.last(), "unknown command") {
		t.Errorf("reply = %q", sender.last())
	}
}

func TestDispatchAddForOtherUser(t *testing.T) {
	d, choreStore, sender := setupDispatcher(t)

	d.HandleEvent(context.Background(), msg("U1", `add "Take out trash" due 2024-01-15 09:00 for @rosie repeat weekly`))

	if !strings.Contains(sender.last(), "Chore added") {
		t.Fatalf("reply = %q", sender.last())
	}
	if !strings.Contains(sender.last(), "Rosie") {
		t.Errorf("reply should name the assignee: %q", sender.last())
	}

	open, err := choreStore.ListOpen(10)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open = %d, want 1", len(open))
	}
	if open[0].AssigneeID != "U2" || open[0].CreatedBy != "U1" {
		t.Errorf("chore = %+v", open[0])
	}
}

func TestDispatchAddUnknownAssignee(t *testing.T) {
	d, choreStore, sender := setupDispatcher(t)

	d.HandleEvent(context.Background(), msg("U1", `add "Trash" due 2024-01-15 09:00 for @gandalf`))
	if !strings.Contains(sender.last(), "could not find user") {
		t.Errorf("reply = %q", sender.last())
	}

	open, _ := choreStore.ListOpen(10)
	if len(open) != 0 {
		t.Errorf("no chore should be created, got %d", len(open))
	}
}

func TestDispatchListScopes(t *testing.T) {
	d, _, sender := setupDispatcher(t)

	d.HandleEvent(context.Background(), msg("U1", `add "Mine" due 2024-01-15 09:00`))
	d.HandleEvent(context.Background(), msg("U2", `add "Theirs" due 2024-01-16 09:00`))

	d.HandleEvent(context.Background(), msg("U1", "list"))
	if !strings.Contains(sender.last(), "Mine") || strings.Contains(sender.last(), "Theirs") {
		t.Errorf("list mine = %q", sender.last())
	}

	d.HandleEvent(context.Background(), msg("U1", "list all"))
	if !strings.Contains(sender.last(), "Mine") || !strings.Contains(sender.last(), "Theirs") {
		t.Errorf("list all = %q", sender.last())
	}
}

func TestDispatchDoneFlow(t *testing.T) {
	d, choreStore, sender := setupDispatcher(t)

	c, err := choreStore.Create("Dishes", "U1", time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), "U1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	d.HandleEvent(context.Background(), msg("U1", "done 999"))
	if !strings.Contains(sender.last(), "not found") {
		t.Errorf("reply = %q", sender.last())
	}

	d.HandleEvent(context.Background(), msg("U1", "done 1"))
	if !strings.Contains(sender.last(), "marked done") {
		t.Errorf("reply = %q", sender.last())
	}

	d.HandleEvent(context.Background(), msg("U2", "done 1"))
	if !strings.Contains(sender.last(), "already done") {
		t.Errorf("reply = %q", sender.last())
	}
	_ = c
}

func TestDispatchProofPicksSingleOverdue(t *testing.T) {
	d, choreStore, sender := setupDispatcher(t)

	// One overdue (before the fake clock), one future chore.
	overdue, _ := choreStore.Create("Overdue", "U1", time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), "U1", "")
	if _, err := choreStore.Create("Future", "U1", time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), "U1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	d.HandleEvent(context.Background(), msg("U1", "", File{ID: "F1", Mimetype: "image/png", URL: "https://files.example/F1"}))
	if !strings.Contains(sender.last(), "marked done") {
		t.Fatalf("reply = %q", sender.last())
	}

	got, err := choreStore.GetByID(overdue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusDone {
		t.Errorf("overdue chore status = %q, want done", got.Status)
	}
}

func TestDispatchProofAmbiguousAsks(t *testing.T) {
	d, choreStore, sender := setupDispatcher(t)

	if _, err := choreStore.Create("A", "U1", time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), "U1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := choreStore.Create("B", "U1", time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC), "U1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	d.HandleEvent(context.Background(), msg("U1", "", File{ID: "F1", Mimetype: "image/png"}))
	if !strings.Contains(sender.last(), "Which chore") {
		t.Errorf("reply = %q", sender.last())
	}

	open, _ := choreStore.ListOpen(10)
	if len(open) != 2 {
		t.Errorf("nothing should have been completed, open = %d", len(open))
	}
}

func TestDispatchProofWithExplicitID(t *testing.T) {
	d, choreStore, sender := setupDispatcher(t)

	c, _ := choreStore.Create("Windows", "U1", time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), "U1", "")

	d.HandleEvent(context.Background(), msg("U1", "done 1 proof attached", File{ID: "F9", Mimetype: "image/png"}))
	if !strings.Contains(sender.last(), "marked done") {
		t.Fatalf("reply = %q", sender.last())
	}

	got, _ := choreStore.GetByID(c.ID)
	if got.Status != model.StatusDone {
		t.Errorf("status = %q", got.Status)
	}
}

func TestDispatchSet(t *testing.T) {
	d, _, sender := setupDispatcher(t)

	d.HandleEvent(context.Background(), msg("U1", "set manager @rosie"))
	if !strings.Contains(sender.last(), "manager") || !strings.Contains(sender.last(), "Rosie") {
		t.Errorf("reply = %q", sender.last())
	}

	d.HandleEvent(context.Background(), msg("U1", "set destination #chores"))
	if !strings.Contains(sender.last(), "destination") {
		t.Errorf("reply = %q", sender.last())
	}

	d.HandleEvent(context.Background(), msg("U1", "set destination #nowhere"))
	if !strings.Contains(sender.last(), "could not find") {
		t.Errorf("reply = %q", sender.last())
	}
}
