package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

type fakeNotifier struct {
	sent    []string // "target:text"
	failFor map[string]error
}

func (n *fakeNotifier) Send(_ context.Context, target, text string) error {
	if err := n.failFor[target]; err != nil {
		return err
	}
	n.sent = append(n.sent, target+":"+text)
	return nil
}

func plainRender(c model.Chore, _ time.Time) string {
	return fmt.Sprintf("chore %d", c.ID)
}

func setupEngine(t *testing.T) (*Engine, *store.ChoreStore, *fakeNotifier) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	for _, id := range []string{"U1", "U2"} {
		if err := users.Ensure(id, "User "+id); err != nil {
			t.Fatalf("ensure user: %v", err)
		}
	}

	chores := store.NewChoreStore(db)
	events := store.NewEventStore(db)
	notifier := &fakeNotifier{failFor: map[string]error{}}
	engine := NewEngine(chores, events, notifier, plainRender, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return engine, chores, notifier
}

func TestSweepRemindsDueAndOverdue(t *testing.T) {
	engine, chores, notifier := setupEngine(t)
	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	overdue, _ := chores.Create("Overdue", "U1", now.Add(-time.Hour), "U1", "")
	imminent, _ := chores.Create("Imminent", "U2", now.Add(10*time.Minute), "U1", "")
	if _, err := chores.Create("Far future", "U2", now.Add(2*time.Hour), "U1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := engine.Sweep(context.Background(), now, window); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("sent = %d, want 2 (overdue + imminent)", len(notifier.sent))
	}
	if !engine.Tracker().ShouldSend(overdue.ID, now.Add(window), window) {
		t.Error("overdue chore should be eligible again after one full window")
	}
	_ = imminent
}

func TestSweepDedupWindow(t *testing.T) {
	engine, chores, notifier := setupEngine(t)
	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	if _, err := chores.Create("Trash", "U1", now.Add(-time.Minute), "U1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := engine.Sweep(context.Background(), now, window); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(notifier.sent))
	}

	// 10 minutes later: inside the window, no re-notification.
	if err := engine.Sweep(context.Background(), now.Add(10*time.Minute), window); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent after 10m = %d, want still 1", len(notifier.sent))
	}

	// Exactly one window later: eligible again.
	if err := engine.Sweep(context.Background(), now.Add(window), window); err != nil {
		t.Fatalf("third sweep: %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("sent after full window = %d, want 2", len(notifier.sent))
	}
}

func TestSweepDeliveryFailure(t *testing.T) {
	engine, chores, notifier := setupEngine(t)
	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	failing, _ := chores.Create("Failing", "U1", now.Add(-time.Hour), "U1", "")
	if _, err := chores.Create("Healthy", "U2", now.Add(-time.Hour), "U1", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	notifier.failFor["U1"] = errors.New("gateway down")

	if err := engine.Sweep(context.Background(), now, window); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// The failure did not abort the sweep: U2 still got a reminder.
	if len(notifier.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(notifier.sent))
	}

	// The failed chore's dedup timestamp was not raised, so the very next
	// sweep retries it.
	delete(notifier.failFor, "U1")
	if err := engine.Sweep(context.Background(), now.Add(time.Minute), window); err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("sent after retry = %d, want 2", len(notifier.sent))
	}
	if engine.Tracker().ShouldSend(failing.ID, now.Add(time.Minute), window) {
		t.Error("successful retry should have raised the dedup timestamp")
	}
}

func TestSweepGarbageCollectsDoneChores(t *testing.T) {
	engine, chores, notifier := setupEngine(t)
	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	c, _ := chores.Create("Short lived", "U1", now.Add(-time.Hour), "U1", "")

	if err := engine.Sweep(context.Background(), now, window); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if engine.Tracker().Len() != 1 {
		t.Fatalf("tracker len = %d, want 1", engine.Tracker().Len())
	}

	if _, err := chores.MarkDone(c.ID, now); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	// Next sweep's cleanup pass drops the entry even though the chore is
	// no longer a candidate.
	if err := engine.Sweep(context.Background(), now.Add(time.Minute), window); err != nil {
		t.Fatalf("sweep after done: %v", err)
	}
	if engine.Tracker().Len() != 0 {
		t.Errorf("tracker len = %d, want 0 after gc", engine.Tracker().Len())
	}
	if len(notifier.sent) != 1 {
		t.Errorf("done chore must not be re-notified, sent = %d", len(notifier.sent))
	}
}
