package gateway

import (
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

func TestRenderReminderTone(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	c := model.Chore{ID: 3, Title: "Take out trash", Status: model.StatusOpen}

	c.DueAt = now.Add(-time.Hour)
	if got := RenderReminder(c, now); !strings.Contains(got, "OVERDUE") {
		t.Errorf("overdue reminder = %q", got)
	}

	c.DueAt = now.Add(10 * time.Minute)
	got := RenderReminder(c, now)
	if strings.Contains(got, "OVERDUE") || !strings.Contains(got, "Due soon") {
		t.Errorf("imminent reminder = %q", got)
	}
	if !strings.Contains(got, "done 3") {
		t.Errorf("reminder should include the done hint: %q", got)
	}
}

func TestRenderChoreListEmpty(t *testing.T) {
	got := renderChoreList(nil, func(id string) string { return id })
	if got != "No open chores found." {
		t.Errorf("got %q", got)
	}
}

func TestResolveConversation(t *testing.T) {
	dir := NewDirectory()
	dir.Update([]UserInfo{{ID: "U1", Name: "sam", DisplayName: "Sam"}},
		[]ChannelInfo{{ID: "C1", Name: "chores"}})

	if id, ok := dir.ResolveConversation("@sam"); !ok || id != "U1" {
		t.Errorf("@sam → %q, %v", id, ok)
	}
	if id, ok := dir.ResolveConversation("#chores"); !ok || id != "C1" {
		t.Errorf("#chores → %q, %v", id, ok)
	}
	if id, ok := dir.ResolveConversation("chores"); !ok || id != "C1" {
		t.Errorf("bare chores → %q, %v", id, ok)
	}
	if id, ok := dir.ResolveConversation("Sam"); !ok || id != "U1" {
		t.Errorf("display name → %q, %v", id, ok)
	}
	if _, ok := dir.ResolveConversation("nobody"); ok {
		t.Error("unknown value should not resolve")
	}
}
