package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

const timeFormat = "Mon Jan 2 15:04"

func renderHelp() string {
	return strings.Join([]string{
		"Bywater commands:",
		`  add "<title>" due YYYY-MM-DD HH:MM [for @user] [repeat weekly]`,
		"  list [mine|all]",
		"  done <chore-id>",
		"  set manager @user",
		"  set destination #channel (or @user)",
		"  help",
		"",
		"Attach a PNG with \"done <chore-id>\" in the caption to submit proof.",
	}, "\n")
}

func renderChoreAdded(c *model.Chore, assigneeName string) string {
	msg := fmt.Sprintf("Chore added.\nID: %d\nTitle: %s\nDue: %s\nAssignee: %s",
		c.ID, c.Title, c.DueAt.Format(timeFormat), assigneeName)
	if c.RepeatRule != "" {
		msg += "\nRepeats: " + c.RepeatRule
	}
	return msg
}

func renderChoreList(chores []model.Chore, displayName func(string) string) string {
	if len(chores) == 0 {
		return "No open chores found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open chores (%d):\n", len(chores))
	for _, c := range chores {
		fmt.Fprintf(&b, "  #%d %s — %s, due %s\n",
			c.ID, c.Title, displayName(c.AssigneeID), c.DueAt.Format(timeFormat))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderChoreDone(c *model.Chore, next *model.Chore) string {
	msg := fmt.Sprintf("Chore %d marked done. Nice work!", c.ID)
	if next != nil {
		msg += fmt.Sprintf("\nNext occurrence #%d is due %s.", next.ID, next.DueAt.Format(timeFormat))
	}
	return msg
}

func renderChooseChore(chores []model.Chore) string {
	var b strings.Builder
	b.WriteString("Which chore is this for? Reply \"done <id>\" with your proof attached:\n")
	for _, c := range chores {
		fmt.Fprintf(&b, "  #%d %s, due %s\n", c.ID, c.Title, c.DueAt.Format(timeFormat))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSettingUpdated(key, display string) string {
	return fmt.Sprintf("Setting updated: %s is now %s.", key, display)
}

func renderError(text string) string {
	return "Sorry: " + text
}

// RenderReminder builds the reminder text for a chore. Only the tone
// distinguishes overdue from imminent.
func RenderReminder(c model.Chore, now time.Time) string {
	if c.Overdue(now) {
		return fmt.Sprintf("OVERDUE: %q (#%d) was due %s. Reply \"done %d\" when finished.",
			c.Title, c.ID, c.DueAt.Format(timeFormat), c.ID)
	}
	return fmt.Sprintf("Due soon: %q (#%d) is due %s. Reply \"done %d\" when finished.",
		c.Title, c.ID, c.DueAt.Format(timeFormat), c.ID)
}
