package recurrence

import (
	"fmt"
	"strings"
	"time"
)

type Cadence int

const (
	Weekly Cadence = iota
)

var cadenceNames = map[Cadence]string{
	Weekly: "weekly",
}

var cadenceFromName = map[string]Cadence{
	"weekly": Weekly,
}

// Rule describes how a completed chore regenerates its next occurrence.
type Rule struct {
	Cadence Cadence
}

// Parse parses a cadence token like "weekly". Unknown tokens are an error,
// never silently ignored.
func Parse(token string) (Rule, error) {
	c, ok := cadenceFromName[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Rule{}, fmt.Errorf("unknown cadence: %q", token)
	}
	return Rule{Cadence: c}, nil
}

// Valid reports whether token parses as a recognized cadence.
func Valid(token string) bool {
	_, err := Parse(token)
	return err == nil
}

// Next computes the due instant of the occurrence after the given one.
// AddDate walks the calendar, so the wall-clock time of day is preserved
// across daylight-saving transitions in the instant's location.
func (r Rule) Next(due time.Time) time.Time {
	switch r.Cadence {
	case Weekly:
		return due.AddDate(0, 0, 7)
	}
	return due
}

// String serializes the rule back to its token form.
func (r Rule) String() string {
	return cadenceNames[r.Cadence]
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Cadence {
	case Weekly:
		return "Repeats weekly"
	}
	return ""
}
