// Package command parses the five-verb chat grammar into closed, typed
// variants. Malformed input is rejected here; the lifecycle engine never
// sees it.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnknown   = errors.New("unknown command")
	ErrMalformed = errors.New("malformed command")
)

type ListScope string

const (
	ScopeMine ListScope = "mine"
	ScopeAll  ListScope = "all"
)

type SetKey string

const (
	KeyManager     SetKey = "manager"
	KeyDestination SetKey = "destination"
)

// Command is a closed set: Help, Add, List, Done or Set.
type Command interface{ isCommand() }

type Help struct{}

type Add struct {
	Title    string
	DueAt    time.Time
	Assignee string // mention as typed, "" = assign to sender
	Repeat   string // cadence token, "" = one-shot
}

type List struct {
	Scope ListScope
}

type Done struct {
	ChoreID int64
}

type Set struct {
	Key   SetKey
	Value string
}

func (Help) isCommand() {}
func (Add) isCommand()  {}
func (List) isCommand() {}
func (Done) isCommand() {}
func (Set) isCommand()  {}

var (
	doneRe     = regexp.MustCompile(`^done\s+(\d+)$`)
	setRe      = regexp.MustCompile(`^set\s+(manager|destination)\s+(.+)$`)
	quotedRe   = regexp.MustCompile(`^add\s+"([^"]+)"`)
	dueRe      = regexp.MustCompile(`^due\s+(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2})`)
	assigneeRe = regexp.MustCompile(`^for\s+(@\S+)`)
	repeatRe   = regexp.MustCompile(`^repeat\s+(\S+)`)
	choreIDRe  = regexp.MustCompile(`(?i)done\s+(\d+)`)
)

// Parse interprets one line of user input. Due times are interpreted in
// the given location (nil means the process-local zone).
func Parse(text string, loc *time.Location) (Command, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	switch {
	case trimmed == "" || lower == "help":
		return Help{}, nil

	case lower == "list" || strings.HasPrefix(lower, "list "):
		return parseList(lower)

	case strings.HasPrefix(lower, "done"):
		m := doneRe.FindStringSubmatch(lower)
		if m == nil {
			return nil, fmt.Errorf("%w: usage: done <chore-id>", ErrMalformed)
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad chore id %q", ErrMalformed, m[1])
		}
		return Done{ChoreID: id}, nil

	case strings.HasPrefix(lower, "set"):
		m := setRe.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, fmt.Errorf("%w: usage: set manager @user | set destination #channel", ErrMalformed)
		}
		return Set{Key: SetKey(strings.ToLower(m[1])), Value: strings.TrimSpace(m[2])}, nil

	case strings.HasPrefix(lower, "add"):
		return parseAdd(trimmed, loc)
	}

	return nil, ErrUnknown
}

func parseList(lower string) (Command, error) {
	fields := strings.Fields(lower)
	if len(fields) == 1 {
		return List{Scope: ScopeMine}, nil
	}
	switch fields[1] {
	case "mine":
		return List{Scope: ScopeMine}, nil
	case "all":
		return List{Scope: ScopeAll}, nil
	}
	return nil, fmt.Errorf("%w: usage: list [mine|all]", ErrMalformed)
}

// parseAdd handles: add "<title>" due YYYY-MM-DD HH:MM [for @user] [repeat weekly].
// An unquoted title runs up to the " due " keyword.
func parseAdd(text string, loc *time.Location) (Command, error) {
	var title, rest string

	if m := quotedRe.FindStringSubmatch(text); m != nil {
		title = m[1]
		rest = strings.TrimSpace(text[len(m[0]):])
	} else {
		lower := strings.ToLower(text)
		dueIdx := strings.Index(lower, " due ")
		if dueIdx < 0 {
			return nil, fmt.Errorf("%w: missing due time", ErrMalformed)
		}
		title = strings.TrimSpace(text[3:dueIdx])
		rest = strings.TrimSpace(text[dueIdx+1:])
	}
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrMalformed)
	}

	m := dueRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, fmt.Errorf("%w: expected due YYYY-MM-DD HH:MM", ErrMalformed)
	}
	dueAt, err := parseDue(m[1], loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	rest = strings.TrimSpace(rest[len(m[0]):])

	cmd := Add{Title: title, DueAt: dueAt}

	if m := assigneeRe.FindStringSubmatch(rest); m != nil {
		cmd.Assignee = m[1]
		rest = strings.TrimSpace(rest[len(m[0]):])
	}
	if m := repeatRe.FindStringSubmatch(rest); m != nil {
		cmd.Repeat = strings.ToLower(m[1])
	}
	return cmd, nil
}

func parseDue(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	// Collapse whitespace between date and time.
	s = strings.Join(strings.Fields(s), " ")
	t, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad due time %q", s)
	}
	return t, nil
}

// ExtractChoreID pulls a "done <id>" reference out of free text, as used
// when a proof file arrives with a caption. Returns 0 if absent.
func ExtractChoreID(text string) int64 {
	m := choreIDRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
