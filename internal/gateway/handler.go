package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/bywater/internal/chore"
	"github.com/dukerupert/bywater/internal/command"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

const (
	listLimit      = 20
	proofPickLimit = 10
)

// Sender delivers outbound text; the Client satisfies it.
type Sender interface {
	Send(ctx context.Context, target, text string) error
}

// Dispatcher turns inbound message events into lifecycle engine calls and
// user-facing replies. All input validation and name resolution happens
// here, before anything reaches the engine.
type Dispatcher struct {
	chores     *chore.Service
	choreStore *store.ChoreStore
	users      *store.UserStore
	settings   *store.SettingsStore
	directory  *Directory
	sender     Sender
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

func NewDispatcher(
	chores *chore.Service,
	choreStore *store.ChoreStore,
	users *store.UserStore,
	settings *store.SettingsStore,
	directory *Directory,
	sender Sender,
	loc *time.Location,
	logger *slog.Logger,
) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{
		chores:     chores,
		choreStore: choreStore,
		users:      users,
		settings:   settings,
		directory:  directory,
		sender:     sender,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// SetClock overrides the time source for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// HandleEvent processes one inbound message.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev Event) {
	if ev.Type != eventMessage || ev.User == "" {
		return
	}

	if err := d.users.Ensure(ev.User, d.directory.DisplayName(ev.User)); err != nil {
		d.logger.Error("ensure user", "user", ev.User, "error", err)
	}

	if f, ok := pngFile(ev.Files); ok {
		d.handleProof(ctx, ev, f)
		return
	}

	cmd, err := command.Parse(ev.Text, d.loc)
	if err != nil {
		switch {
		case errors.Is(err, command.ErrUnknown):
			d.reply(ctx, ev.User, renderError(`unknown command. Type "help" for available commands.`))
		default:
			d.reply(ctx, ev.User, renderError(err.Error()))
		}
		return
	}

	switch cmd := cmd.(type) {
	case command.Help:
		d.reply(ctx, ev.User, renderHelp())
	case command.Add:
		d.handleAdd(ctx, ev.User, cmd)
	case command.List:
		d.handleList(ctx, ev.User, cmd)
	case command.Done:
		d.handleDone(ctx, ev.User, cmd.ChoreID, nil)
	case command.Set:
		d.handleSet(ctx, ev.User, cmd)
	}
}

func pngFile(files []File) (File, bool) {
	for _, f := range files {
		if f.Mimetype == "image/png" {
			return f, true
		}
	}
	return File{}, false
}

func (d *Dispatcher) reply(ctx context.Context, user, text string) {
	if err := d.sender.Send(ctx, user, text); err != nil {
		d.logger.Error("send reply", "user", user, "error", err)
	}
}

func (d *Dispatcher) handleAdd(ctx context.Context, sender string, cmd command.Add) {
	assigneeID := sender
	if cmd.Assignee != "" {
		id, ok := d.directory.ResolveUser(cmd.Assignee)
		if !ok {
			d.reply(ctx, sender, renderError(fmt.Sprintf("could not find user %s", cmd.Assignee)))
			return
		}
		assigneeID = id
	}

	if err := d.users.Ensure(assigneeID, d.directory.DisplayName(assigneeID)); err != nil {
		d.logger.Error("ensure assignee", "user", assigneeID, "error", err)
	}

	created, err := d.chores.Create(cmd.Title, assigneeID, cmd.DueAt, sender, cmd.Repeat)
	if err != nil {
		if errors.Is(err, chore.ErrInvalid) {
			d.reply(ctx, sender, renderError(err.Error()))
			return
		}
		d.logger.Error("create chore", "error", err)
		d.reply(ctx, sender, renderError("could not add the chore, try again"))
		return
	}

	d.reply(ctx, sender, renderChoreAdded(created, d.directory.DisplayName(assigneeID)))
}

func (d *Dispatcher) handleList(ctx context.Context, sender string, cmd command.List) {
	var (
		chores []model.Chore
		err    error
	)
	switch cmd.Scope {
	case command.ScopeAll:
		chores, err = d.choreStore.ListOpen(listLimit)
	default:
		chores, err = d.choreStore.ListOpenByAssignee(sender, listLimit)
	}
	if err != nil {
		d.logger.Error("list chores", "scope", cmd.Scope, "error", err)
		d.reply(ctx, sender, renderError("could not load chores, try again"))
		return
	}

	d.reply(ctx, sender, renderChoreList(chores, d.directory.DisplayName))
}

func (d *Dispatcher) handleDone(ctx context.Context, sender string, choreID int64, proof *chore.Proof) {
	result, err := d.chores.Complete(ctx, choreID, sender, proof)
	switch {
	case errors.Is(err, chore.ErrNotFound):
		d.reply(ctx, sender, renderError(fmt.Sprintf("chore %d not found", choreID)))
		return
	case errors.Is(err, chore.ErrAlreadyDone):
		d.reply(ctx, sender, renderError(fmt.Sprintf("chore %d is already done", choreID)))
		return
	case errors.Is(err, chore.ErrSpawnFailed):
		// Completed, but the recurring successor is missing. Say so.
		d.reply(ctx, sender, renderChoreDone(&result.Completed, nil)+
			"\nWarning: the next occurrence could not be scheduled, please re-add it.")
		return
	case err != nil:
		d.logger.Error("complete chore", "chore_id", choreID, "error", err)
		d.reply(ctx, sender, renderError("could not complete the chore, try again"))
		return
	}

	d.reply(ctx, sender, renderChoreDone(&result.Completed, result.Next))
}

func (d *Dispatcher) handleProof(ctx context.Context, ev Event, f File) {
	choreID := command.ExtractChoreID(ev.Text)
	if choreID == 0 {
		open, err := d.choreStore.ListOpenByAssignee(ev.User, proofPickLimit)
		if err != nil {
			d.logger.Error("list chores for proof", "user", ev.User, "error", err)
			d.reply(ctx, ev.User, renderError("could not load your chores, try again"))
			return
		}

		picked, err := chore.PickForProof(open, d.now())
		switch {
		case errors.Is(err, chore.ErrAmbiguous):
			d.reply(ctx, ev.User, renderChooseChore(open))
			return
		case errors.Is(err, chore.ErrNoCandidates):
			d.reply(ctx, ev.User, renderError("no open chores found. Please specify a chore ID."))
			return
		case err != nil:
			d.reply(ctx, ev.User, renderError("could not determine which chore to mark done"))
			return
		}
		choreID = picked.ID
	}

	proof := &chore.Proof{FileID: &f.ID}
	if f.URL != "" {
		proof.FileURL = &f.URL
	}
	d.handleDone(ctx, ev.User, choreID, proof)
}

func (d *Dispatcher) handleSet(ctx context.Context, sender string, cmd command.Set) {
	switch cmd.Key {
	case command.KeyManager:
		id, ok := d.directory.ResolveUser(cmd.Value)
		if !ok {
			d.reply(ctx, sender, renderError(fmt.Sprintf("could not find user %s", cmd.Value)))
			return
		}
		if err := d.users.Ensure(id, d.directory.DisplayName(id)); err != nil {
			d.logger.Error("ensure manager", "user", id, "error", err)
		}
		if err := d.settings.SetManager(id, d.now()); err != nil {
			d.logger.Error("set manager", "error", err)
			d.reply(ctx, sender, renderError("could not update settings, try again"))
			return
		}
		d.reply(ctx, sender, renderSettingUpdated("manager", d.directory.DisplayName(id)))

	case command.KeyDestination:
		id, ok := d.directory.ResolveConversation(cmd.Value)
		if !ok {
			d.reply(ctx, sender, renderError(fmt.Sprintf("could not find channel or user %s", cmd.Value)))
			return
		}
		if err := d.settings.SetDestination(id, d.now()); err != nil {
			d.logger.Error("set destination", "error", err)
			d.reply(ctx, sender, renderError("could not update settings, try again"))
			return
		}
		d.reply(ctx, sender, renderSettingUpdated("destination", cmd.Value))
	}
}
