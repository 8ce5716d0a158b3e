// Package admin drives the directory administration dialogue: it turns
// normalized actions into directory calls, session transitions and
// rendered replies.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/dirbot/core/logger"
	"github.com/m3rciful/dirbot/internal/access"
	"github.com/m3rciful/dirbot/internal/directory"
	"github.com/m3rciful/dirbot/internal/domain"
	"github.com/m3rciful/dirbot/internal/listing"
	"github.com/m3rciful/dirbot/internal/session"
)

// Handler processes one Envelope. A returned error means the reply could
// not be delivered; directory failures are rendered, not returned.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error { return f(ctx, env) }

// Config tunes the controller.
type Config struct {
	PageSize int
	// ListLimit bounds the display-only listing.
	ListLimit int
	// SearchLimit and CandidateLimit bound the result sets kept in a session.
	SearchLimit    int
	CandidateLimit int
}

// Defaults used for zero Config fields.
const (
	DefaultPageSize       = 10
	DefaultListLimit      = 100
	DefaultSearchLimit    = 1000
	DefaultCandidateLimit = 1000
)

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.ListLimit <= 0 {
		c.ListLimit = DefaultListLimit
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = DefaultCandidateLimit
	}
	return c
}

// Controller is the per-conversation state machine.
type Controller struct {
	dir   directory.Directory
	out   Transport
	store session.Store
	locks *session.Locker
	audit access.Sink
	cfg   Config
	now   func() time.Time
}

// NewController wires a controller. A nil store gets an in-memory one and a
// nil audit sink logs entries.
func NewController(dir directory.Directory, out Transport, store session.Store, audit access.Sink, cfg Config) *Controller {
	if store == nil {
		store = session.NewMemoryStore()
	}
	if audit == nil {
		audit = access.LogSink{}
	}
	return &Controller{
		dir:   dir,
		out:   out,
		store: store,
		locks: session.NewLocker(),
		audit: audit,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// Store exposes the session store.
func (c *Controller) Store() session.Store { return c.store }

// Handle acknowledges button presses first, then processes the action
// while holding the conversation lock.
func (c *Controller) Handle(ctx context.Context, env Envelope) error {
	var ev Event
	if b, ok := env.Action.(Button); ok {
		var err error
		ev, err = DecodeButton(b.Key, b.Payload)
		if err != nil {
			c.ack(ctx, b.Token, "This button is out of date.")
			logger.Info(ctx, "admin", "admin.button_rejected",
				slog.String("button", logger.SanitizeLimit(b.Key, 32)),
				slog.String("err_code", domain.KindCode(err)),
			)
			return c.say(ctx, env, errorReply(err, "", nil), true)
		}
		c.ack(ctx, b.Token, "")
	}

	unlock := c.locks.Lock(env.Key)
	defer unlock()

	before, _ := c.store.Get(env.Key)
	start := time.Now()

	var err error
	switch a := env.Action.(type) {
	case Command:
		err = c.onCommand(ctx, env, a)
	case FreeText:
		err = c.onText(ctx, env, before.Clone(), a)
	case Button:
		err = c.onEvent(ctx, env, before.Clone(), ev)
	default:
		return fmt.Errorf("admin: unsupported action %T", env.Action)
	}

	after, _ := c.store.Get(env.Key)
	attrs := []slog.Attr{
		slog.String("op", ActionName(env.Action)),
		slog.String("from", string(before.State())),
		slog.String("to", string(after.State())),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, "admin", "admin.transition", attrs...)
		return err
	}
	logger.Info(ctx, "admin", "admin.transition", attrs...)
	return nil
}

func (c *Controller) ack(ctx context.Context, token, notice string) {
	if token == "" {
		return
	}
	if err := c.out.Acknowledge(ctx, token, notice); err != nil {
		logger.Warn(ctx, "admin", "admin.ack_failed", slog.String("err", err.Error()))
	}
}

// say delivers r. Button replies edit the pressed message unless r is
// fresh or fresh is forced; a failed edit falls back to a new message.
func (c *Controller) say(ctx context.Context, env Envelope, r reply, fresh bool) error {
	if !fresh && !r.fresh && !env.Message.IsZero() {
		err := c.out.UpdateText(ctx, env.Key, env.Message, r.text, r.layout)
		if err == nil {
			return nil
		}
		logger.Debug(ctx, "admin", "admin.edit_fallback", slog.String("err", err.Error()))
	}
	_, err := c.out.RenderText(ctx, env.Key, r.text, r.layout)
	return err
}

func (c *Controller) onCommand(ctx context.Context, env Envelope, cmd Command) error {
	switch strings.ToLower(strings.TrimPrefix(cmd.Name, "/")) {
	case "start", "menu":
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply(""), true)
	case "cancel":
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply("Cancelled."), true)
	}
	return nil
}

func (c *Controller) onText(ctx context.Context, env Envelope, s session.Session, msg FreeText) error {
	if s.Mode != session.ModeAwaitingSearchInput {
		return nil
	}
	term := strings.TrimSpace(msg.Text)
	if term == "" {
		return c.say(ctx, env, searchPromptReply("The search term must not be empty."), true)
	}
	page, err := c.dir.SearchUsers(ctx, term, 0, c.cfg.SearchLimit)
	if err != nil {
		return c.say(ctx, env, errorReply(err, term, &ButtonSpec{Text: "🔎 Search again", Key: keySearch}), true)
	}
	if len(page.Accounts) == 0 {
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply(fmt.Sprintf("No accounts match %q.", term)), true)
	}
	next := session.Session{
		Results:    page.Accounts,
		ResultKind: session.KindSearch,
		SearchTerm: term,
	}
	c.store.Set(env.Key, next)
	return c.say(ctx, env, resultsReply(next, c.cfg.PageSize, ""), true)
}

func (c *Controller) onEvent(ctx context.Context, env Envelope, s session.Session, ev Event) error {
	switch e := ev.(type) {
	case EvNoop:
		return nil
	case EvMenu:
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply(""), false)
	case EvList:
		return c.showListing(ctx, env)
	case EvSearch:
		c.store.Set(env.Key, session.Session{Mode: session.ModeAwaitingSearchInput})
		return c.say(ctx, env, searchPromptReply(""), false)
	case EvDeactivateMenu:
		return c.showCandidates(ctx, env)
	case EvPage:
		return c.turnPage(ctx, env, s, e)
	case EvSelect:
		return c.selectTarget(ctx, env, s, e.Ref)
	case EvInspect:
		return c.inspect(ctx, env, s, e.Ref)
	case EvConfirm:
		return c.confirm(ctx, env, s, e.Ref)
	case EvCancel:
		return c.cancel(ctx, env, s)
	}
	return fmt.Errorf("admin: unhandled event %T", ev)
}

func (c *Controller) stale(ctx context.Context, env Envelope, err error) error {
	logger.Info(ctx, "admin", "admin.stale_reference",
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	return c.say(ctx, env, errorReply(err, "", nil), true)
}

func (c *Controller) showListing(ctx context.Context, env Envelope) error {
	page, err := c.dir.ListUsers(ctx, 0, c.cfg.ListLimit)
	if err != nil {
		return c.say(ctx, env, errorReply(err, "", &ButtonSpec{Text: "🔁 Retry", Key: keyList}), false)
	}
	return c.say(ctx, env, listingReply(page), false)
}

func (c *Controller) showCandidates(ctx context.Context, env Envelope) error {
	page, err := c.dir.ListUsers(ctx, 0, c.cfg.CandidateLimit)
	if err != nil {
		return c.say(ctx, env, errorReply(err, "", &ButtonSpec{Text: "🔁 Retry", Key: keyDeactivate}), false)
	}
	candidates := listing.DeactivationCandidates(page.Accounts)
	if len(candidates) == 0 {
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply("There are no accounts that can be deactivated."), false)
	}
	next := session.Session{Results: candidates, ResultKind: session.KindDeactivation}
	c.store.Set(env.Key, next)
	return c.say(ctx, env, resultsReply(next, c.cfg.PageSize, ""), false)
}

func (c *Controller) turnPage(ctx context.Context, env Envelope, s session.Session, ev EvPage) error {
	if !s.HasResults() || s.ResultKind != ev.Kind || s.PendingConfirmationID != "" {
		return c.stale(ctx, env, fmt.Errorf("page %s results: %w", ev.Kind, domain.ErrStaleReference))
	}
	page := listing.ClampPage(s.Page+ev.Delta, len(s.Results), c.cfg.PageSize)
	if page == s.Page {
		return nil
	}
	s.Page = page
	c.store.Set(env.Key, s)
	return c.say(ctx, env, resultsReply(s, c.cfg.PageSize, ""), false)
}

func (c *Controller) selectTarget(ctx context.Context, env Envelope, s session.Session, ref Ref) error {
	if !s.HasResults() || s.PendingConfirmationID != "" {
		return c.stale(ctx, env, fmt.Errorf("select: %w", domain.ErrStaleReference))
	}
	idx, acc, err := resolve(s, ref)
	if err != nil {
		return c.stale(ctx, env, err)
	}
	if !listing.IsDeactivationCandidate(acc) {
		return c.say(ctx, env, noticeReply(fmt.Sprintf("%s cannot be deactivated here.", acc.ID)), true)
	}
	s.PendingConfirmationID = acc.ID
	c.store.Set(env.Key, s)
	// The detail overlay is a separate message; the confirmation prompt
	// replaces whatever the button was attached to.
	return c.say(ctx, env, confirmReply(acc, idx), false)
}

func (c *Controller) inspect(ctx context.Context, env Envelope, s session.Session, ref Ref) error {
	if s.ResultKind != session.KindSearch || s.PendingConfirmationID != "" {
		return c.stale(ctx, env, fmt.Errorf("inspect: %w", domain.ErrStaleReference))
	}
	idx, target, err := resolve(s, ref)
	if err != nil {
		return c.stale(ctx, env, err)
	}
	acc, err := c.dir.GetUser(ctx, target.ID)
	if err != nil {
		retry := refButton("🔁 Retry", keyInspect, target, idx)
		return c.say(ctx, env, errorReply(err, target.ID, &retry), true)
	}
	if acc.ID == "" {
		acc.ID = target.ID
	}
	return c.say(ctx, env, detailReply(acc, idx), true)
}

func (c *Controller) cancel(ctx context.Context, env Envelope, s session.Session) error {
	if s.PendingConfirmationID == "" {
		return c.stale(ctx, env, fmt.Errorf("cancel: nothing pending: %w", domain.ErrStaleReference))
	}
	s.PendingConfirmationID = ""
	s.Page = listing.ClampPage(s.Page, len(s.Results), c.cfg.PageSize)
	c.store.Set(env.Key, s)
	return c.say(ctx, env, resultsReply(s, c.cfg.PageSize, ""), false)
}

func (c *Controller) confirm(ctx context.Context, env Envelope, s session.Session, ref Ref) error {
	if s.PendingConfirmationID == "" {
		return c.stale(ctx, env, fmt.Errorf("confirm: nothing pending: %w", domain.ErrStaleReference))
	}
	idx, target, err := resolve(s, ref)
	if err != nil || target.ID != s.PendingConfirmationID {
		if err == nil {
			err = fmt.Errorf("confirm %s while %s is pending: %w", target.ID, s.PendingConfirmationID, domain.ErrStaleReference)
		}
		return c.stale(ctx, env, err)
	}

	// Drop the confirm/cancel buttons so the prompt cannot be pressed twice.
	if !env.Message.IsZero() {
		if err := c.out.UpdateButtons(ctx, env.Key, env.Message, nil); err != nil {
			logger.Debug(ctx, "admin", "admin.buttons_clear_failed", slog.String("err", err.Error()))
		}
	}

	entry := access.Entry{
		Action:      "deactivate",
		ActorID:     env.Actor.ID,
		ActorHandle: env.Actor.Handle,
		Target:      target.ID,
	}
	s.PendingConfirmationID = ""

	current, err := c.dir.GetUser(ctx, target.ID)
	if err == nil && !listing.IsDeactivationCandidate(current) {
		s.Results = append(s.Results[:idx:idx], s.Results[idx+1:]...)
		c.commitResults(env.Key, s)
		entry.Outcome = access.OutcomeSkipped
		entry.Detail = "no longer a candidate"
		c.record(ctx, entry)
		return c.say(ctx, env, noticeReply(fmt.Sprintf("%s is already deactivated or is an admin. Nothing was changed.", target.ID)), true)
	}
	if err != nil && !errors.Is(err, domain.ErrDirectoryUnavailable) {
		c.commitResults(env.Key, s)
		entry.Outcome = access.OutcomeFailed
		entry.Detail = domain.KindCode(err)
		c.record(ctx, entry)
		return c.say(ctx, env, errorReply(err, target.ID, c.retryButton(s, target, idx)), true)
	}
	// An unavailable pre-check is not fatal; the deactivate call reports it.

	if err := c.dir.DeactivateUser(ctx, target.ID); err != nil {
		c.commitResults(env.Key, s)
		entry.Outcome = access.OutcomeFailed
		entry.Detail = domain.KindCode(err)
		if remote := domain.RemoteMessage(err); remote != "" {
			entry.Detail += ": " + remote
		}
		c.record(ctx, entry)
		return c.say(ctx, env, errorReply(err, target.ID, c.retryButton(s, target, idx)), true)
	}
	entry.Outcome = access.OutcomeOK
	c.record(ctx, entry)

	done := fmt.Sprintf("✅ %s has been deactivated.", target.ID)
	if s.ResultKind != session.KindDeactivation {
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply(done), true)
	}

	page, err := c.dir.ListUsers(ctx, 0, c.cfg.CandidateLimit)
	if err != nil {
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply(done), true)
	}
	candidates := listing.DeactivationCandidates(page.Accounts)
	if len(candidates) == 0 {
		c.store.Delete(env.Key)
		return c.say(ctx, env, menuReply(done), true)
	}
	s.Results = candidates
	s.Page = listing.ClampPage(s.Page, len(candidates), c.cfg.PageSize)
	c.store.Set(env.Key, s)
	return c.say(ctx, env, resultsReply(s, c.cfg.PageSize, done), true)
}

// retryButton offers to select the target again, which leads back through
// the confirmation prompt.
func (c *Controller) retryButton(s session.Session, target domain.Account, idx int) *ButtonSpec {
	if !s.HasResults() {
		return nil
	}
	b := refButton("🔁 Retry", keySelect, target, idx)
	return &b
}

func (c *Controller) commitResults(key session.Key, s session.Session) {
	if !s.HasResults() || len(s.Results) == 0 {
		c.store.Delete(key)
		return
	}
	s.Page = listing.ClampPage(s.Page, len(s.Results), c.cfg.PageSize)
	c.store.Set(key, s)
}

func (c *Controller) record(ctx context.Context, e access.Entry) {
	e.At = c.now()
	access.Report(ctx, c.audit, e)
}
