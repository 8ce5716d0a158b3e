package admin

import (
	"context"
	"log/slog"

	"github.com/m3rciful/dirbot/core/logger"
	"github.com/m3rciful/dirbot/internal/access"
	"github.com/m3rciful/dirbot/internal/directory"
	"github.com/m3rciful/dirbot/internal/domain"
	"github.com/m3rciful/dirbot/internal/session"
)

// Authorizer decides whether actor may perform action.
type Authorizer interface {
	Authorize(ctx context.Context, actor domain.Actor, action string) bool
}

// Guard runs every envelope through an Authorizer before next sees it.
// Denied button presses are still acknowledged.
func Guard(auth Authorizer, out Transport, next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, env Envelope) error {
		if auth.Authorize(ctx, env.Actor, ActionName(env.Action)) {
			return next.Handle(ctx, env)
		}
		logger.Warn(ctx, "admin", "admin.denied",
			slog.String("op", ActionName(env.Action)),
			slog.String("actor", logger.SanitizeLimit(env.Actor.String(), 96)),
			slog.String("err_code", domain.KindCode(domain.ErrUnauthorized)),
		)
		if b, ok := env.Action.(Button); ok && b.Token != "" {
			if err := out.Acknowledge(ctx, b.Token, "Not allowed"); err != nil {
				logger.Warn(ctx, "admin", "admin.ack_failed", slog.String("err", err.Error()))
			}
		}
		_, err := out.RenderText(ctx, env.Key, DeniedText, nil)
		return err
	})
}

// ThrottledNotice answers a button press dropped by the rate limiter.
const ThrottledNotice = "Too many requests, slow down."

// throttled handles actions the rate limiter rejected: button presses are
// acknowledged with a notice so the client stops waiting, everything else
// is dropped.
func throttled(out Transport) Handler {
	return HandlerFunc(func(ctx context.Context, env Envelope) error {
		logger.Info(ctx, "admin", "admin.throttled", slog.String("op", ActionName(env.Action)))
		b, ok := env.Action.(Button)
		if !ok || b.Token == "" {
			return nil
		}
		return out.Acknowledge(ctx, b.Token, ThrottledNotice)
	})
}

// Deps are the collaborators of New.
type Deps struct {
	Auth      Authorizer
	Directory directory.Directory
	Transport Transport
	// Store and Audit are optional.
	Store  session.Store
	Audit  access.Sink
	Config Config
}

// New returns the guarded controller.
func New(d Deps) Handler {
	return Guard(d.Auth, d.Transport, NewController(d.Directory, d.Transport, d.Store, d.Audit, d.Config))
}

// NewThrottled returns the handler for rate limited updates. It passes the
// same gate as New, so unauthorized actors are audited and denied even
// when throttled.
func NewThrottled(d Deps) Handler {
	return Guard(d.Auth, d.Transport, throttled(d.Transport))
}
