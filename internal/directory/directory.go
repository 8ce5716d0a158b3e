// Package directory is the typed façade over the homeserver admin API.
//
// The remote API has no search endpoint that matches the bot's rules, so
// SearchUsers fetches a bounded superset and filters locally. Accounts
// beyond the superset are never found; this is a known limitation.
package directory

import (
	"context"

	"github.com/m3rciful/dirbot/internal/domain"
)

// Directory is the set of remote calls the interaction controller issues.
// No call is retried; a single failure surfaces to the caller.
type Directory interface {
	ListUsers(ctx context.Context, offset, limit int) (domain.Page, error)
	SearchUsers(ctx context.Context, term string, offset, limit int) (domain.Page, error)
	GetUser(ctx context.Context, id string) (domain.Account, error)
	DeactivateUser(ctx context.Context, id string) error
}

// Unavailable is a Directory whose every call fails with
// domain.ErrDirectoryUnavailable. It stands in when the client is not configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) fail(op string) error {
	msg := u.Reason
	if msg == "" {
		msg = "directory client not configured"
	}
	return &domain.DirectoryError{Kind: domain.ErrDirectoryUnavailable, Op: op, Message: msg}
}

func (u Unavailable) ListUsers(context.Context, int, int) (domain.Page, error) {
	return domain.Page{}, u.fail("list users")
}

func (u Unavailable) SearchUsers(context.Context, string, int, int) (domain.Page, error) {
	return domain.Page{}, u.fail("search users")
}

func (u Unavailable) GetUser(context.Context, string) (domain.Account, error) {
	return domain.Account{}, u.fail("get user")
}

func (u Unavailable) DeactivateUser(context.Context, string) error {
	return u.fail("deactivate user")
}
