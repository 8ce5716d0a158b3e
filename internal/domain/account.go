// Package domain holds the types shared by the directory client, the
// session store and the interaction controller.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// Actor identifies the person driving a conversation.
type Actor struct {
	ID     int64
	Handle string
}

// String renders the actor for log lines and audit entries.
func (a Actor) String() string {
	if a.Handle == "" {
		return strconv.FormatInt(a.ID, 10)
	}
	return strconv.FormatInt(a.ID, 10) + "(@" + strings.TrimPrefix(a.Handle, "@") + ")"
}

// Account is a snapshot of one remote directory user.
type Account struct {
	ID          string
	DisplayName *string
	Deactivated bool
	IsAdmin     bool
	AccountType *string
	CreatedAt   *time.Time
	LastSeenAt  *time.Time
}

// Name returns the display name or the id when no display name is set.
func (a Account) Name() string {
	if a.DisplayName != nil && strings.TrimSpace(*a.DisplayName) != "" {
		return *a.DisplayName
	}
	return a.ID
}

// Page is one slice of a remote listing together with the remote total.
type Page struct {
	Accounts []Account
	Total    int
}
