// Package session keeps per-conversation interaction state in memory.
package session

import "github.com/m3rciful/dirbot/internal/domain"

// Mode is the input mode of a conversation.
type Mode int

const (
	// ModeIdle means free text is not expected.
	ModeIdle Mode = iota
	// ModeAwaitingSearchInput means the next free text is a search term.
	ModeAwaitingSearchInput
)

// Kind tells what a result set was fetched for.
type Kind int

const (
	// KindNone marks a session without a result set.
	KindNone Kind = iota
	// KindDeactivation marks deactivation candidates.
	KindDeactivation
	// KindSearch marks search matches.
	KindSearch
)

func (k Kind) String() string {
	switch k {
	case KindDeactivation:
		return "deactivation"
	case KindSearch:
		return "search"
	}
	return "none"
}

// State is the interaction state derived from a Session.
type State string

const (
	StateIdle                   State = "idle"
	StateAwaitingSearchInput    State = "awaiting_search_input"
	StateResultsShown           State = "results_shown"
	StateConfirmingDeactivation State = "confirming_deactivation"
)

// Key identifies a conversation.
type Key int64

// Session is the mutable state of one conversation. Stores hand out
// copies; callers commit changes with Set.
type Session struct {
	Mode       Mode
	Results    []domain.Account
	ResultKind Kind
	SearchTerm string
	Page       int
	// PendingConfirmationID is the account awaiting a confirm or cancel.
	PendingConfirmationID string
}

// State derives the interaction state.
func (s Session) State() State {
	switch {
	case s.PendingConfirmationID != "":
		return StateConfirmingDeactivation
	case s.Mode == ModeAwaitingSearchInput:
		return StateAwaitingSearchInput
	case s.ResultKind != KindNone:
		return StateResultsShown
	}
	return StateIdle
}

// HasResults reports whether a result set is loaded.
func (s Session) HasResults() bool {
	return s.ResultKind != KindNone
}

// Find returns the index of id in the result set.
func (s Session) Find(id string) (int, bool) {
	for i, acc := range s.Results {
		if acc.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy of the result slice so edits never alias stored state.
func (s Session) Clone() Session {
	if s.Results != nil {
		s.Results = append([]domain.Account(nil), s.Results...)
	}
	return s
}

// Store holds one Session per conversation.
type Store interface {
	Get(key Key) (Session, bool)
	Set(key Key, s Session)
	Delete(key Key)
}
