package admin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/dirbot/core/telegram/callbacks"
	"github.com/m3rciful/dirbot/internal/domain"
	"github.com/m3rciful/dirbot/internal/session"
)

// Action is the normalized input to the controller.
type Action interface {
	actionName() string
}

// Command is a slash command such as /menu.
type Command struct {
	Name string
	Args []string
}

// FreeText is a plain chat message.
type FreeText struct {
	Text string
}

// Button is an inline button press. Token identifies the interaction
// for Acknowledge.
type Button struct {
	Key     string
	Payload string
	Token   string
}

func (c Command) actionName() string {
	return "command." + strings.ToLower(strings.TrimPrefix(c.Name, "/"))
}

func (FreeText) actionName() string { return "text" }

func (b Button) actionName() string { return "button." + b.Key }

// ActionName returns the audit name of a.
func ActionName(a Action) string {
	if a == nil {
		return "unknown"
	}
	return a.actionName()
}

// Envelope carries an Action with its actor and conversation.
type Envelope struct {
	Key    session.Key
	Actor  domain.Actor
	Action Action
	// Message is the message a button was attached to; zero for commands and text.
	Message MessageRef
}

// Button keys. Key and payload travel in callback data.
const (
	keyMenu       = "menu"
	keyList       = "list"
	keySearch     = "search"
	keyDeactivate = "deact"
	keyPage       = "pg"
	keySelect     = "sel"
	keyInspect    = "insp"
	keyConfirm    = "ok"
	keyCancel     = "cancel"
	keyNoop       = "noop"
)

// ButtonKeys lists every callback key the controller understands.
func ButtonKeys() []string {
	return []string{
		keyMenu, keyList, keySearch, keyDeactivate, keyPage,
		keySelect, keyInspect, keyConfirm, keyCancel, keyNoop,
	}
}

// maxCallbackData is Telegram's limit for callback data, which is
// encoded as "\f<key>|<payload>".
const maxCallbackData = 64

// Event is a decoded button press.
type Event interface {
	isEvent()
}

// Ref points at an account either by id or by position in the session result set.
type Ref struct {
	ID    string
	Index int
}

type (
	// EvMenu returns to the root menu and clears the session.
	EvMenu struct{}
	// EvList shows the display-only account listing.
	EvList struct{}
	// EvSearch prompts for a search term.
	EvSearch struct{}
	// EvDeactivateMenu lists deactivation candidates.
	EvDeactivateMenu struct{}
	// EvPage moves the result page of Kind by Delta.
	EvPage struct {
		Kind  session.Kind
		Delta int
	}
	// EvSelect picks a deactivation target and asks for confirmation.
	EvSelect struct{ Ref Ref }
	// EvInspect shows the detail overlay of a search result.
	EvInspect struct{ Ref Ref }
	// EvConfirm confirms the pending deactivation.
	EvConfirm struct{ Ref Ref }
	// EvCancel drops the pending deactivation.
	EvCancel struct{}
	// EvNoop only acknowledges.
	EvNoop struct{}
)

func (EvMenu) isEvent()           {}
func (EvList) isEvent()           {}
func (EvSearch) isEvent()         {}
func (EvDeactivateMenu) isEvent() {}
func (EvPage) isEvent()           {}
func (EvSelect) isEvent()         {}
func (EvInspect) isEvent()        {}
func (EvConfirm) isEvent()        {}
func (EvCancel) isEvent()         {}
func (EvNoop) isEvent()           {}

// DecodeButton turns callback key and payload into an Event.
func DecodeButton(key, payload string) (Event, error) {
	switch key {
	case keyMenu:
		return EvMenu{}, nil
	case keyList:
		return EvList{}, nil
	case keySearch:
		return EvSearch{}, nil
	case keyDeactivate:
		return EvDeactivateMenu{}, nil
	case keyCancel:
		return EvCancel{}, nil
	case keyNoop:
		return EvNoop{}, nil
	case keyPage:
		return decodePage(payload)
	case keySelect, keyInspect, keyConfirm:
		ref, err := decodeRef(payload)
		if err != nil {
			return nil, err
		}
		switch key {
		case keySelect:
			return EvSelect{Ref: ref}, nil
		case keyInspect:
			return EvInspect{Ref: ref}, nil
		default:
			return EvConfirm{Ref: ref}, nil
		}
	}
	return nil, fmt.Errorf("unknown button %q: %w", key, domain.ErrStaleReference)
}

func decodePage(payload string) (Event, error) {
	kindPart, dirPart, ok := strings.Cut(payload, ":")
	if !ok {
		return nil, fmt.Errorf("page payload %q: %w", payload, domain.ErrStaleReference)
	}
	var ev EvPage
	switch kindPart {
	case "d":
		ev.Kind = session.KindDeactivation
	case "s":
		ev.Kind = session.KindSearch
	default:
		return nil, fmt.Errorf("page kind %q: %w", kindPart, domain.ErrStaleReference)
	}
	switch dirPart {
	case "+":
		ev.Delta = 1
	case "-":
		ev.Delta = -1
	default:
		return nil, fmt.Errorf("page direction %q: %w", dirPart, domain.ErrStaleReference)
	}
	return ev, nil
}

func decodeRef(payload string) (Ref, error) {
	if payload == "" {
		return Ref{}, fmt.Errorf("empty account reference: %w", domain.ErrStaleReference)
	}
	if strings.HasPrefix(payload, "#") {
		n, err := strconv.Atoi(payload[1:])
		if err != nil || n < 0 {
			return Ref{}, fmt.Errorf("account index %q: %w", payload, domain.ErrStaleReference)
		}
		return Ref{Index: n}, nil
	}
	return Ref{ID: payload, Index: -1}, nil
}

// refButton builds a button that references the account at index. The id
// is embedded when it fits the callback limit, otherwise the index is.
func refButton(text, key string, acc domain.Account, index int) ButtonSpec {
	payload := acc.ID
	if len(callbacks.Encode(key, payload)) > maxCallbackData || strings.HasPrefix(payload, "#") {
		payload = "#" + strconv.Itoa(index)
	}
	return ButtonSpec{Text: text, Key: key, Payload: payload}
}

func pageButton(text string, kind session.Kind, delta int) ButtonSpec {
	k := "s"
	if kind == session.KindDeactivation {
		k = "d"
	}
	d := "+"
	if delta < 0 {
		d = "-"
	}
	return ButtonSpec{Text: text, Key: keyPage, Payload: k + ":" + d}
}

// resolve finds the account a Ref points at in s.
func resolve(s session.Session, ref Ref) (int, domain.Account, error) {
	if ref.ID != "" {
		if i, ok := s.Find(ref.ID); ok {
			return i, s.Results[i], nil
		}
		return -1, domain.Account{}, fmt.Errorf("account %s not in current results: %w", ref.ID, domain.ErrStaleReference)
	}
	if ref.Index >= 0 && ref.Index < len(s.Results) {
		return ref.Index, s.Results[ref.Index], nil
	}
	return -1, domain.Account{}, fmt.Errorf("account index %d out of range: %w", ref.Index, domain.ErrStaleReference)
}
