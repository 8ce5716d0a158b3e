package admin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/m3rciful/dirbot/core/telegram/format"
	"github.com/m3rciful/dirbot/internal/domain"
	"github.com/m3rciful/dirbot/internal/listing"
	"github.com/m3rciful/dirbot/internal/session"
)

// All texts are MarkdownV2.

const (
	maxTextLen     = 3800
	maxButtonLabel = 48
	timeLayout     = "2006-01-02 15:04 UTC"
)

// DeniedText is the fixed reply to unauthorized actors.
const DeniedText = "⛔ You are not allowed to use this bot\\."

type reply struct {
	text   string
	layout Layout
	// fresh forces a new message instead of editing the pressed one.
	fresh bool
}

func menuButton() []ButtonSpec {
	return []ButtonSpec{{Text: "🏠 Menu", Key: keyMenu}}
}

func menuReply(prefix string) reply {
	text := format.Bold("User directory") + "\n" + format.MDV2("Choose an action:")
	if prefix != "" {
		text = format.MDV2(prefix) + "\n\n" + text
	}
	return reply{
		text: text,
		layout: Layout{
			{{Text: "📋 List users", Key: keyList}},
			{{Text: "🔎 Search", Key: keySearch}},
			{{Text: "🚫 Deactivate", Key: keyDeactivate}},
		},
	}
}

func searchPromptReply(notice string) reply {
	text := format.MDV2("Send a search term (part of a user id or display name).")
	if notice != "" {
		text = format.MDV2(notice) + "\n" + text
	}
	return reply{text: text, layout: Layout{menuButton()}}
}

func listingReply(page domain.Page) reply {
	var b strings.Builder
	b.WriteString(format.Bold(fmt.Sprintf("Users (%d total)", page.Total)))
	b.WriteString("\n")
	if len(page.Accounts) == 0 {
		b.WriteString(format.MDV2("No users."))
	}
	for i, acc := range page.Accounts {
		line := "\n" + format.MDV2(fmt.Sprintf("%d. ", i+1)) + accountLine(acc)
		if b.Len()+len(line) > maxTextLen {
			b.WriteString("\n" + format.MDV2(fmt.Sprintf("… and %d more", len(page.Accounts)-i)))
			break
		}
		b.WriteString(line)
	}
	if rest := page.Total - len(page.Accounts); rest > 0 {
		b.WriteString("\n\n" + format.MDV2(fmt.Sprintf("Showing the first %d of %d.", len(page.Accounts), page.Total)))
	}
	return reply{text: b.String(), layout: Layout{menuButton()}}
}

func accountLine(acc domain.Account) string {
	line := format.Code(acc.ID)
	if acc.DisplayName != nil {
		line += " " + format.MDV2("· "+*acc.DisplayName)
	}
	var flags []string
	if acc.IsAdmin {
		flags = append(flags, "admin")
	}
	if acc.Deactivated {
		flags = append(flags, "deactivated")
	}
	if len(flags) > 0 {
		line += " " + format.MDV2("["+strings.Join(flags, ", ")+"]")
	}
	return line
}

func buttonLabel(acc domain.Account) string {
	label := acc.ID
	if acc.DisplayName != nil {
		label += " · " + *acc.DisplayName
	}
	r := []rune(label)
	if len(r) > maxButtonLabel {
		label = string(r[:maxButtonLabel-1]) + "…"
	}
	return label
}

// resultsReply renders the current page of the session result set.
func resultsReply(s session.Session, pageSize int, notice string) reply {
	w := listing.Paginate(s.Results, s.Page, pageSize)
	pages := listing.PageCount(len(s.Results), pageSize)

	var header string
	key := keySelect
	switch s.ResultKind {
	case session.KindDeactivation:
		header = format.Bold("Select an account to deactivate") + "\n" +
			format.MDV2(fmt.Sprintf("%d candidates, page %d/%d", len(s.Results), s.Page+1, pages))
	default:
		key = keyInspect
		header = format.Bold("Results for ") + format.Code(s.SearchTerm) + "\n" +
			format.MDV2(fmt.Sprintf("%d matches, page %d/%d", len(s.Results), s.Page+1, pages))
	}
	if notice != "" {
		header = format.MDV2(notice) + "\n\n" + header
	}

	layout := make(Layout, 0, len(w.Items)+2)
	base := s.Page * pageSize
	for i, acc := range w.Items {
		layout = append(layout, []ButtonSpec{refButton(buttonLabel(acc), key, acc, base+i)})
	}
	var nav []ButtonSpec
	if w.HasPrev {
		nav = append(nav, pageButton("◀️", s.ResultKind, -1))
	}
	if pages > 1 {
		nav = append(nav, ButtonSpec{Text: fmt.Sprintf("%d/%d", s.Page+1, pages), Key: keyNoop})
	}
	if w.HasNext {
		nav = append(nav, pageButton("▶️", s.ResultKind, 1))
	}
	if len(nav) > 0 {
		layout = append(layout, nav)
	}
	layout = append(layout, menuButton())
	return reply{text: header, layout: layout}
}

func confirmReply(acc domain.Account, index int) reply {
	text := format.Bold("Deactivate "+acc.Name()+"?") + "\n\n" + accountLine(acc) + "\n\n" +
		format.MDV2("The account will be logged out and can no longer sign in.")
	return reply{
		text: text,
		layout: Layout{
			{refButton("✅ Confirm", keyConfirm, acc, index), {Text: "↩️ Cancel", Key: keyCancel}},
		},
	}
}

func detailReply(acc domain.Account, index int) reply {
	var b strings.Builder
	b.WriteString(format.Bold("Account") + " " + format.Code(acc.ID) + "\n")
	fmt.Fprintf(&b, "\n%s %s", format.MDV2("Display name:"), format.MDV2(format.DerefString(acc.DisplayName, "-")))
	fmt.Fprintf(&b, "\n%s %s", format.MDV2("Type:"), format.MDV2(format.DerefString(acc.AccountType, "regular")))
	fmt.Fprintf(&b, "\n%s %s", format.MDV2("Admin:"), yesNo(acc.IsAdmin))
	fmt.Fprintf(&b, "\n%s %s", format.MDV2("Deactivated:"), yesNo(acc.Deactivated))
	fmt.Fprintf(&b, "\n%s %s", format.MDV2("Created:"), format.MDV2(format.DerefTime(acc.CreatedAt, timeLayout, "-")))
	fmt.Fprintf(&b, "\n%s %s", format.MDV2("Last seen:"), format.MDV2(format.DerefTime(acc.LastSeenAt, timeLayout, "-")))

	var layout Layout
	if listing.IsDeactivationCandidate(acc) {
		layout = append(layout, []ButtonSpec{refButton("🚫 Deactivate", keySelect, acc, index)})
	}
	layout = append(layout, menuButton())
	return reply{text: b.String(), layout: layout, fresh: true}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func noticeReply(text string) reply {
	return reply{text: format.MDV2(text), layout: Layout{menuButton()}}
}

// errorReply renders err with a recovery control. subject is the account
// id or search term the action was about; retry, if set, is offered first.
func errorReply(err error, subject string, retry *ButtonSpec) reply {
	var msg string
	switch {
	case errors.Is(err, domain.ErrDirectoryAuth):
		msg = "The directory rejected the admin credential."
	case errors.Is(err, domain.ErrNotFound):
		msg = "The account was not found."
	case errors.Is(err, domain.ErrInvalidInput):
		msg = "The input was empty or invalid."
	case errors.Is(err, domain.ErrStaleReference):
		msg = "This menu is out of date. Open the menu again."
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		msg = "The directory is unavailable right now."
	default:
		msg = "Something went wrong."
	}
	text := "⚠️ " + format.MDV2(msg)
	if subject != "" {
		text += "\n" + format.Code(subject)
	}
	if remote := domain.RemoteMessage(err); remote != "" {
		text += "\n" + format.MDV2("Details: "+remote)
	}
	var layout Layout
	if retry != nil {
		layout = append(layout, []ButtonSpec{*retry})
	}
	layout = append(layout, menuButton())
	return reply{text: text, layout: layout}
}
