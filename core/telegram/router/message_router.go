package router

import (
	"strings"

	tg "github.com/m3rciful/dirbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextRoute handles plain text. Text naming a registered command (for
// example "/menu@SomeBot") runs that command; anything else goes to the
// registry's text fallback.
func TextRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		if reg == nil {
			return nil
		}
		if name, ok := commandWord(c.Text()); ok {
			if key, cmd, found := reg.LookupCommand(name); found && cmd.Handler != nil {
				return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error {
					return cmd.Handler(c)
				})
			}
		}
		fb := reg.TextFallback()
		if fb == nil {
			logHandlerSummaryNow(c, "text.unhandled")
			return nil
		}
		return handleWithSummary(c, "text", func() error { return fb(c) })
	}
	return tg.Route{Endpoint: tele.OnText, Handler: handler}
}

// commandWord extracts "/name" from "/name@bot args".
func commandWord(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word, _, _ := strings.Cut(text, " ")
	word, _, _ = strings.Cut(word, "@")
	return word, len(word) > 1
}

func logHandlerSummaryNow(c tele.Context, name string) {
	_ = handleWithSummary(c, name, func() error { return nil })
}
