package bot

import (
	"strings"

	"github.com/m3rciful/dirbot/core/telegram/callbacks"
	"github.com/m3rciful/dirbot/internal/admin"
	"github.com/m3rciful/dirbot/internal/domain"
	"github.com/m3rciful/dirbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// envelope wraps action with the actor and conversation of c.
// Conversations are keyed by chat.
func envelope(c tele.Context, action admin.Action) admin.Envelope {
	env := admin.Envelope{Action: action}
	if u := c.Sender(); u != nil {
		env.Actor = domain.Actor{ID: u.ID, Handle: u.Username}
	}
	if chat := c.Chat(); chat != nil {
		env.Key = session.Key(chat.ID)
	} else {
		env.Key = session.Key(env.Actor.ID)
	}
	if cb := c.Callback(); cb != nil && cb.Message != nil {
		env.Message = admin.MessageRef{MessageID: cb.Message.ID}
		if cb.Message.Chat != nil {
			env.Message.ChatID = cb.Message.Chat.ID
		}
	}
	return env
}

func commandAction(c tele.Context) admin.Command {
	name := ""
	if msg := c.Message(); msg != nil {
		word, _, _ := strings.Cut(strings.TrimSpace(msg.Text), " ")
		name, _, _ = strings.Cut(word, "@")
	}
	return admin.Command{Name: name, Args: c.Args()}
}

func buttonAction(c tele.Context) admin.Button {
	cb := c.Callback()
	key, payload := callbacks.Parse(cb)
	b := admin.Button{Key: key, Payload: payload}
	if cb != nil {
		b.Token = cb.ID
	}
	return b
}

// limitedAction classifies an update that never reached the router.
func limitedAction(c tele.Context) admin.Action {
	if c.Callback() != nil {
		return buttonAction(c)
	}
	if strings.HasPrefix(strings.TrimSpace(c.Text()), "/") {
		return commandAction(c)
	}
	return admin.FreeText{Text: c.Text()}
}
