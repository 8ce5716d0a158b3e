// Package bot adapts the admin controller to Telegram.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	tghelpers "github.com/m3rciful/dirbot/core/telegram/helpers"
	"github.com/m3rciful/dirbot/core/telegram/keyboard"
	"github.com/m3rciful/dirbot/core/telegram/middleware"
	"github.com/m3rciful/dirbot/internal/admin"
	"github.com/m3rciful/dirbot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// API is the part of *tele.Bot the transport uses.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// ErrNotAttached is returned before Attach has been called.
var ErrNotAttached = errors.New("bot: transport not attached")

type apiHolder struct{ API }

// Transport renders admin replies as MarkdownV2 messages with inline keyboards.
type Transport struct {
	api atomic.Pointer[apiHolder]
}

var _ admin.Transport = (*Transport)(nil)

// NewTransport returns a Transport that fails until Attach is called.
func NewTransport() *Transport {
	return &Transport{}
}

// Attach sets the API used for all calls. The bot is only available
// once it is built, after the routes that use the transport.
func (t *Transport) Attach(api API) {
	if api == nil {
		t.api.Store(nil)
		return
	}
	t.api.Store(&apiHolder{API: api})
}

func (t *Transport) client() (API, error) {
	h := t.api.Load()
	if h == nil {
		return nil, ErrNotAttached
	}
	return h.API, nil
}

// RenderText sends a new message to the conversation.
func (t *Transport) RenderText(ctx context.Context, key session.Key, text string, layout admin.Layout) (admin.MessageRef, error) {
	api, err := t.client()
	if err != nil {
		return admin.MessageRef{}, err
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdownV2}
	if len(layout) > 0 {
		opts.ReplyMarkup = markup(layout)
	}
	msg, err := api.Send(tele.ChatID(key), text, opts)
	if err != nil {
		return admin.MessageRef{}, err
	}
	middleware.Count(ctx, opts.ReplyMarkup != nil)
	ref := admin.MessageRef{ChatID: int64(key)}
	if msg != nil {
		ref.MessageID = msg.ID
		if msg.Chat != nil {
			ref.ChatID = msg.Chat.ID
		}
	}
	return ref, nil
}

// UpdateText replaces text and keyboard of ref. An empty layout removes the keyboard.
func (t *Transport) UpdateText(ctx context.Context, key session.Key, ref admin.MessageRef, text string, layout admin.Layout) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	rm := markup(layout)
	_, err = api.Edit(stored(key, ref), text, &tele.SendOptions{
		ParseMode:   tele.ModeMarkdownV2,
		ReplyMarkup: rm,
	})
	if err = ignoreNotModified(err); err == nil {
		middleware.Count(ctx, len(layout) > 0)
	}
	return err
}

// UpdateButtons replaces only the keyboard of ref.
func (t *Transport) UpdateButtons(ctx context.Context, key session.Key, ref admin.MessageRef, layout admin.Layout) error {
	api, err := t.client()
	if err != nil {
		return err
	}
	_, err = api.EditReplyMarkup(stored(key, ref), markup(layout))
	return ignoreNotModified(err)
}

// Acknowledge answers the callback query identified by token. The answer
// goes through the shared dispatcher.
func (t *Transport) Acknowledge(ctx context.Context, token, notice string) error {
	if token == "" {
		return nil
	}
	api, err := t.client()
	if err != nil {
		return err
	}
	cb := &tele.Callback{ID: token}
	return tghelpers.Enqueue(ctx, "callback.answer", "answerCallbackQuery", func() error {
		if notice == "" {
			return api.Respond(cb)
		}
		return api.Respond(cb, &tele.CallbackResponse{Text: notice})
	})
}

func stored(key session.Key, ref admin.MessageRef) tele.StoredMessage {
	chatID := ref.ChatID
	if chatID == 0 {
		chatID = int64(key)
	}
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: chatID}
}

func markup(layout admin.Layout) *tele.ReplyMarkup {
	if len(layout) == 0 {
		return keyboard.Empty()
	}
	rows := make([][]keyboard.InlineBtn, 0, len(layout))
	for _, row := range layout {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{Text: b.Text, Unique: b.Key, Data: b.Payload})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// Telegram rejects edits that change nothing; for us that is success.
func ignoreNotModified(err error) error {
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}
