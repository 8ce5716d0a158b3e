package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/dirbot/core/telegram"
	"github.com/m3rciful/dirbot/core/telegram/commands"
)

// fakeContext implements the tele.Context methods the routers touch.
type fakeContext struct {
	tele.Context
	update    tele.Update
	store     map[string]any
	responded int
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: 42, Type: tele.ChatPrivate} }
func (f *fakeContext) Sender() *tele.User { return &tele.User{ID: 7, Username: "alice"} }
func (f *fakeContext) Get(key string) any { return f.store[key] }
func (f *fakeContext) Set(key string, v any) {
	f.store[key] = v
}
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Text() string {
	if f.update.Message == nil {
		return ""
	}
	return f.update.Message.Text
}
func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded++
	return nil
}

func textUpdate(text string) tele.Update {
	return tele.Update{ID: 1, Message: &tele.Message{Text: text}}
}

func callbackUpdate(data string) tele.Update {
	return tele.Update{ID: 2, Callback: &tele.Callback{ID: "cb1", Data: data}}
}

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var gotKey string
	require.NoError(t, reg.RegisterCallback("sel", func(c tele.Context) error {
		gotKey = "sel"
		return nil
	}))

	route := CallbackRoute(reg)
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	c := newFakeContext(callbackUpdate("\fsel|#2"))
	require.NoError(t, route.Handler(c))
	assert.Equal(t, "sel", gotKey)
	assert.Zero(t, c.responded, "handlers answer callbacks themselves")
}

func TestCallbackRouteFallsBackForUnknownKeys(t *testing.T) {
	reg := tg.NewRegistry()
	var fallback int
	reg.SetCallbackNotFound(func(tele.Context) error {
		fallback++
		return nil
	})

	c := newFakeContext(callbackUpdate("\fgone|x"))
	require.NoError(t, CallbackRoute(reg).Handler(c))
	assert.Equal(t, 1, fallback)
}

func TestTextRouteRunsCommandsAndFallback(t *testing.T) {
	reg := tg.NewRegistry()
	var calls []string
	require.NoError(t, reg.RegisterCommand("/menu", commands.Command{
		Description: "Open the menu",
		Handler: func(tele.Context) error {
			calls = append(calls, "menu")
			return nil
		},
	}))
	reg.SetTextFallback(func(c tele.Context) error {
		calls = append(calls, "text:"+c.Text())
		return nil
	})

	route := TextRoute(reg)
	require.NoError(t, route.Handler(newFakeContext(textUpdate("/menu@DirBot"))))
	require.NoError(t, route.Handler(newFakeContext(textUpdate("alice"))))
	require.NoError(t, route.Handler(newFakeContext(textUpdate("/unknown"))))
	assert.Equal(t, []string{"menu", "text:alice", "text:/unknown"}, calls)
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{
		Description: "Start",
		Aliases:     []string{"begin"},
		Handler:     func(tele.Context) error { return nil },
	}))
	routes := CommandRoutes(reg)
	require.Len(t, routes, 2)
	assert.Equal(t, "/start", routes[0].Endpoint)
	assert.Equal(t, "/begin", routes[1].Endpoint)
}

type codedErr struct{}

func (codedErr) Error() string { return "remote said no" }
func (codedErr) Code() string  { return "M_forbidden" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "M_FORBIDDEN", deriveErrorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}

func TestCommandWord(t *testing.T) {
	w, ok := commandWord("/menu@DirBot extra")
	assert.True(t, ok)
	assert.Equal(t, "/menu", w)

	_, ok = commandWord("menu")
	assert.False(t, ok)
	_, ok = commandWord("/")
	assert.False(t, ok)
}
