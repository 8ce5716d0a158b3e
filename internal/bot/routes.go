package bot

import (
	"errors"

	tg "github.com/m3rciful/dirbot/core/telegram"
	"github.com/m3rciful/dirbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/dirbot/core/telegram/helpers"
	"github.com/m3rciful/dirbot/core/telegram/router"
	"github.com/m3rciful/dirbot/internal/admin"

	tele "gopkg.in/telebot.v4"
)

// Register binds the admin commands, buttons and free text on reg to h
// and returns the routes to install on the bot.
func Register(reg *tg.Registry, h admin.Handler) ([]tg.Route, error) {
	command := func(c tele.Context) error {
		return h.Handle(tghelpers.BuildContext(c), envelope(c, commandAction(c)))
	}
	button := func(c tele.Context) error {
		return h.Handle(tghelpers.BuildContext(c), envelope(c, buttonAction(c)))
	}
	text := func(c tele.Context) error {
		return h.Handle(tghelpers.BuildContext(c), envelope(c, admin.FreeText{Text: c.Text()}))
	}

	err := errors.Join(
		reg.RegisterCommand("/start", commands.Command{Handler: command, Description: "Open the main menu", Hidden: true}),
		reg.RegisterCommand("/menu", commands.Command{Handler: command, Description: "Open the main menu"}),
		reg.RegisterCommand("/cancel", commands.Command{Handler: command, Description: "Abort the current operation"}),
		reg.RegisterCallbacks(admin.ButtonKeys(), button),
	)
	if err != nil {
		return nil, err
	}
	// Unknown keys still reach the controller, which answers them as stale.
	reg.SetCallbackNotFound(button)
	reg.SetTextFallback(text)

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.CallbackRoute(reg), router.TextRoute(reg))
	return routes, nil
}

// OnRateLimited hands throttled updates to h, which sees the same actor
// and action a routed update would carry.
func OnRateLimited(h admin.Handler) tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.Handle(tghelpers.BuildContext(c), envelope(c, limitedAction(c)))
	}
}
