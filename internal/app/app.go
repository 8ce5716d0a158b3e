// Package app assembles the directory bot from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/dirbot/core/config"
	"github.com/m3rciful/dirbot/core/logger"
	coretelegram "github.com/m3rciful/dirbot/core/telegram"
	"github.com/m3rciful/dirbot/internal/access"
	"github.com/m3rciful/dirbot/internal/admin"
	"github.com/m3rciful/dirbot/internal/bot"
	"github.com/m3rciful/dirbot/internal/directory"
	"github.com/m3rciful/dirbot/internal/session"
)

// App is the wired bot, ready to be handed to the Telegram runtime.
type App struct {
	cfg       *coreconfig.Config
	db        *sqlx.DB
	gate      *access.Gate
	transport *bot.Transport
	registry  *coretelegram.Registry
	routes    []coretelegram.Route
	limited   admin.Handler
}

// Options override collaborators. Zero values build the production ones.
type Options struct {
	// DB receives audit entries when not nil.
	DB        *sqlx.DB
	Directory directory.Directory
	Store     session.Store
}

// New wires the directory client, access gate, audit sinks and the
// admin controller onto a fresh command registry.
func New(ctx context.Context, cfg *coreconfig.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	dir := opts.Directory
	if dir == nil {
		dir = directory.Open(DirectoryConfig(cfg))
	}

	var sink access.Sink = access.LogSink{}
	if opts.DB != nil {
		sink = access.MultiSink{access.LogSink{}, access.NewPostgresSink(opts.DB)}
	}

	list := access.NewAllowList(cfg.Access.AllowIDs, cfg.Access.AllowHandles)
	ids, handles := list.Size()
	if list.Empty() {
		logger.Warn(ctx, "app", "access.empty",
			slog.String("decision", "deny"),
			slog.String("reason", "allow-list is empty, every user is refused"),
		)
	} else {
		logger.Info(ctx, "app", "access.loaded",
			slog.Int("ids", ids),
			slog.Int("handles", handles),
		)
	}

	// Audit writes go through the gate's queue so a slow database never
	// delays an answer.
	gate := access.NewGate(list, sink)
	transport := bot.NewTransport()
	deps := admin.Deps{
		Auth:      gate,
		Directory: dir,
		Transport: transport,
		Store:     opts.Store,
		Audit:     gate.Sink(),
		Config: admin.Config{
			PageSize:       cfg.Session.PageSize,
			ListLimit:      cfg.Directory.ListLimit,
			SearchLimit:    cfg.Directory.SearchSuperset,
			CandidateLimit: cfg.Directory.SearchSuperset,
		},
	}

	reg := coretelegram.NewRegistry()
	routes, err := bot.Register(reg, admin.New(deps))
	if err != nil {
		_ = gate.Close()
		return nil, fmt.Errorf("app: route registration failed: %w", err)
	}

	return &App{
		cfg:       cfg,
		db:        opts.DB,
		gate:      gate,
		transport: transport,
		registry:  reg,
		routes:    routes,
		limited:   admin.NewThrottled(deps),
	}, nil
}

// DirectoryConfig maps the directory section onto the client config.
func DirectoryConfig(cfg *coreconfig.Config) directory.Config {
	return directory.Config{
		BaseURL:        cfg.Directory.BaseURL,
		AdminToken:     cfg.Directory.AdminToken,
		Timeout:        time.Duration(cfg.Directory.TimeoutSeconds) * time.Second,
		SearchSuperset: cfg.Directory.SearchSuperset,
	}
}

// TelegramRunOptions returns the runtime options of the bot.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, bot.OnRateLimited(a.limited)),
		Routes:      a.routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.transport.Attach(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.transport.Attach(nil)
			return nil
		},
	}, nil
}

// Close writes pending audit entries and releases the audit database.
func (a *App) Close() error {
	err := a.gate.Close()
	if a.db != nil {
		err = errors.Join(err, a.db.Close())
	}
	return err
}
