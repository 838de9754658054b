// Package bot assembles the application: storage, directory client, dialogue
// engine, command registry and routes.
package bot

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clic-epfl/clicbot/internal/config"
	"github.com/clic-epfl/clicbot/internal/dialogue"
	"github.com/clic-epfl/clicbot/internal/directory"
	"github.com/clic-epfl/clicbot/internal/storage"
	tg "github.com/clic-epfl/clicbot/internal/telegram"
	"github.com/clic-epfl/clicbot/internal/telegram/middleware"
	"github.com/clic-epfl/clicbot/internal/telegram/router"
	tgsender "github.com/clic-epfl/clicbot/internal/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// App owns the long-lived application components.
type App struct {
	cfg    *config.Config
	access *storage.AccessStore
	cards  *storage.CardStore
	roster *directory.Client
	engine *dialogue.Engine
	reg    *tg.Registry
}

// New wires the application together. The dialogue engine is created lazily
// in Run once the bot transport exists.
func New(cfg *config.Config, db *sqlx.DB) *App {
	a := &App{
		cfg:    cfg,
		access: storage.NewAccessStore(db),
		cards:  storage.NewCardStore(db),
		roster: directory.New(cfg.Directory, nil),
		reg:    tg.NewRegistry(),
	}
	a.registerCommands()
	return a
}

// Run starts the Telegram bot and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return tg.Run(ctx, tg.RunOptions{
		Config:   a.cfg,
		Registry: a.reg,
		DispatcherOptions: tgsender.Options{
			QueueSize: 256,
			Workers:   4,
		},
		Middlewares: []tg.Middleware{
			{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval: time.Duration(a.cfg.RateLimit.IntervalMS) * time.Millisecond,
					Exclude:  map[string]struct{}{"callback": {}},
				}),
			},
		},
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.engine = dialogue.NewEngine(tg.NewBotTransport(rt.Bot), a.roster, a.cards)
			a.registerCallbacks()
			a.bindRoutes(rt.Bot)
			return nil
		},
	})
}

// bindRoutes attaches command, callback and text routes to the running bot.
// Routes depend on the engine and are bound after OnStart builds it.
func (a *App) bindRoutes(bot *tele.Bot) {
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{Access: a.access})
	routes = append(routes, router.CallbackRoute(a.reg))
	routes = append(routes, router.TextRoutes(a.engine)...)
	for _, r := range routes {
		bot.Handle(r.Endpoint, r.Handler)
	}
}

func (a *App) registerCallbacks() {
	_ = a.reg.RegisterCallback(dialogue.ActionQuizTarget, a.onQuizTarget)
	_ = a.reg.RegisterCallback(dialogue.ActionCard, a.onCardAction)
}
