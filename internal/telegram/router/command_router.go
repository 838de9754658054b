package router

import (
	"strings"

	"log/slog"

	"github.com/clic-epfl/clicbot/internal/logger"
	tg "github.com/clic-epfl/clicbot/internal/telegram"
	"github.com/clic-epfl/clicbot/internal/telegram/commands"
	"github.com/clic-epfl/clicbot/internal/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	Access middleware.AccessChecker
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Access checks are applied innermost so refusals are still logged with the
// full request context.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		switch def.Tier {
		case commands.AdminOnly:
			h = middleware.AdminOnlyMiddleware(opts.Access)(h)
		case commands.AuthorizedChat:
			h = middleware.AuthorizedChatMiddleware(opts.Access, def.ShortName)(h)
		}
		h = middleware.LoggerMiddleware(h)
		h = middleware.RecoverMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
		// Aliases share the canonical command's wrapped handler, access
		// checks included.
		for _, alias := range def.Aliases {
			if !strings.HasPrefix(alias, "/") {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{
				Endpoint: alias,
				Handler:  h,
			})
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
