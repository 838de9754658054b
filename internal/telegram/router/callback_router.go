package router

import (
	"time"

	"log/slog"

	tg "github.com/clic-epfl/clicbot/internal/telegram"
	"github.com/clic-epfl/clicbot/internal/telegram/callbacks"
	"github.com/clic-epfl/clicbot/internal/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns a handler that routes callbacks through the registry.
// Unknown callback keys are acknowledged and dropped.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			logHandlerSummary(c, name, start, "skip", nil,
				append(extras, slog.String("reason", "not_found"))...)
			return nil
		}

		return handleWithSummary(c, name, start, func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
