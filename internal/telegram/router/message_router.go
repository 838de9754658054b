package router

import (
	"context"
	"time"

	"github.com/clic-epfl/clicbot/internal/dialogue"
	tg "github.com/clic-epfl/clicbot/internal/telegram"
	tghelpers "github.com/clic-epfl/clicbot/internal/telegram/helpers"
	"github.com/clic-epfl/clicbot/internal/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversations is the dialogue surface the text router feeds.
type Conversations interface {
	InProgress(convID int64) bool
	HandleText(ctx context.Context, convID int64, text string, msg dialogue.MessageRef) error
}

// TextRoutes builds the handler for free-text messages. Text is consumed by
// an in-progress dialogue when one exists; otherwise it is ignored.
func TextRoutes(conv Conversations) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		chat := c.Chat()
		if chat == nil {
			return nil
		}

		if conv != nil && conv.InProgress(chat.ID) {
			return handleWithSummary(c, "dialogue", start, func() error {
				ctx := tghelpers.BuildContext(c)
				return conv.HandleText(ctx, chat.ID, c.Text(), tg.MessageRefOf(c))
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
