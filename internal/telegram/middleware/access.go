package middleware

import (
	"context"
	"strconv"

	"log/slog"

	"github.com/clic-epfl/clicbot/internal/logger"
	tghelpers "github.com/clic-epfl/clicbot/internal/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AccessChecker answers the two questions access control asks. Both checks
// fail closed: on storage trouble the answer is no.
type AccessChecker interface {
	IsAdmin(ctx context.Context, identity string) bool
	IsAuthorized(ctx context.Context, chatID int64, command string) bool
}

const rejectUnauthorized = "Ce chat n'est pas autorisé à utiliser cette commande."

// SenderIdentity returns the sender's Telegram user ID as the string admins
// are keyed by.
func SenderIdentity(c tele.Context) string {
	user := c.Sender()
	if user == nil {
		return ""
	}
	return strconv.FormatInt(user.ID, 10)
}

// AdminOnlyMiddleware lets only registered admins through. Non-admins are
// refused silently; the refusal is still recorded in the audit log.
func AdminOnlyMiddleware(store AccessChecker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			identity := SenderIdentity(c)
			if identity == "" || !store.IsAdmin(ctx, identity) {
				logger.Warn(ctx, "tg.access", "admin.refused",
					slog.String("status", "deny"),
					slog.String("identity", identity),
				)
				return nil
			}
			return next(c)
		}
	}
}

// AuthorizedChatMiddleware lets a command through only in chats that hold a
// grant for it. Unauthorized chats get a single rejection message.
func AuthorizedChatMiddleware(store AccessChecker, shortName string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			chat := c.Chat()
			if chat == nil || !store.IsAuthorized(ctx, chatIDOf(chat), shortName) {
				logger.Warn(ctx, "tg.access", "chat.refused",
					slog.String("status", "deny"),
					slog.String("command", shortName),
				)
				return tghelpers.SendText(c, rejectUnauthorized)
			}
			return next(c)
		}
	}
}

func chatIDOf(chat *tele.Chat) int64 {
	if chat == nil {
		return 0
	}
	return chat.ID
}
