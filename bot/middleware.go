package bot

import (
	"context"
	"log/slog"

	"git.skobk.in/skobkin/telegram-watchlist-bot/service"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegohandler"
	"github.com/mymmrac/telego/telegoutil"
)

// userFillMiddleware resolves the acting user (creating the row on first
// contact, refreshing name fields on later ones) and stores it in the update
// context for every handler downstream.
func (b *Bot) userFillMiddleware(bot *telego.Bot, update telego.Update, next telegohandler.Handler) {
	ctx := update.Context()

	var from *telego.User
	switch {
	case update.Message != nil && update.Message.From != nil:
		from = update.Message.From
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
	}

	if from != nil {
		user, err := b.membership.GetOrCreateUser(from.ID, service.UserInfo{
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		})
		if err != nil {
			slog.Error("bot: Cannot resolve acting user", "error", err, "telegram_id", from.ID)

			if update.Message != nil {
				_, sendErr := b.api.SendMessage(telegoutil.Message(
					telegoutil.ID(update.Message.Chat.ID),
					"Something went wrong. Please try again.",
				))
				if sendErr != nil {
					slog.Error("bot: Cannot send error message", "error", sendErr)
				}
			}

			return
		}

		ctx = context.WithValue(ctx, contextUserKey, user)
	}

	update = update.WithContext(ctx)
	next(bot, update)
}

// actingUser pulls the user the middleware stored in the update context.
func actingUser(update telego.Update) *storage.User {
	user, _ := update.Context().Value(contextUserKey).(*storage.User)
	return user
}
