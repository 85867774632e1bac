package bot

import (
	"errors"
	"log/slog"
	"strings"

	"git.skobk.in/skobkin/telegram-watchlist-bot/service"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// textHandler consumes a pending group name when one is armed, otherwise
// treats the text as a catalog search.
func (b *Bot) textHandler(bot *telego.Bot, update telego.Update) {
	user := actingUser(update)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if b.isPendingNewGroup(chatID) {
		b.setPendingNewGroup(chatID, false)
		b.createGroup(chatID, user, text)
		return
	}

	b.searchFilms(update, user, text)
}

func (b *Bot) searchFilms(update telego.Update, user *storage.User, query string) {
	chatID := update.Message.Chat.ID

	group, err := b.membership.GroupForUser(user)
	if err != nil {
		slog.Error("bot: Failed to resolve group for search", "error", err, "user_id", user.ID)
		b.sendMessage(chatID, "Something went wrong. Please try again later.")
		return
	}
	if group == nil {
		b.sendMessage(chatID,
			"You are not in a group yet. Create one with /newgroup or ask an admin to add you.")
		return
	}

	slog.Info("bot: Film search", "chat_id", chatID, "query", query)

	results, err := b.watchlist.Search(update.Context(), query)
	if err != nil {
		slog.Warn("bot: Catalog search failed", "error", err, "query", query)
		b.sendMessage(chatID, "The film catalog is not answering right now. Please try again later.")
		return
	}
	if len(results) == 0 {
		b.sendMessagef(chatID, "Nothing found for «%s». Try a different title.", query)
		return
	}

	message := tu.Message(tu.ID(chatID), "Pick a film to add to the group list:")
	message.ReplyMarkup = searchResultsKeyboard(results)

	if _, err := b.api.SendMessage(message); err != nil {
		slog.Error("bot: Failed to send search results", "error", err, "chat_id", chatID)
	}
}

// addFilmCallback handles an "add:<media>:<external id>" button press.
func (b *Bot) addFilmCallback(update telego.Update, args []string) {
	query := update.CallbackQuery
	chatID := query.Message.GetChat().ID

	user := actingUser(update)
	if user == nil {
		b.answerCallback(query.ID, "")
		return
	}

	if len(args) != 2 {
		b.answerCallback(query.ID, "")
		return
	}
	mediaType, externalID := args[0], args[1]

	group, err := b.membership.GroupForUser(user)
	if err != nil || group == nil {
		b.answerCallback(query.ID, "You are not in a group anymore.")
		return
	}

	entry, err := b.watchlist.AddToGroup(update.Context(), group, externalID, mediaType, user)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateEntry):
			b.answerCallback(query.ID, "Already on the list.")
		case errors.Is(err, service.ErrFilmUnavailable):
			b.answerCallback(query.ID, "Could not load the film details.")
		default:
			slog.Error("bot: Failed to add film", "error", err,
				"group_id", group.ID, "external_id", externalID)
			b.answerCallback(query.ID, "Something went wrong, try again later.")
		}
		return
	}

	b.answerCallback(query.ID, "Added!")
	b.sendMessagef(chatID, "«%s» is on the «%s» watchlist now.",
		formatFilmTitle(entry.Film.Title, entry.Film.Year), group.Name)

	members, err := b.membership.GroupMembers(group)
	if err != nil {
		slog.Error("bot: Cannot load members for notification", "error", err, "group_id", group.ID)
		return
	}
	b.notifier.NotifyFilmAdded(members, &entry.Film, group.Name, user)
}
