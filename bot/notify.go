package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Notifier fans messages out to group members, best effort. One member's
// delivery failure never stops the rest; a blocked bot is reported back to
// the group admin so they know who is out of the loop.
type Notifier struct {
	api *telego.Bot
}

func NewNotifier(api *telego.Bot) *Notifier {
	return &Notifier{api: api}
}

// NotifyFilmAdded tells every member except the actor about a new list entry.
func (n *Notifier) NotifyFilmAdded(members []storage.GroupMember, film *storage.Film, groupName string, actor *storage.User) {
	text := fmt.Sprintf("\U0001f4fd New film in «%s»:\n%s\n\nAdded by %s",
		groupName, formatFilmTitle(film.Title, film.Year), actor.DisplayName())
	n.fanOut(members, actor, text)
}

// NotifyFilmWatched tells every member except the actor about a watched mark.
func (n *Notifier) NotifyFilmWatched(members []storage.GroupMember, film *storage.Film, groupName string, actor *storage.User) {
	text := fmt.Sprintf("✅ «%s» was watched in «%s».\n\nMarked by %s",
		formatFilmTitle(film.Title, film.Year), groupName, actor.DisplayName())
	n.fanOut(members, actor, text)
}

// NotifyMemberAdded greets a freshly added member in a direct message.
func (n *Notifier) NotifyMemberAdded(member *storage.User, groupName, adminName string) {
	text := fmt.Sprintf("\U0001f465 %s added you to the group «%s».\n\n"+
		"Use /list to see the watchlist, or send a film title to add one.",
		adminName, groupName)

	if err := n.send(member.TelegramID, text); err != nil {
		slog.Warn("bot: Cannot greet new member", "error", err, "telegram_id", member.TelegramID)
	}
}

// fanOut delivers sequentially with per-recipient error suppression.
func (n *Notifier) fanOut(members []storage.GroupMember, actor *storage.User, text string) {
	var adminID int64
	for _, member := range members {
		if member.Role == storage.RoleAdmin {
			adminID = member.User.TelegramID
			break
		}
	}

	for _, member := range members {
		if member.User.TelegramID == actor.TelegramID {
			continue
		}

		err := n.send(member.User.TelegramID, text)
		if err == nil {
			continue
		}

		if isBlockedErr(err) {
			slog.Warn("bot: Member has blocked the bot", "telegram_id", member.User.TelegramID)
			if adminID != 0 && adminID != actor.TelegramID {
				warning := fmt.Sprintf("⚠ %s has blocked the bot and will not get group notifications.",
					member.User.DisplayName())
				if warnErr := n.send(adminID, warning); warnErr != nil {
					slog.Error("bot: Failed to warn admin", "error", warnErr, "telegram_id", adminID)
				}
			}
			continue
		}

		slog.Error("bot: Failed to deliver notification", "error", err,
			"telegram_id", member.User.TelegramID)
	}
}

func (n *Notifier) send(telegramID int64, text string) error {
	_, err := n.api.SendMessage(tu.Message(tu.ID(telegramID), text))
	return err
}

// isBlockedErr recognizes the api error for a user who has blocked the bot
// or otherwise forbids messages.
func isBlockedErr(err error) bool {
	return strings.Contains(err.Error(), "Forbidden")
}
