package bot

import (
	"errors"
	"log/slog"
	"strings"

	"git.skobk.in/skobkin/telegram-watchlist-bot/service"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/mymmrac/telego"
)

const helpText = "I keep a shared watchlist for your group.\n\n" +
	"/newgroup <name> — create a group (you become its admin)\n" +
	"/list [filter] — show the group watchlist\n" +
	"/watched [filter] — show what the group has already watched\n" +
	"/help — this message\n\n" +
	"Send a film title to search the catalog and add a result to the list.\n" +
	"Admins add members by sharing their contact with me."

func (b *Bot) startHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("bot: /start", "chat_id", update.Message.Chat.ID)

	user := actingUser(update)
	if user == nil {
		return
	}

	b.sendMessagef(update.Message.Chat.ID, "Hi, %s!\n\n%s", user.DisplayName(), helpText)
}

func (b *Bot) helpHandler(bot *telego.Bot, update telego.Update) {
	if update.Message == nil {
		return
	}
	slog.Info("bot: /help", "chat_id", update.Message.Chat.ID)

	b.sendMessage(update.Message.Chat.ID, helpText)
}

// newGroupHandler creates a group right away when a name is given, otherwise
// arms the waiting-for-name state consumed by the next text message.
func (b *Bot) newGroupHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("bot: /newgroup", "chat_id", update.Message.Chat.ID)

	user := actingUser(update)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID

	args := strings.SplitN(update.Message.Text, " ", 2)
	if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
		b.setPendingNewGroup(chatID, true)
		b.sendMessage(chatID, "What should the group be called? Send me the name.")
		return
	}

	b.createGroup(chatID, user, args[1])
}

func (b *Bot) createGroup(chatID int64, user *storage.User, name string) {
	group, err := b.membership.CreateGroup(name, user)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyGroupName):
			b.sendMessage(chatID, "The group name cannot be empty. Try again.")
		case errors.Is(err, service.ErrGroupNameTooLong):
			b.sendMessage(chatID, "That name is too long, 255 characters at most. Try again.")
		case errors.Is(err, service.ErrAlreadyInGroup):
			b.sendMessage(chatID, "You already belong to a group, and one group per person is the rule here.")
		default:
			slog.Error("bot: Failed to create group", "error", err, "chat_id", chatID)
			b.sendMessage(chatID, "Something went wrong. Please try again later.")
		}
		return
	}

	b.sendMessagef(chatID,
		"Group «%s» created, you are its admin.\n\n"+
			"Share a contact with me to add a member, or send a film title to start the list.",
		group.Name)
}

// contactHandler adds the user behind a shared contact to the sender's group.
func (b *Bot) contactHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("bot: Contact received", "chat_id", update.Message.Chat.ID)

	user := actingUser(update)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID
	contact := update.Message.Contact

	if contact.UserID == 0 {
		b.sendMessage(chatID,
			"That contact has no Telegram account attached. "+
				"Ask the person to message me with /start first, then share their contact from their profile.")
		return
	}

	result, err := b.membership.AddMemberByContact(user, contact.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotInGroup):
			b.sendMessage(chatID, "You are not in a group yet. Create one with /newgroup first.")
		case errors.Is(err, service.ErrNotAdmin):
			b.sendMessage(chatID, "Only the group admin can add members.")
		case errors.Is(err, service.ErrUnknownUser):
			b.sendMessage(chatID,
				"This person has never talked to me. Ask them to press /start first, then share the contact again.")
		case errors.Is(err, service.ErrAlreadyMember):
			b.sendMessage(chatID, "This person is already in the group.")
		case errors.Is(err, service.ErrAlreadyInGroup):
			b.sendMessage(chatID, "This person already belongs to another group, and one group per person is the rule here.")
		default:
			slog.Error("bot: Failed to add member by contact", "error", err,
				"chat_id", chatID, "contact_user_id", contact.UserID)
			b.sendMessage(chatID, "Something went wrong. Please try again later.")
		}
		return
	}

	b.sendMessagef(chatID, "%s added to «%s».",
		result.NewMember.DisplayName(), result.Group.Name)

	b.notifier.NotifyMemberAdded(result.NewMember, result.Group.Name, user.DisplayName())
}
