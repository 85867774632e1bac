package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"git.skobk.in/skobkin/telegram-watchlist-bot/discovery"
	"git.skobk.in/skobkin/telegram-watchlist-bot/service"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// How long a persisted release search stays grabbable.
const releaseQueryTTL = 15 * time.Minute

const releaseSearchLimit = 5

func (b *Bot) listHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("bot: /list", "chat_id", update.Message.Chat.ID)
	b.showList(update, false)
}

func (b *Bot) watchedHandler(bot *telego.Bot, update telego.Update) {
	slog.Info("bot: /watched", "chat_id", update.Message.Chat.ID)
	b.showList(update, true)
}

func (b *Bot) showList(update telego.Update, watchedOnly bool) {
	user := actingUser(update)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID

	var search string
	if args := strings.SplitN(update.Message.Text, " ", 2); len(args) == 2 {
		search = strings.TrimSpace(args[1])
	}

	b.sendListPage(chatID, user, search, watchedOnly, 0, 0)
}

// sendListPage renders one watchlist page. With editMessageID set the page
// replaces an existing message instead of sending a new one.
func (b *Bot) sendListPage(chatID int64, user *storage.User, search string, watchedOnly bool, offset int, editMessageID int) {
	group, err := b.membership.GroupForUser(user)
	if err != nil {
		slog.Error("bot: Failed to resolve group for list", "error", err, "user_id", user.ID)
		b.sendMessage(chatID, "Something went wrong. Please try again later.")
		return
	}
	if group == nil {
		b.sendMessage(chatID, "You are not in a group yet. Create one with /newgroup.")
		return
	}

	limit := b.opts.FilmsPerPage
	entries, total, err := b.watchlist.ListForGroup(group, search, watchedOnly, limit, offset)
	if err != nil {
		slog.Error("bot: Failed to list group films", "error", err, "group_id", group.ID)
		b.sendMessage(chatID, "Something went wrong. Please try again later.")
		return
	}

	if total == 0 {
		switch {
		case watchedOnly:
			b.sendMessage(chatID, "Nothing watched yet.")
		case search != "":
			b.sendMessagef(chatID, "No films matching «%s» on the list.", search)
		default:
			b.sendMessage(chatID, "The watchlist is empty. Send me a film title to search the catalog.")
		}
		return
	}

	header := fmt.Sprintf("Watchlist of «%s»", group.Name)
	if watchedOnly {
		header = fmt.Sprintf("Watched in «%s»", group.Name)
	}
	if search != "" {
		header += fmt.Sprintf(", filter «%s»", search)
	}

	lines := make([]string, 0, len(entries)+2)
	lines = append(lines, fmt.Sprintf("%s — %d film(s):", header, total))
	for i, entry := range entries {
		lines = append(lines, formatListLine(offset+i+1, entry))
	}
	text := strings.Join(lines, "\n")

	keyboard := listKeyboard(entries, total, offset, limit, search, watchedOnly)

	if editMessageID != 0 {
		_, err = b.api.EditMessageText(&telego.EditMessageTextParams{
			ChatID:      tu.ID(chatID),
			MessageID:   editMessageID,
			Text:        text,
			ReplyMarkup: keyboard,
		})
		if err != nil {
			slog.Error("bot: Failed to edit list message", "error", err, "chat_id", chatID)
		}
		return
	}

	message := tu.Message(tu.ID(chatID), text)
	message.ReplyMarkup = keyboard
	if _, err := b.api.SendMessage(message); err != nil {
		slog.Error("bot: Failed to send list message", "error", err, "chat_id", chatID)
	}
}

// callbackHandler dispatches button presses by payload prefix.
func (b *Bot) callbackHandler(bot *telego.Bot, update telego.Update) {
	query := update.CallbackQuery
	action, args := callbackParts(query.Data)

	slog.Debug("bot: Callback received", "action", action, "chat_id", query.Message.GetChat().ID)

	switch action {
	case "add":
		b.addFilmCallback(update, args)
	case "pg":
		b.pageCallback(update, args, false)
	case "wpg":
		b.pageCallback(update, args, true)
	case "gf":
		b.detailCallback(update, args)
	case "w":
		b.markWatchedCallback(update, args)
	case "tr":
		b.findReleasesCallback(update, args)
	case "rl":
		b.grabReleaseCallback(update, args)
	default:
		b.answerCallback(query.ID, "")
	}
}

func (b *Bot) pageCallback(update telego.Update, args []string, watchedOnly bool) {
	query := update.CallbackQuery

	user := actingUser(update)
	if user == nil || len(args) < 1 {
		b.answerCallback(query.ID, "")
		return
	}

	offset, err := strconv.Atoi(args[0])
	if err != nil || offset < 0 {
		b.answerCallback(query.ID, "")
		return
	}

	var search string
	if len(args) > 1 {
		search = strings.Join(args[1:], ":")
	}

	b.answerCallback(query.ID, "")
	b.sendListPage(query.Message.GetChat().ID, user, search, watchedOnly, offset, query.Message.GetMessageID())
}

// detailCallback shows one entry as a card with its poster and actions.
func (b *Bot) detailCallback(update telego.Update, args []string) {
	query := update.CallbackQuery
	chatID := query.Message.GetChat().ID

	user := actingUser(update)
	entry := b.resolveEntry(update, args)
	if user == nil || entry == nil {
		return
	}

	b.answerCallback(query.ID, "")

	caption := formatFilmTitle(entry.Film.Title, entry.Film.Year)
	if entry.Film.TitleOriginal != "" && entry.Film.TitleOriginal != entry.Film.Title {
		caption += "\n" + entry.Film.TitleOriginal
	}
	if entry.Watched != nil {
		caption += "\n\n✅ Watched"
	}
	if entry.Film.Description != "" {
		caption += "\n\n" + entry.Film.Description
	}
	// Telegram caps photo captions at 1024 characters.
	if runes := []rune(caption); len(runes) > 1024 {
		caption = string(runes[:1021]) + "..."
	}

	keyboard := detailKeyboard(entry, b.discovery != nil)

	if entry.Film.PosterURL != "" {
		photo := tu.Photo(tu.ID(chatID), tu.FileFromURL(entry.Film.PosterURL))
		photo.Caption = caption
		photo.ReplyMarkup = keyboard
		if _, err := b.api.SendPhoto(photo); err == nil {
			return
		} else {
			slog.Warn("bot: Failed to send poster, falling back to text", "error", err, "chat_id", chatID)
		}
	}

	message := tu.Message(tu.ID(chatID), caption)
	message.ReplyMarkup = keyboard
	if _, err := b.api.SendMessage(message); err != nil {
		slog.Error("bot: Failed to send film detail", "error", err, "chat_id", chatID)
	}
}

func (b *Bot) markWatchedCallback(update telego.Update, args []string) {
	query := update.CallbackQuery
	chatID := query.Message.GetChat().ID

	user := actingUser(update)
	entry := b.resolveEntry(update, args)
	if user == nil || entry == nil {
		return
	}

	_, alreadyMarked, err := b.watchlist.MarkWatched(entry, user)
	if err != nil {
		slog.Error("bot: Failed to mark watched", "error", err, "group_film_id", entry.ID)
		b.answerCallback(query.ID, "Something went wrong, try again later.")
		return
	}

	if alreadyMarked {
		b.answerCallback(query.ID, "Was already marked as watched.")
		return
	}

	b.answerCallback(query.ID, "Marked as watched.")
	b.sendMessagef(chatID, "«%s» marked as watched.", entry.Film.Title)

	group, err := b.membership.GroupForUser(user)
	if err != nil || group == nil {
		return
	}
	members, err := b.membership.GroupMembers(group)
	if err != nil {
		slog.Error("bot: Cannot load members for notification", "error", err, "group_id", group.ID)
		return
	}
	b.notifier.NotifyFilmWatched(members, &entry.Film, group.Name, user)
}

// findReleasesCallback searches the aggregator for the entry and stores the
// result set under a fresh token so grab buttons can refer back to it.
func (b *Bot) findReleasesCallback(update telego.Update, args []string) {
	query := update.CallbackQuery
	chatID := query.Message.GetChat().ID

	user := actingUser(update)
	entry := b.resolveEntry(update, args)
	if user == nil || entry == nil {
		return
	}

	if b.discovery == nil {
		b.answerCallback(query.ID, "Release search is not configured.")
		return
	}

	b.answerCallback(query.ID, "Searching...")

	// Release names usually carry the original title.
	title := entry.Film.TitleOriginal
	if title == "" {
		title = entry.Film.Title
	}

	releases, err := b.discovery.SearchReleases(update.Context(), title, entry.Film.Year, b.opts.MinQuality, releaseSearchLimit)
	if err != nil {
		slog.Warn("bot: Release search failed", "error", err, "group_film_id", entry.ID)
		b.sendMessage(chatID, "The release aggregator is not answering right now. Please try again later.")
		return
	}
	if len(releases) == 0 {
		b.sendMessagef(chatID, "No releases found for «%s» at %s or better.",
			title, b.opts.MinQuality)
		return
	}

	encoded, err := json.Marshal(releases)
	if err != nil {
		slog.Error("bot: Cannot encode releases", "error", err)
		b.sendMessage(chatID, "Something went wrong. Please try again later.")
		return
	}

	token := uuid.NewString()
	if err := b.storage.SaveReleaseQuery(token, entry.ID, string(encoded), releaseQueryTTL); err != nil {
		slog.Error("bot: Cannot save release query", "error", err)
		b.sendMessage(chatID, "Something went wrong. Please try again later.")
		return
	}

	lines := make([]string, 0, len(releases)+1)
	lines = append(lines, fmt.Sprintf("Releases for «%s»:", title))
	for i, release := range releases {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s — %.1f GB, %d seeders",
			i+1, release.Quality, release.Title, release.SizeGB(), release.Seeders))
	}

	message := tu.Message(tu.ID(chatID), strings.Join(lines, "\n"))
	message.ReplyMarkup = releasesKeyboard(token, len(releases))
	if _, err := b.api.SendMessage(message); err != nil {
		slog.Error("bot: Failed to send releases", "error", err, "chat_id", chatID)
	}
}

// grabReleaseCallback pushes the chosen release to the download backend.
func (b *Bot) grabReleaseCallback(update telego.Update, args []string) {
	query := update.CallbackQuery
	chatID := query.Message.GetChat().ID

	if b.discovery == nil || len(args) != 2 {
		b.answerCallback(query.ID, "")
		return
	}

	token := args[0]
	index, err := strconv.Atoi(args[1])
	if err != nil || index < 0 {
		b.answerCallback(query.ID, "")
		return
	}

	stored, err := b.storage.FindReleaseQuery(token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.answerCallback(query.ID, "This search has expired, run it again.")
		} else {
			slog.Error("bot: Cannot load release query", "error", err, "token", token)
			b.answerCallback(query.ID, "Something went wrong, try again later.")
		}
		return
	}

	var releases []discovery.Release
	if err := json.Unmarshal([]byte(stored.Results), &releases); err != nil {
		slog.Error("bot: Cannot decode stored releases", "error", err, "token", token)
		b.answerCallback(query.ID, "Something went wrong, try again later.")
		return
	}
	if index >= len(releases) {
		b.answerCallback(query.ID, "")
		return
	}

	release := releases[index]
	if b.discovery.Push(update.Context(), release.GUID, release.IndexerID) {
		b.answerCallback(query.ID, "Sent to the downloader.")
		b.sendMessagef(chatID, "Grabbing: %s", release.Title)
	} else {
		b.answerCallback(query.ID, "The downloader did not accept it, try another release.")
	}
}

// resolveEntry parses a "<id>" callback argument and loads the entry scoped
// to the acting user's group. Answers the callback itself on failure.
func (b *Bot) resolveEntry(update telego.Update, args []string) *storage.GroupFilm {
	query := update.CallbackQuery

	user := actingUser(update)
	if user == nil || len(args) != 1 {
		b.answerCallback(query.ID, "")
		return nil
	}

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		b.answerCallback(query.ID, "")
		return nil
	}

	group, err := b.membership.GroupForUser(user)
	if err != nil || group == nil {
		b.answerCallback(query.ID, "You are not in a group anymore.")
		return nil
	}

	entry, err := b.watchlist.Entry(group, uint(id))
	if err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			b.answerCallback(query.ID, "This film is not on the list anymore.")
		} else {
			slog.Error("bot: Failed to load watchlist entry", "error", err, "group_film_id", id)
			b.answerCallback(query.ID, "Something went wrong, try again later.")
		}
		return nil
	}

	return entry
}
