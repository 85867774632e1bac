package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	tu "github.com/mymmrac/telego/telegoutil"
)

// sendMessage delivers plain text to a chat, waiting out a single rate-limit
// hit the way the Telegram API asks to.
func (b *Bot) sendMessage(chatID int64, text string) {
	message := tu.Message(tu.ID(chatID), text)

	_, err := b.api.SendMessage(message)
	if err != nil {
		if retryAfter := parseRetryAfter(err); retryAfter > 0 {
			slog.Info("bot: Rate limit hit, waiting", "seconds", retryAfter)
			time.Sleep(time.Duration(retryAfter) * time.Second)
			_, err = b.api.SendMessage(message)
		}
		if err != nil {
			slog.Error("bot: Failed to send message", "error", err, "chat_id", chatID, "text_length", len(text))
		}
	}
}

func (b *Bot) sendMessagef(chatID int64, format string, args ...any) {
	b.sendMessage(chatID, fmt.Sprintf(format, args...))
}

// parseRetryAfter extracts the wait from a "Too Many Requests" api error.
// Format: `telego: sendMessage: api: 429 "Too Many Requests: retry after 5", migrate to chat ID: 0, retry after: 5`
func parseRetryAfter(err error) int {
	if !strings.Contains(err.Error(), "Too Many Requests") {
		return 0
	}
	parts := strings.Split(err.Error(), "retry after: ")
	if len(parts) != 2 {
		return 0
	}
	var retryAfter int
	_, _ = fmt.Sscanf(parts[1], "%d", &retryAfter)
	return retryAfter
}

// answerCallback acknowledges a button press, optionally with a toast.
func (b *Bot) answerCallback(queryID, text string) {
	params := tu.CallbackQuery(queryID)
	if text != "" {
		params = params.WithText(text)
	}
	if err := b.api.AnswerCallbackQuery(params); err != nil {
		slog.Error("bot: Failed to answer callback query", "error", err, "query_id", queryID)
	}
}

// callbackParts splits a callback payload on ":" into its action and
// arguments.
func callbackParts(data string) (action string, args []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

// formatFilmTitle renders "Title (Year)" with the year left off when unknown.
func formatFilmTitle(title string, year *int) string {
	if year != nil {
		return fmt.Sprintf("%s (%d)", title, *year)
	}
	return title
}

// formatListLine renders one numbered watchlist row with a watched marker.
func formatListLine(position int, entry storage.GroupFilm) string {
	marker := ""
	if entry.Watched != nil {
		marker = " ✅"
	}
	return fmt.Sprintf("%d. %s%s", position, formatFilmTitle(entry.Film.Title, entry.Film.Year), marker)
}
