package bot

import (
	"fmt"

	"git.skobk.in/skobkin/telegram-watchlist-bot/catalog"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	t "github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Telegram caps callback payloads at 64 bytes; filters that do not fit are
// dropped from pagination callbacks.
const maxCallbackDataLen = 64

// searchResultsKeyboard offers one button per catalog match.
func searchResultsKeyboard(results []catalog.Result) *t.InlineKeyboardMarkup {
	rows := make([][]t.InlineKeyboardButton, 0, len(results))
	for _, result := range results {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(formatFilmTitle(result.Title, result.Year)).
				WithCallbackData(fmt.Sprintf("add:%s:%s", result.MediaType, result.ExternalID)),
		))
	}
	return tu.InlineKeyboard(rows...)
}

// listKeyboard builds numbered detail buttons plus a prev/next row when the
// matching set does not fit one page.
func listKeyboard(entries []storage.GroupFilm, total int64, offset, limit int, search string, watchedOnly bool) *t.InlineKeyboardMarkup {
	prefix := "pg"
	if watchedOnly {
		prefix = "wpg"
	}

	var rows [][]t.InlineKeyboardButton

	detailRow := make([]t.InlineKeyboardButton, 0, len(entries))
	for i, entry := range entries {
		detailRow = append(detailRow, tu.InlineKeyboardButton(fmt.Sprintf("%d", offset+i+1)).
			WithCallbackData(fmt.Sprintf("gf:%d", entry.ID)))
	}
	if len(detailRow) > 0 {
		rows = append(rows, detailRow)
	}

	var navRow []t.InlineKeyboardButton
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		navRow = append(navRow, tu.InlineKeyboardButton("⬅ Prev").
			WithCallbackData(pageCallbackData(prefix, prev, search)))
	}
	if int64(offset+limit) < total {
		navRow = append(navRow, tu.InlineKeyboardButton("Next ➡").
			WithCallbackData(pageCallbackData(prefix, offset+limit, search)))
	}
	if len(navRow) > 0 {
		rows = append(rows, navRow)
	}

	if len(rows) == 0 {
		return nil
	}
	return tu.InlineKeyboard(rows...)
}

func pageCallbackData(prefix string, offset int, search string) string {
	data := fmt.Sprintf("%s:%d", prefix, offset)
	if search != "" {
		withSearch := data + ":" + search
		if len(withSearch) <= maxCallbackDataLen {
			return withSearch
		}
	}
	return data
}

// detailKeyboard offers actions on one watchlist entry. The release-search
// button only shows up when discovery is configured and the entry is not
// watched yet.
func detailKeyboard(entry *storage.GroupFilm, withReleases bool) *t.InlineKeyboardMarkup {
	var rows [][]t.InlineKeyboardButton

	if entry.Watched == nil {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Mark watched").
				WithCallbackData(fmt.Sprintf("w:%d", entry.ID)),
		))
	}
	if withReleases {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("\U0001f50d Find releases").
				WithCallbackData(fmt.Sprintf("tr:%d", entry.ID)),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("⬅ Back to list").WithCallbackData("pg:0"),
	))

	return tu.InlineKeyboard(rows...)
}

// releasesKeyboard offers one grab button per found release, keyed by the
// persisted query token plus the release's index in it.
func releasesKeyboard(token string, count int) *t.InlineKeyboardMarkup {
	var rows [][]t.InlineKeyboardButton
	var row []t.InlineKeyboardButton
	for i := 0; i < count; i++ {
		row = append(row, tu.InlineKeyboardButton(fmt.Sprintf("⬇ #%d", i+1)).
			WithCallbackData(fmt.Sprintf("rl:%s:%d", token, i)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tu.InlineKeyboard(rows...)
}
