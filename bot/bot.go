package bot

import (
	"errors"
	"log/slog"
	"sync"

	"git.skobk.in/skobkin/telegram-watchlist-bot/discovery"
	"git.skobk.in/skobkin/telegram-watchlist-bot/service"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
)

var (
	ErrGetMe          = errors.New("cannot retrieve api user")
	ErrUpdatesChannel = errors.New("cannot get updates channel")
	ErrHandlerInit    = errors.New("cannot initialize handler")
)

const contextUserKey = "user"

// Options carries the per-deployment knobs the handlers need.
type Options struct {
	FilmsPerPage int
	MinQuality   discovery.Quality
}

type Bot struct {
	api        *telego.Bot
	storage    *storage.Storage
	membership *service.Membership
	watchlist  *service.Watchlist
	discovery  *discovery.Prowlarr // nil when release search is not configured
	notifier   *Notifier
	opts       Options

	// One pending transition per chat: "waiting for a group name" after a
	// bare /newgroup.
	pendingMu       sync.Mutex
	pendingNewGroup map[int64]bool
}

func New(api *telego.Bot, store *storage.Storage, membership *service.Membership, watchlist *service.Watchlist, prowlarr *discovery.Prowlarr, opts Options) *Bot {
	if opts.FilmsPerPage <= 0 {
		opts.FilmsPerPage = 5
	}

	return &Bot{
		api:             api,
		storage:         store,
		membership:      membership,
		watchlist:       watchlist,
		discovery:       prowlarr,
		notifier:        NewNotifier(api),
		opts:            opts,
		pendingNewGroup: make(map[int64]bool),
	}
}

func (b *Bot) Run() error {
	botUser, err := b.api.GetMe()
	if err != nil {
		slog.Error("bot: Cannot retrieve api user", "error", err)
		return ErrGetMe
	}

	slog.Info("bot: Running as", "id", botUser.ID, "username", botUser.Username, "is_bot", botUser.IsBot)

	updates, err := b.api.UpdatesViaLongPolling(nil)
	if err != nil {
		slog.Error("bot: Cannot get update channel", "error", err)
		return ErrUpdatesChannel
	}

	bh, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		slog.Error("bot: Cannot initialize bot handler", "error", err)
		return ErrHandlerInit
	}

	defer bh.Stop()
	defer b.api.StopLongPolling()

	bh.Use(b.userFillMiddleware)

	bh.Handle(b.startHandler, th.CommandEqual("start"))
	bh.Handle(b.helpHandler, th.CommandEqual("help"))
	bh.Handle(b.newGroupHandler, th.CommandEqual("newgroup"))
	bh.Handle(b.listHandler, th.CommandEqual("list"))
	bh.Handle(b.watchedHandler, th.CommandEqual("watched"))
	bh.Handle(b.callbackHandler, th.AnyCallbackQueryWithMessage())
	bh.Handle(b.contactHandler, hasContact)
	bh.Handle(b.textHandler, hasText)
	bh.Handle(b.helpHandler, th.AnyMessage())

	bh.Start()

	return nil
}

// hasContact matches messages carrying a shared contact.
func hasContact(update telego.Update) bool {
	return update.Message != nil && update.Message.Contact != nil
}

// hasText matches plain text messages, commands excluded.
func hasText(update telego.Update) bool {
	if update.Message == nil || update.Message.Text == "" {
		return false
	}
	return update.Message.Text[0] != '/'
}

func (b *Bot) setPendingNewGroup(chatID int64, pending bool) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	if pending {
		b.pendingNewGroup[chatID] = true
	} else {
		delete(b.pendingNewGroup, chatID)
	}
}

func (b *Bot) isPendingNewGroup(chatID int64) bool {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	return b.pendingNewGroup[chatID]
}
