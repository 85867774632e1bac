package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"

	"git.skobk.in/skobkin/telegram-watchlist-bot/bot"
	"git.skobk.in/skobkin/telegram-watchlist-bot/catalog"
	"git.skobk.in/skobkin/telegram-watchlist-bot/discovery"
	"git.skobk.in/skobkin/telegram-watchlist-bot/service"
	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
)

type config struct {
	botToken       string
	tmdbAPIKey     string
	tmdbLanguage   string
	databasePath   string
	prowlarrURL    string
	prowlarrAPIKey string
	minQuality     discovery.Quality
	filmsPerPage   int
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging (LevelInfo)")
	veryVerbose := flag.Bool("vv", false, "Enable very verbose logging (LevelDebug)")
	flag.Parse()

	setLogLevel(*verbose, *veryVerbose)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Warn("main: Failed to load .env file", "error", err)
	}

	cfg, ok := loadConfig()
	if !ok {
		os.Exit(1)
	}

	slog.Debug("main: Initializing storage", "db_path", cfg.databasePath)
	store, err := storage.New(cfg.databasePath)
	if err != nil {
		slog.Error("main: Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	api, err := telego.NewBot(cfg.botToken, telego.WithDiscardLogger())
	if err != nil {
		slog.Error("main: Failed to initialize Telegram api", "error", err)
		os.Exit(1)
	}

	tmdb := catalog.NewTMDB(cfg.tmdbAPIKey, cfg.tmdbLanguage)
	membership := service.NewMembership(store)
	watchlist := service.NewWatchlist(store, tmdb)

	var prowlarr *discovery.Prowlarr
	if cfg.prowlarrURL != "" && cfg.prowlarrAPIKey != "" {
		prowlarr = discovery.NewProwlarr(cfg.prowlarrURL, cfg.prowlarrAPIKey)
		slog.Info("main: Release search enabled", "url", cfg.prowlarrURL, "min_quality", cfg.minQuality)
	} else {
		slog.Info("main: Release search disabled, PROWLARR_URL/PROWLARR_API_KEY not set")
	}

	b := bot.New(api, store, membership, watchlist, prowlarr, bot.Options{
		FilmsPerPage: cfg.filmsPerPage,
		MinQuality:   cfg.minQuality,
	})

	slog.Info("main: Starting bot...")
	if err := b.Run(); err != nil {
		slog.Error("main: Bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (config, bool) {
	cfg := config{
		botToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		tmdbAPIKey:     os.Getenv("TMDB_API_KEY"),
		tmdbLanguage:   envOrDefault("TMDB_LANGUAGE", "en-US"),
		databasePath:   envOrDefault("DATABASE_PATH", "data.sqlite"),
		prowlarrURL:    os.Getenv("PROWLARR_URL"),
		prowlarrAPIKey: os.Getenv("PROWLARR_API_KEY"),
		minQuality:     discovery.ParseQuality(envOrDefault("RELEASE_MIN_QUALITY", "1080p")),
		filmsPerPage:   5,
	}

	if cfg.botToken == "" {
		slog.Error("main: TELEGRAM_BOT_TOKEN environment variable is required")
		return cfg, false
	}
	if cfg.tmdbAPIKey == "" {
		slog.Error("main: TMDB_API_KEY environment variable is required")
		return cfg, false
	}

	if raw := os.Getenv("FILMS_PER_PAGE"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage < 1 {
			slog.Error("main: FILMS_PER_PAGE must be a positive number", "value", raw)
			return cfg, false
		}
		cfg.filmsPerPage = perPage
	}

	return cfg, true
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// setLogLevel configures the logging level based on the provided flags
func setLogLevel(verbose, veryVerbose bool) {
	logLevel := slog.LevelWarn // Default level
	if veryVerbose {
		logLevel = slog.LevelDebug
	} else if verbose {
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
