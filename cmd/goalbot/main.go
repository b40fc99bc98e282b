package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/goalbot/config"
	"github.com/alejandrodnm/goalbot/internal/adapters/notify"
	"github.com/alejandrodnm/goalbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/goalbot/internal/adapters/sportsfeed"
	"github.com/alejandrodnm/goalbot/internal/adapters/storage"
	"github.com/alejandrodnm/goalbot/internal/application/engine"
	"github.com/alejandrodnm/goalbot/internal/application/executor"
	"github.com/alejandrodnm/goalbot/internal/application/ledger"
	"github.com/alejandrodnm/goalbot/internal/application/registry"
	"github.com/alejandrodnm/goalbot/internal/application/tracker"
	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one tick and exit")
	paper := flag.Bool("paper", false, "simulate order execution (no real money)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the positions table on each cycle summary")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("goalbot starting",
		"config", *configPath,
		"tick", cfg.BaseTick(),
		"paper", *paper,
		"once", *once,
	)

	feed := sportsfeed.NewClient(cfg.API.SportsBase, os.Getenv("SPORTS_API_KEY"))
	market := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	var exec ports.TradeExecutor = market
	if *paper {
		exec = executor.NewPaper(market)
	}

	var store ports.SnapshotStore
	if !*once {
		sqlite, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer sqlite.Close()
		store = sqlite
	}

	notifiers := []ports.Notifier{notify.NewConsole(*table)}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			slog.Error("failed to init telegram notifier", "err", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, tg)
		slog.Info("telegram notifier enabled", "chat_id", cfg.Notify.TelegramChatID)
	}

	reg := registry.New()
	led := ledger.New(exitTiers(cfg), cfg.Trading.StopLossPct)
	det := tracker.NewDetector(reg)
	pol := tracker.NewPoller(reg, feed, sportsfeed.NewTeamNameMatcher(), det)
	eng := engine.New(engine.Config{
		OrderSizeUSD:        cfg.Trading.OrderSizeUSD,
		GoalCooldown:        cfg.GoalCooldown(),
		PartialProfitPct:    cfg.Trading.PartialProfitPct,
		PartialSellFraction: cfg.Trading.PartialSellFraction,
		ReAddFactor:         cfg.Trading.ReAddFactor,
	}, led)
	coord := executor.New(exec, cfg.ExecTimeout(), cfg.Trading.MaxConcurrentOrders)

	t := tracker.New(tracker.Config{
		BaseTick:            cfg.BaseTick(),
		DiscoveryInterval:   cfg.DiscoveryInterval(),
		FinishedCooldown:    cfg.FinishedCooldown(),
		DiscoveryAlertAfter: cfg.DiscoveryAlert(),
		SnapshotFlushPeriod: cfg.SnapshotFlushPeriod(),
		RunOnce:             *once,
	}, reg, pol, eng, led, coord, feed, market, market, store, notifiers...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := t.Run(ctx); err != nil {
		slog.Error("tracker exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("goalbot stopped cleanly")
}

// exitTiers maps the YAML tiers to the domain model.
func exitTiers(cfg *config.Config) []domain.ExitTier {
	tiers := make([]domain.ExitTier, 0, len(cfg.Trading.ExitTiers))
	for _, t := range cfg.Trading.ExitTiers {
		tiers = append(tiers, domain.ExitTier{
			ProfitPct:    t.ProfitPct,
			SellFraction: t.SellFraction,
		})
	}
	return tiers
}

func setupLogger(cfg config.Log) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
