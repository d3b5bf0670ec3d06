package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/oddsbot/config"
	"github.com/alejandrodnm/oddsbot/internal/adapters/kalshi"
	"github.com/alejandrodnm/oddsbot/internal/adapters/notify"
	"github.com/alejandrodnm/oddsbot/internal/adapters/odds"
	"github.com/alejandrodnm/oddsbot/internal/adapters/storage"
	"github.com/alejandrodnm/oddsbot/internal/detector"
	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/alejandrodnm/oddsbot/internal/engine"
	"github.com/alejandrodnm/oddsbot/internal/identity"
	"github.com/alejandrodnm/oddsbot/internal/ports"
	"github.com/alejandrodnm/oddsbot/internal/position"
	"github.com/alejandrodnm/oddsbot/internal/risk"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one cycle and exit")
	live := flag.Bool("live", false, "place real orders (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full comparison tables (default: compact 1-line)")
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
	if *live {
		cfg.Trading.Live = true
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("oddsbot starting",
		"config", *configPath,
		"interval", cfg.Interval(),
		"series", cfg.Series,
		"live", cfg.Trading.Live,
		"once", *once,
	)

	venue := kalshi.NewClient(cfg.API.KalshiBase)
	pemBytes, err := cfg.PrivateKeyPEM()
	if err != nil {
		slog.Error("failed to read private key", "err", err)
		os.Exit(1)
	}
	if cfg.API.KalshiKeyID != "" && len(pemBytes) > 0 {
		if err := venue.SetCredentials(cfg.API.KalshiKeyID, pemBytes); err != nil {
			slog.Error("failed to load Kalshi credentials", "err", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no Kalshi credentials: account reads will fail, dry run uses the configured balance")
	}

	var oddsSrc ports.OddsSource
	if cfg.API.OddsAPIKey != "" {
		oddsSrc = odds.NewClient(cfg.API.OddsBase, cfg.API.OddsAPIKey, cfg.Detector.RemoveVig)
	} else {
		slog.Warn("no ODDS_API_KEY: mispricing detection disabled")
	}

	journal, err := storage.NewSQLiteJournal(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	stats := storage.NewStatsFile(cfg.Storage.StatsPath)
	riskSvc := risk.NewService(stats, risk.Config{
		MaxPositions:     cfg.Risk.MaxPositions,
		MaxOrderNotional: cfg.Risk.MaxOrderNotional,
		MaxDailyTrades:   cfg.Risk.MaxDailyTrades,
		MaxDailyNotional: cfg.Risk.MaxDailyNotional,
		MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
		MinBalance:       cfg.Trading.MinBalance,
	})

	resolver := identity.NewResolver(identity.DefaultSports())
	det := detector.New(detector.Config{
		Threshold:        cfg.Detector.Threshold,
		MinEdgeAfterCost: cfg.Detector.MinEdgeAfterCost,
		FeeBuffer:        cfg.Detector.FeeBuffer,
		ExtremeLow:       cfg.Detector.ExtremeLow,
		ExtremeHigh:      cfg.Detector.ExtremeHigh,
	}, resolver)

	caps := make(map[domain.Strategy]float64, len(cfg.Trading.StrategyCaps))
	for name, v := range cfg.Trading.StrategyCaps {
		caps[domain.Strategy(name)] = v
	}
	session := engine.NewSession(caps)

	placer := engine.NewPlacer(engine.PlacerConfig{
		Live:                 cfg.Trading.Live,
		MaxBet:               cfg.Trading.MaxBet,
		MaxPerMarket:         cfg.Trading.MaxPerMarket,
		DefaultStakePerPoint: cfg.Trading.DefaultStakePerPoint,
		TakeProfitTicks:      cfg.SpreadFarming.TakeProfitTicks,
		TakeProfitMultiplier: cfg.SpreadFarming.TakeProfitMultiplier,
		RequestTimeout:       cfg.RequestTimeout(),
	}, venue, venue, riskSvc, journal, resolver)

	exits := position.NewManager(position.Config{
		Live:            cfg.Trading.Live,
		TakeProfitCents: cfg.Exits.TakeProfitCents,
		TakeProfitPct:   cfg.Exits.TakeProfitPct,
		StopLossPct:     cfg.Exits.StopLossPct,
		MaxHold:         cfg.MaxHold(),
		TickImprove:     cfg.Exits.TickImprove,
		RequestTimeout:  cfg.RequestTimeout(),
	}, venue, venue, riskSvc, journal)

	interval := cfg.Interval()
	if *once {
		interval = 0
	}
	eng := engine.New(engine.Config{
		Series:         cfg.Series,
		Interval:       interval,
		MinBalance:     cfg.Trading.MinBalance,
		DryRunBalance:  cfg.Trading.DryRunBalance,
		SpreadFarming:  cfg.SpreadFarming.Enabled,
		RequestTimeout: cfg.RequestTimeout(),
		Live:           cfg.Trading.Live,
	}, resolver, det, venue, oddsSrc, venue, placer, exits, journal, notify.NewConsole(*table).WithHistory(journal), session)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("oddsbot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
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
