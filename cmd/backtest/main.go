package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/adapters/polymarket"
	"github.com/alejandrodnm/polysim/internal/adapters/report"
	"github.com/alejandrodnm/polysim/internal/adapters/storage"
	"github.com/alejandrodnm/polysim/internal/backtest"
	"github.com/alejandrodnm/polysim/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	strategyPath := flag.String("strategy", "", "path to strategy YAML (required unless -history)")
	table := flag.Bool("table", false, "print full report tables (default: compact 1-line)")
	export := flag.String("export", "", "export the trade table to a CSV file")
	history := flag.Int("history", 0, "print the last N stored runs and exit")
	noStore := flag.Bool("no-store", false, "skip persisting the run to SQLite")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter := report.NewConsole(*table)

	if *history > 0 {
		printHistory(ctx, cfg, reporter, *history)
		return
	}

	if *strategyPath == "" {
		slog.Error("missing -strategy flag (or use -history N)")
		flag.Usage()
		os.Exit(1)
	}

	strategy, err := domain.LoadStrategy(*strategyPath)
	if err != nil {
		slog.Error("failed to load strategy", "err", err, "path", *strategyPath)
		os.Exit(1)
	}

	slog.Info("polysim starting",
		"config", *configPath,
		"strategy", strategy.Name,
		"start", strategy.StartDate,
		"end", strategy.EndDate,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	engineCfg := backtest.DefaultConfig()
	engineCfg.FeeRate = cfg.Backtest.FeeRate
	engineCfg.ListPageSize = cfg.Backtest.ListPageSize
	engineCfg.MaxListRecords = cfg.Backtest.MaxMarketsFetch

	engine := backtest.New(engineCfg, client)

	result, err := engine.Run(ctx, strategy)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	if err := reporter.Report(ctx, result); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if *export != "" {
		if err := report.ExportCSV(*export, result); err != nil {
			slog.Error("csv export failed", "err", err, "path", *export)
			os.Exit(1)
		}
		slog.Info("trades exported", "path", *export, "trades", len(result.Trades))
	}

	if !*noStore {
		store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()

		if err := store.SaveRun(ctx, result); err != nil {
			slog.Error("failed to persist run", "err", err)
			os.Exit(1)
		}
		slog.Info("run persisted", "run_id", result.RunID, "dsn", cfg.Storage.DSN)
	}
}

func printHistory(ctx context.Context, cfg *config.Config, reporter *report.Console, limit int) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	runs, err := store.GetRuns(ctx, limit)
	if err != nil {
		slog.Error("failed to read run history", "err", err)
		os.Exit(1)
	}

	reporter.PrintHistory(runs)
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
