package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/fadebot/config"
	"github.com/alejandrodnm/fadebot/internal/adapters/notify"
	"github.com/alejandrodnm/fadebot/internal/adapters/storage"
)

// options son los flags que no viven en config.yaml.
type options struct {
	prices      string
	events      string
	settlements string
	model       string
	tradesOut   string
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	prices := flag.String("prices", "", "price table CSV (game_id,timestamp,open,high,low,close,volume)")
	events := flag.String("events", "", "optional score table CSV (game_id,timestamp,score_a,score_b,period,clock)")
	settlements := flag.String("settlements", "", "optional settlement CSV (game_id,settlement)")
	modelPath := flag.String("model", "", "evaluate a model signal on the history instead of the grid")
	tradesOut := flag.String("trades-out", "", "write the trades of the best strategy to this CSV")
	paperMode := flag.Bool("paper", false, "run the paper trading loop with the latest validated strategies")
	report := flag.Bool("report", false, "print the paper trading report and exit")
	runs := flag.Bool("runs", false, "list stored search runs and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", true, "print full tables (false: compact 1-line)")
	validate := flag.Bool("validate", false, "print step-by-step statistics for the top 3 strategies")
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

	slog.Info("fadebot starting",
		"config", *configPath,
		"paper", *paperMode,
		"report", *report,
		"prices", *prices,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table, *validate)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := options{
		prices:      *prices,
		events:      *events,
		settlements: *settlements,
		model:       *modelPath,
		tradesOut:   *tradesOut,
	}

	switch {
	case *report:
		err = runPaperReport(ctx, store, notifier)
	case *runs:
		err = runListRuns(ctx, store, notifier)
	case *paperMode:
		err = runPaper(ctx, cfg, store, notifier)
	case opts.model != "":
		err = runModel(ctx, cfg, notifier, opts)
	default:
		err = runSearch(ctx, cfg, store, notifier, opts)
	}
	if err != nil {
		slog.Error("fadebot exited with error", "err", err)
		store.Close()
		os.Exit(1)
	}

	slog.Info("fadebot stopped cleanly")
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
