package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/fadebot/config"
	"github.com/alejandrodnm/fadebot/internal/adapters/kalshi"
	"github.com/alejandrodnm/fadebot/internal/adapters/model"
	"github.com/alejandrodnm/fadebot/internal/adapters/nbalive"
	"github.com/alejandrodnm/fadebot/internal/adapters/notify"
	"github.com/alejandrodnm/fadebot/internal/adapters/storage"
	"github.com/alejandrodnm/fadebot/internal/application/backtest"
	"github.com/alejandrodnm/fadebot/internal/application/engine"
	"github.com/alejandrodnm/fadebot/internal/application/engine/paper"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
	"github.com/alejandrodnm/fadebot/internal/ports"
)

func runPaper(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, notifier *notify.Console) error {
	strategies, err := paperStrategies(ctx, cfg, store)
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		return errors.New("no validated strategies: run a search first or set paper.model_path")
	}
	games := watchedGames(cfg.Paper.Games)
	if len(games) == 0 {
		return errors.New("paper.games is empty")
	}

	slog.Info("=== PAPER TRADING MODE ===",
		"games", len(games),
		"strategies", len(strategies),
		"contracts", cfg.Paper.Contracts,
		"hold_to_settlement", cfg.Paper.HoldToSettlement,
	)

	client := kalshi.NewClient(kalshi.WithBaseURL(cfg.API.KalshiBase), kalshi.WithRate(cfg.API.KalshiRatePS))
	var books ports.OrderBookProvider
	if cfg.API.UseOrderBooks {
		books = client
	}
	pbp := nbalive.NewClient(cfg.API.PBPBase, cfg.API.PBPRatePS)

	pe := paper.New(client, books, pbp, store, strategies, games, paper.Config{
		Contracts:        cfg.Paper.Contracts,
		Fees:             feeSchedule(cfg),
		HoldToSettlement: cfg.Paper.HoldToSettlement,
		Lookback:         cfg.PaperLookback(),
	})
	if err := pe.Start(ctx); err != nil {
		return err
	}
	// ctx ya puede estar cancelado al salir
	defer func() {
		if err := pe.Stop(context.Background()); err != nil {
			slog.Warn("could not close paper session", "err", err)
		}
	}()

	ticker := time.NewTicker(cfg.PaperInterval())
	defer ticker.Stop()

	slog.Info("paper trading started — press Ctrl+C or create STOP file to exit")
	fmt.Printf("[PAPER] Starting loop (%s interval, %d games, %d strategies)...\n",
		cfg.PaperInterval(), len(games), len(strategies))

	runPaperCycle(ctx, pe, notifier)

	for {
		select {
		case <-ctx.Done():
			slog.Info("paper trading stopped (signal)")
			printPaperExitSummary(store, notifier)
			return nil
		case <-ticker.C:
			if _, err := os.Stat(cfg.Paper.StopFile); err == nil {
				slog.Info("STOP file detected — shutting down paper trading")
				os.Remove(cfg.Paper.StopFile)
				printPaperExitSummary(store, notifier)
				return nil
			}
			runPaperCycle(ctx, pe, notifier)
			if pe.Done() {
				slog.Info("all watched games are final — shutting down paper trading")
				printPaperExitSummary(store, notifier)
				return nil
			}
		}
	}
}

func runPaperCycle(ctx context.Context, pe *paper.Engine, notifier *notify.Console) {
	result, err := pe.RunOnce(ctx)
	if err != nil {
		slog.Error("paper cycle failed", "err", err)
		return
	}
	if err := notifier.NotifyPaperCycle(ctx, result.Open, result.Closed); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

// paperStrategies toma las estrategias validadas del último run y, si hay
// modelo configurado, añade su señal.
func paperStrategies(ctx context.Context, cfg *config.Config, store ports.ResultStorage) ([]engine.Strategy, error) {
	var strategies []engine.Strategy

	run, err := store.LatestRun(ctx)
	switch {
	case errors.Is(err, storage.ErrNoRuns):
		slog.Warn("no stored search run")
	case err != nil:
		return nil, err
	default:
		criteria := backtest.Criteria{
			RequireBonferroni: cfg.Paper.RequireBonferroni,
			RequireConsistent: cfg.Paper.RequireConsistent,
			MinSharpe:         cfg.Paper.MinSharpe,
			Top:               cfg.Paper.TopStrategies,
		}
		strategies, err = engine.FromResults(run.Results, criteria)
		if err != nil {
			return nil, err
		}
		slog.Info("validated strategies loaded", "run", run.ID, "selected", len(strategies), "results", len(run.Results))
	}

	if cfg.Paper.ModelPath != "" {
		m, err := model.Load(cfg.Paper.ModelPath)
		if err != nil {
			return nil, err
		}
		sig, err := signal.NewModel(m, cfg.Paper.EntryThreshold, domain.PriceRange{}, m.Name())
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, engine.FromSignal(sig, cfg.Paper.ModelHold))
	}
	return strategies, nil
}

func watchedGames(games []config.GameConfig) []domain.WatchedGame {
	out := make([]domain.WatchedGame, 0, len(games))
	for _, g := range games {
		out = append(out, domain.WatchedGame{GameID: g.GameID, Ticker: g.Ticker, Side: g.Side})
	}
	return out
}

func runPaperReport(ctx context.Context, store ports.PaperStorage, notifier *notify.Console) error {
	if err := store.ApplyPaperSchema(ctx); err != nil {
		return fmt.Errorf("init paper schema: %w", err)
	}
	stats, err := store.GetPaperStats(ctx)
	if err != nil {
		return err
	}
	return notifier.NotifyPaperReport(ctx, stats)
}

func printPaperExitSummary(store ports.PaperStorage, notifier *notify.Console) {
	ctx := context.Background()
	stats, err := store.GetPaperStats(ctx)
	if err != nil {
		slog.Warn("could not generate exit summary", "err", err)
		return
	}
	notifier.NotifyPaperReport(ctx, stats)
}
