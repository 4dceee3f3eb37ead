package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/fadebot/config"
	"github.com/alejandrodnm/fadebot/internal/adapters/csvdata"
	"github.com/alejandrodnm/fadebot/internal/adapters/model"
	"github.com/alejandrodnm/fadebot/internal/adapters/notify"
	"github.com/alejandrodnm/fadebot/internal/application/backtest"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
	"github.com/alejandrodnm/fadebot/internal/domain/stats"
	"github.com/alejandrodnm/fadebot/internal/ports"
)

// runSearch carga el histórico, barre el grid, persiste el run y lo resume.
func runSearch(ctx context.Context, cfg *config.Config, store ports.ResultStorage, notifier *notify.Console, opts options) error {
	sessions, err := loadSessions(opts)
	if err != nil {
		return err
	}

	grid := gridFromConfig(cfg.Backtest.Grid)
	slog.Info("=== GRID SEARCH ===", "games", len(sessions), "cells", grid.Size())

	run, err := backtest.Search(ctx, sessions, grid, searchConfig(cfg))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	snap, err := cfg.Snapshot()
	if err != nil {
		return err
	}
	if err := store.SaveRun(ctx, run, snap); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if err := notifier.NotifySearch(ctx, run, cfg.Backtest.Top); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if opts.tradesOut != "" {
		ranked := backtest.RankBySharpe(run.Results)
		if len(ranked) == 0 {
			slog.Warn("no valid strategy, trades not exported")
			return nil
		}
		if err := csvdata.SaveTrades(opts.tradesOut, ranked[0].Trades); err != nil {
			return err
		}
		slog.Info("trades exported", "strategy", ranked[0].Signal, "trades", len(ranked[0].Trades), "path", opts.tradesOut)
	}
	return nil
}

// runModel evalúa la señal de modelo sobre el histórico con el mismo pipeline
// estadístico que una celda del grid.
func runModel(_ context.Context, cfg *config.Config, notifier *notify.Console, opts options) error {
	sessions, err := loadSessions(opts)
	if err != nil {
		return err
	}
	m, err := model.Load(opts.model)
	if err != nil {
		return err
	}
	sig, err := signal.NewModel(m, cfg.Paper.EntryThreshold, domain.PriceRange{}, m.Name())
	if err != nil {
		return err
	}

	res, err := backtest.RunSignal(sessions, sig, cfg.Paper.ModelHold, searchConfig(cfg))
	if errors.Is(err, domain.ErrInsufficientData) {
		slog.Warn("model produced too few trades", "model", m.Name(), "min_trades", cfg.Backtest.MinTrades)
		return nil
	}
	if err != nil {
		return err
	}
	notifier.PrintResult(res)

	if opts.tradesOut != "" {
		return csvdata.SaveTrades(opts.tradesOut, res.Trades)
	}
	return nil
}

func runListRuns(ctx context.Context, store ports.ResultStorage, notifier *notify.Console) error {
	runs, err := store.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	notifier.PrintRuns(runs)
	return nil
}

func loadSessions(opts options) ([]domain.Session, error) {
	if opts.prices == "" {
		return nil, errors.New("-prices is required for a search")
	}
	sessions, err := csvdata.LoadSessions(opts.prices, opts.events, opts.settlements)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("%s: no sessions", opts.prices)
	}
	return sessions, nil
}

func gridFromConfig(g config.GridConfig) backtest.Grid {
	def := backtest.DefaultGrid()
	out := backtest.Grid{MoveThresholds: g.MoveThresholds, HoldPeriods: g.HoldPeriods}
	for _, r := range g.PriceRanges {
		out.PriceRanges = append(out.PriceRanges, domain.PriceRange{Min: r.Min, Max: r.Max})
	}
	if len(out.PriceRanges) == 0 {
		out.PriceRanges = def.PriceRanges
	}
	if len(out.MoveThresholds) == 0 {
		out.MoveThresholds = def.MoveThresholds
	}
	if len(out.HoldPeriods) == 0 {
		out.HoldPeriods = def.HoldPeriods
	}
	return out
}

func searchConfig(cfg *config.Config) backtest.SearchConfig {
	return backtest.SearchConfig{
		MinTrades: cfg.Backtest.MinTrades,
		Workers:   cfg.Backtest.Workers,
		MaxCells:  cfg.Backtest.MaxCells,
		Sim: backtest.SimConfig{
			Contracts:        cfg.Backtest.Contracts,
			Fees:             feeSchedule(cfg),
			HoldToSettlement: cfg.Backtest.HoldToSettlement,
		},
		Stats: stats.Config{
			Confidence:       cfg.Stats.Confidence,
			SessionsPerYear:  cfg.Stats.SessionsPerYear,
			BootstrapSamples: cfg.Stats.BootstrapSamples,
			Seed:             cfg.Stats.Seed,
		},
		Alpha:  cfg.Stats.Alpha,
		Family: backtest.FamilyMode(cfg.Stats.CorrectionFamily),
	}
}

func feeSchedule(cfg *config.Config) domain.FeeSchedule {
	return domain.FeeSchedule{TakerRate: cfg.Fees.TakerRate, MakerRate: cfg.Fees.MakerRate}
}
