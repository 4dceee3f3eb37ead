package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/fadebot/internal/adapters/storage"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeResult(hold int, sharpe, p float64, fdr bool) domain.StrategyResult {
	params := domain.StrategyParameters{PriceMin: 1, PriceMax: 20, MoveThreshold: 10, HoldPeriod: hold}
	return domain.StrategyResult{
		Params: params,
		Signal: params.Name(),
		Stats: domain.StatsBundle{
			N:           25,
			Wins:        15,
			WinRate:     0.6,
			WinRateCI:   domain.Interval{Low: 0.41, High: 0.77},
			MeanNetPL:   0.42,
			SharpeRatio: sharpe,
			PValue:      p,
			MaxDrawdown: -3.5,
			BootstrapCI: domain.Interval{Low: 0.1, High: 0.8},
		},
		Robustness:     domain.Robustness{FirstHalfN: 12, SecondHalfN: 13, PValue: 0.4, Consistent: true, Evaluable: true},
		FDRSignificant: fdr,
		FDRQValue:      p * 4,
	}
}

func makeRun(id string, started time.Time) domain.SearchRun {
	return domain.SearchRun{
		ID:        id,
		StartedAt: started,
		Games:     40,
		Summary: domain.SearchSummary{
			CellsAttempted:        8,
			CellsInsufficientData: 6,
			CellsValid:            2,
			FDRSignificant:        1,
			NaiveSignificant:      2,
			FamilySize:            8,
			Alpha:                 0.05,
			Elapsed:               1500 * time.Millisecond,
		},
		Results: []domain.StrategyResult{
			makeResult(3, 2.5, 0.001, true),
			makeResult(5, 1.1, 0.03, false),
		},
	}
}

func TestSQLiteStorage_SaveAndLatestRun(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveRun(ctx, makeRun("old", now.Add(-time.Hour)), "alpha: 0.05"))
	require.NoError(t, db.SaveRun(ctx, makeRun("new", now), "alpha: 0.05"))

	run, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", run.ID)
	assert.True(t, run.StartedAt.Equal(now))
	assert.Equal(t, 40, run.Games)
	assert.Equal(t, 8, run.Summary.CellsAttempted)
	assert.Equal(t, 1500*time.Millisecond, run.Summary.Elapsed)
	require.Len(t, run.Results, 2)

	r := run.Results[0]
	assert.Equal(t, 3, r.Params.HoldPeriod)
	assert.Equal(t, "P1-20 M10 H3m", r.Signal)
	assert.True(t, r.FDRSignificant)
	assert.InDelta(t, 0.004, r.FDRQValue, 1e-12)
	assert.InDelta(t, 2.5, r.Stats.SharpeRatio, 1e-12)
	assert.Equal(t, domain.Interval{Low: 0.41, High: 0.77}, r.Stats.WinRateCI)
	assert.True(t, r.Robustness.Consistent)
	assert.Nil(t, r.Trades)
}

func TestSQLiteStorage_LatestRun_Empty(t *testing.T) {
	db := newDB(t)
	_, err := db.LatestRun(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoRuns)
}

func TestSQLiteStorage_ListRuns(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.SaveRun(ctx, makeRun(id, now.Add(time.Duration(i)*time.Minute)), "cfg-"+id))
	}

	runs, err := db.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "cfg-c", runs[0].Config)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSQLiteStorage_SaveRun_DuplicateID(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	run := makeRun("dup", time.Now())
	require.NoError(t, db.SaveRun(ctx, run, ""))
	assert.Error(t, db.SaveRun(ctx, run, ""))

	// La transacción fallida no deja resultados huérfanos.
	got, err := db.LatestRun(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Results, 2)
}
