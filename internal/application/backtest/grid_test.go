package backtest_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alejandrodnm/fadebot/internal/application/backtest"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sawtoothGames genera partidos que oscilan entre lo y hi cada minuto,
// con un pequeño ruido por partido para que el P&L no sea constante.
func sawtoothGames(n int, lo, hi float64) []domain.Session {
	var out []domain.Session
	for g := 0; g < n; g++ {
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = lo + float64(g%3)
			if i%2 == 1 {
				closes[i] = hi - float64(i%4)
			}
		}
		out = append(out, session(fmt.Sprintf("G%02d", g), t0.Add(time.Duration(g)*24*time.Hour), closes...))
	}
	return out
}

func smallGrid() backtest.Grid {
	return backtest.Grid{
		PriceRanges:    []domain.PriceRange{{Min: 1, Max: 20}, {Min: 85, Max: 99}},
		MoveThresholds: []float64{5, 30},
		HoldPeriods:    []int{1, 3},
	}
}

func TestGrid_Cells(t *testing.T) {
	g := smallGrid()
	cells := g.Cells()
	require.Len(t, cells, 8)
	assert.Equal(t, 8, g.Size())
	assert.Equal(t, domain.StrategyParameters{PriceMin: 1, PriceMax: 20, MoveThreshold: 5, HoldPeriod: 1}, cells[0])
	assert.Equal(t, domain.StrategyParameters{PriceMin: 85, PriceMax: 99, MoveThreshold: 30, HoldPeriod: 3}, cells[7])
	assert.Equal(t, 216, backtest.DefaultGrid().Size())
}

func TestSearch_Summary(t *testing.T) {
	sessions := sawtoothGames(6, 5, 18)
	cfg := backtest.DefaultSearchConfig()
	cfg.Workers = 3

	run, err := backtest.Search(context.Background(), sessions, smallGrid(), cfg)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 6, run.Games)
	assert.Equal(t, 8, run.Summary.CellsAttempted)
	assert.Equal(t, 2, run.Summary.CellsValid)
	assert.Equal(t, 6, run.Summary.CellsInsufficientData)
	assert.Equal(t, 8, run.Summary.FamilySize)
	assert.LessOrEqual(t, run.Summary.BonferroniSignificant, run.Summary.NaiveSignificant)
	require.Len(t, run.Results, 2)

	for _, r := range run.Results {
		assert.GreaterOrEqual(t, len(r.Trades), cfg.MinTrades)
		assert.Equal(t, r.Params.Name(), r.Signal)
		assert.Equal(t, len(r.Trades), r.Stats.N)
		assert.Equal(t, 1.0, r.Params.PriceMin)
	}
	assert.Equal(t, 1, run.Results[0].Params.HoldPeriod)
	assert.Equal(t, 3, run.Results[1].Params.HoldPeriod)
}

func TestSearch_FamilyEvaluated(t *testing.T) {
	cfg := backtest.DefaultSearchConfig()
	cfg.Family = backtest.FamilyEvaluated

	run, err := backtest.Search(context.Background(), sawtoothGames(6, 5, 18), smallGrid(), cfg)
	require.NoError(t, err)
	assert.Equal(t, run.Summary.CellsValid, run.Summary.FamilySize)
}

func TestSearch_Deterministic(t *testing.T) {
	sessions := sawtoothGames(8, 5, 18)
	cfg := backtest.DefaultSearchConfig()
	cfg.Stats.Seed = 7

	cfg.Workers = 1
	a, err := backtest.Search(context.Background(), sessions, smallGrid(), cfg)
	require.NoError(t, err)

	cfg.Workers = 4
	b, err := backtest.Search(context.Background(), sessions, smallGrid(), cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Results, b.Results)
}

func TestSearch_GridTooLarge(t *testing.T) {
	cfg := backtest.DefaultSearchConfig()
	cfg.MaxCells = 3

	_, err := backtest.Search(context.Background(), nil, smallGrid(), cfg)
	assert.ErrorIs(t, err, backtest.ErrGridTooLarge)
}

func TestSearch_InvalidCell(t *testing.T) {
	g := smallGrid()
	g.PriceRanges = append(g.PriceRanges, domain.PriceRange{Min: 60, Max: 40})

	_, err := backtest.Search(context.Background(), nil, g, backtest.DefaultSearchConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)

	_, err = backtest.Search(context.Background(), nil, backtest.Grid{}, backtest.DefaultSearchConfig())
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestSearch_MalformedSeriesFailsFast(t *testing.T) {
	sessions := sawtoothGames(2, 5, 18)
	sessions[1].Candles[3].Close = 0

	_, err := backtest.Search(context.Background(), sessions, smallGrid(), backtest.DefaultSearchConfig())
	assert.ErrorIs(t, err, domain.ErrMalformedSeries)
}

func TestSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backtest.Search(ctx, sawtoothGames(2, 5, 18), smallGrid(), backtest.DefaultSearchConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSignal(t *testing.T) {
	sessions := sawtoothGames(4, 5, 18)
	cfg := backtest.DefaultSearchConfig()

	r, err := backtest.RunSignal(sessions, &stubSignal{hold: 1}, 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, "stub", r.Signal)
	assert.GreaterOrEqual(t, r.Stats.N, cfg.MinTrades)

	cfg.MinTrades = 10000
	_, err = backtest.RunSignal(sessions, &stubSignal{hold: 1}, 1, cfg)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}
