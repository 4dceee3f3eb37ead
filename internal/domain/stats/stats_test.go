package stats_test

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func tradesWithPL(pl ...float64) []domain.Trade {
	out := make([]domain.Trade, len(pl))
	for i, v := range pl {
		out[i] = domain.Trade{
			GameID:    "G" + string(rune('A'+i%3)),
			EntryTime: t0.Add(time.Duration(i) * time.Hour),
			NetPL:     v,
			GrossPL:   v + 0.01,
			Fees:      0.01,
		}
	}
	return out
}

func TestOneSampleT_KnownValue(t *testing.T) {
	r := stats.OneSampleT([]float64{1, 2, 3, 4, 5}, 0)
	assert.False(t, r.Degenerate)
	assert.InDelta(t, 4.2426, r.T, 1e-3)
	assert.InDelta(t, 0.01324, r.P, 5e-4)
	assert.Equal(t, 4.0, r.DF)
}

func TestOneSampleT_Degenerate(t *testing.T) {
	r := stats.OneSampleT([]float64{2, 2, 2}, 0)
	assert.True(t, r.Degenerate)
	assert.Equal(t, 1.0, r.P)
	assert.Equal(t, 0.0, r.T)

	r = stats.OneSampleT([]float64{2}, 0)
	assert.True(t, r.Degenerate)
}

func TestTwoSampleT_KnownValue(t *testing.T) {
	r := stats.TwoSampleT([]float64{1, 2, 3}, []float64{4, 5, 6})
	assert.InDelta(t, -3.6742, r.T, 1e-3)
	assert.InDelta(t, 0.02131, r.P, 5e-4)
	assert.Equal(t, 4.0, r.DF)
}

func TestTwoSampleT_EmptySide(t *testing.T) {
	r := stats.TwoSampleT(nil, []float64{1, 2})
	assert.True(t, r.Degenerate)
	assert.Equal(t, 1.0, r.P)
}

func TestBinomialTwoSided(t *testing.T) {
	assert.Equal(t, 1.0, stats.BinomialTwoSided(5, 10, 0.5))
	assert.InDelta(t, 2.0/1024, stats.BinomialTwoSided(0, 10, 0.5), 1e-9)
	assert.InDelta(t, 2.0/1024, stats.BinomialTwoSided(10, 10, 0.5), 1e-9)
	// 8 de 10: P(X<=2) + P(X>=8) = 2 * 56/1024
	assert.InDelta(t, 112.0/1024, stats.BinomialTwoSided(8, 10, 0.5), 1e-9)
}

func TestWilson(t *testing.T) {
	low, high := stats.Wilson(50, 100, 0.95)
	assert.InDelta(t, 0.4038, low, 1e-3)
	assert.InDelta(t, 0.5962, high, 1e-3)

	// Proporciones extremas no salen de [0, 1] ni colapsan.
	low, high = stats.Wilson(0, 10, 0.95)
	assert.InDelta(t, 0.0, low, 1e-12)
	assert.Greater(t, high, 0.0)
	assert.Less(t, high, 1.0)

	low, high = stats.Wilson(10, 10, 0.95)
	assert.Greater(t, low, 0.0)
	assert.InDelta(t, 1.0, high, 1e-12)
}

func TestCompute_SymmetricPL(t *testing.T) {
	b := stats.Compute(tradesWithPL(5, 5, 5, 5, 5, -5, -5, -5, -5, -5), stats.DefaultConfig())

	assert.Equal(t, 10, b.N)
	assert.Equal(t, 5, b.Wins)
	assert.InDelta(t, 0.5, b.WinRate, 1e-12)
	assert.InDelta(t, 0.0, b.MeanNetPL, 1e-12)
	assert.InDelta(t, 0.0, b.TStatistic, 1e-9)
	assert.InDelta(t, 1.0, b.PValue, 1e-9)
	assert.InDelta(t, 0.0, b.SharpeRatio, 1e-9)
	assert.InDelta(t, 1.0, b.ProfitFactor, 1e-12)
	assert.Equal(t, 3, b.GamesTraded)
	assert.LessOrEqual(t, b.WinRateCI.Low, b.WinRate)
	assert.GreaterOrEqual(t, b.WinRateCI.High, b.WinRate)
}

func TestCompute_Extended(t *testing.T) {
	b := stats.Compute(tradesWithPL(1, 1, -1, 1, 1, -1, 1, 1, -1, 1), stats.DefaultConfig())

	assert.Equal(t, 7, b.Wins)
	assert.Equal(t, 3, b.Losses)
	assert.InDelta(t, 0.4, b.MeanNetPL, 1e-12)
	assert.InDelta(t, 4.0, b.TotalNetPL, 1e-12)
	assert.InDelta(t, 0.1, b.TotalFees, 1e-12)
	assert.InDelta(t, 1.0, b.AvgWin, 1e-12)
	assert.InDelta(t, -1.0, b.AvgLoss, 1e-12)
	assert.InDelta(t, 7.0/3, b.ProfitFactor, 1e-12)
	assert.InDelta(t, 1.0, b.WinLossRatio, 1e-12)
	assert.InDelta(t, 1.0, b.MedianNetPL, 1e-12)
	assert.False(t, b.Degenerate)
	assert.InDelta(t, b.CohensD*math.Sqrt(stats.DefaultSessionsPerYear), b.SharpeRatio, 1e-9)

	assert.LessOrEqual(t, b.BootstrapCI.Low, b.MeanNetPL)
	assert.GreaterOrEqual(t, b.BootstrapCI.High, b.MeanNetPL)
	assert.GreaterOrEqual(t, b.ProbProfitable, 0.0)
	assert.LessOrEqual(t, b.ProbProfitable, 1.0)
	assert.LessOrEqual(t, b.MaxDrawdown, 0.0)
}

func TestCompute_ZeroVariance(t *testing.T) {
	b := stats.Compute(tradesWithPL(0.5, 0.5, 0.5, 0.5), stats.DefaultConfig())

	assert.True(t, b.Degenerate)
	assert.Equal(t, 0.0, b.SharpeRatio)
	assert.Equal(t, 0.0, b.CohensD)
	assert.Equal(t, 1.0, b.PValue)
	assert.True(t, b.ProfitFactorUnbounded)
	for _, v := range []float64{b.SharpeRatio, b.CohensD, b.PValue, b.StdNetPL, b.BootstrapCI.Low, b.BootstrapCI.High} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestCompute_Empty(t *testing.T) {
	b := stats.Compute(nil, stats.DefaultConfig())
	assert.Equal(t, 0, b.N)
	assert.Equal(t, 1.0, b.PValue)
	assert.True(t, b.Degenerate)
}

func TestCompute_Deterministic(t *testing.T) {
	trades := tradesWithPL(1.2, -0.4, 0.3, 2.1, -1.5, 0.8, 0.1, -0.2)
	cfg := stats.DefaultConfig()
	cfg.Seed = 42

	a := stats.Compute(trades, cfg)
	b := stats.Compute(trades, cfg)
	assert.Equal(t, a, b)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, -4.0, stats.MaxDrawdown([]float64{1, -2, 1, -3, 4}), 1e-12)
	assert.Equal(t, 0.0, stats.MaxDrawdown([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, stats.MaxDrawdown(nil))
}

func TestBootstrap_TooFewObservations(t *testing.T) {
	r := stats.Bootstrap([]float64{1}, 1000, 0.95, 200, 1)
	assert.Equal(t, 0, r.Samples)
	assert.Equal(t, domain.Interval{}, r.MeanCI)
}

func resultsWithP(p ...float64) []domain.StrategyResult {
	out := make([]domain.StrategyResult, len(p))
	for i, v := range p {
		out[i].Stats.PValue = v
	}
	return out
}

func TestCorrect_HundredStrategies(t *testing.T) {
	p := make([]float64, 100)
	for i := range p {
		p[i] = 0.5
	}
	for i := 0; i < 5; i++ {
		p[i*17] = 0.001
	}
	results := resultsWithP(p...)

	c := stats.Correct(results, 0.05)

	assert.Equal(t, 100, c.FamilySize)
	assert.InDelta(t, 0.0005, c.BonfCutoff, 1e-12)
	assert.Equal(t, 0, c.Bonferroni)
	assert.Equal(t, 5, c.FDR)
	assert.Equal(t, 5, c.Naive)
	for i, r := range results {
		assert.False(t, r.BonferroniSignificant)
		if r.Stats.PValue == 0.001 {
			assert.True(t, r.FDRSignificant, "result %d", i)
			assert.InDelta(t, 0.02, r.FDRQValue, 1e-12)
			assert.InDelta(t, 0.1, r.BonferroniPValue, 1e-12)
		} else {
			assert.False(t, r.FDRSignificant, "result %d", i)
			assert.InDelta(t, 1.0, r.BonferroniPValue, 1e-12)
		}
	}
}

func TestCorrect_StepUp(t *testing.T) {
	// rango 2 falla (0.03 > 0.025) pero rango 3 pasa (0.035 <= 0.0375):
	// BH acepta los tres primeros.
	results := resultsWithP(0.9, 0.035, 0.01, 0.03)
	c := stats.Correct(results, 0.05)

	assert.Equal(t, 3, c.FDR)
	assert.False(t, results[0].FDRSignificant)
	assert.True(t, results[1].FDRSignificant)
	assert.True(t, results[2].FDRSignificant)
	assert.True(t, results[3].FDRSignificant)
	assert.InDelta(t, 0.035, c.FDRMaxPValue, 1e-12)

	// q-values monótonos en el orden de p.
	assert.LessOrEqual(t, results[2].FDRQValue, results[3].FDRQValue)
	assert.LessOrEqual(t, results[3].FDRQValue, results[1].FDRQValue)
	assert.LessOrEqual(t, results[1].FDRQValue, results[0].FDRQValue)
}

func TestCorrectFamily_CountsUntestedCells(t *testing.T) {
	results := resultsWithP(0.001, 0.001, 0.001, 0.001, 0.001)

	c := stats.CorrectFamily(results, 0.05, 5)
	assert.Equal(t, 5, c.FDR)

	c = stats.CorrectFamily(results, 0.05, 1000)
	assert.Equal(t, 1000, c.FamilySize)
	assert.Equal(t, 0, c.FDR)
	assert.Equal(t, 0, c.Bonferroni)

	// Nunca por debajo del batch real.
	c = stats.CorrectFamily(results, 0.05, 2)
	assert.Equal(t, 5, c.FamilySize)
}

func TestCorrect_BonferroniNeverExceedsNaive(t *testing.T) {
	sets := [][]float64{
		{0.0001, 0.02, 0.04, 0.2},
		{0.5, 0.5, 0.5},
		{0.00001, 0.00001},
		{},
	}
	for _, p := range sets {
		results := resultsWithP(p...)
		c := stats.Correct(results, 0.05)
		assert.LessOrEqual(t, c.Bonferroni, c.Naive)
		assert.LessOrEqual(t, c.Bonferroni, c.FDR)
	}
}

func robustTrades(first, second []float64) []domain.Trade {
	var out []domain.Trade
	for _, v := range first {
		out = append(out, domain.Trade{NetPL: v, SessionMinute: 10, SessionDuration: 100})
	}
	for _, v := range second {
		out = append(out, domain.Trade{NetPL: v, SessionMinute: 60, SessionDuration: 100})
	}
	return out
}

func TestCheckRobustness(t *testing.T) {
	r := stats.CheckRobustness(robustTrades([]float64{1, 2, 3}, []float64{4, 5, 6}))
	require.True(t, r.Evaluable)
	assert.Equal(t, 3, r.FirstHalfN)
	assert.Equal(t, 3, r.SecondHalfN)
	assert.InDelta(t, 2.0, r.FirstHalfMean, 1e-12)
	assert.InDelta(t, 5.0, r.SecondHalfMean, 1e-12)
	assert.InDelta(t, 0.02131, r.PValue, 5e-4)
	assert.False(t, r.Consistent)

	r = stats.CheckRobustness(robustTrades([]float64{1, -1, 2}, []float64{1, -1, 1.5}))
	assert.True(t, r.Evaluable)
	assert.True(t, r.Consistent)
}

func TestCheckRobustness_EmptyHalf(t *testing.T) {
	r := stats.CheckRobustness(robustTrades([]float64{1, 2, 3}, nil))
	assert.False(t, r.Evaluable)
	assert.False(t, r.Consistent)
	assert.Equal(t, 1.0, r.PValue)
}
