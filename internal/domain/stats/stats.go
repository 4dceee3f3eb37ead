// Package stats es el motor estadístico del backtest: métricas por
// estrategia, corrección por comparaciones múltiples y robustez temporal.
//
// Todas las funciones son puras. Ningún valor NaN o Inf sale del paquete:
// los casos indefinidos devuelven 0 con un flag explícito.
package stats

import (
	"math"
	"sort"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Defaults del motor.
const (
	DefaultConfidence       = 0.95
	DefaultBootstrapSamples = 1000
	// DefaultSessionsPerYear es la base de anualización del Sharpe: partidos
	// (sesiones) por año en los que la estrategia puede operar.
	DefaultSessionsPerYear = 200
)

// Config parametriza Compute. SessionsPerYear es explícito porque la
// frecuencia de trading varía por estrategia.
type Config struct {
	Confidence       float64
	SessionsPerYear  float64
	BootstrapSamples int
	Seed             uint64
}

// DefaultConfig devuelve la configuración estándar (95%, 1000 remuestreos).
func DefaultConfig() Config {
	return Config{
		Confidence:       DefaultConfidence,
		SessionsPerYear:  DefaultSessionsPerYear,
		BootstrapSamples: DefaultBootstrapSamples,
		Seed:             1,
	}
}

func (c Config) withDefaults() Config {
	if c.Confidence <= 0 || c.Confidence >= 1 {
		c.Confidence = DefaultConfidence
	}
	if c.SessionsPerYear <= 0 {
		c.SessionsPerYear = DefaultSessionsPerYear
	}
	if c.BootstrapSamples < 0 {
		c.BootstrapSamples = 0
	}
	return c
}

// Compute calcula el bundle completo para una lista de trades.
//
//   - win_rate = count(net_pl > 0) / n, con intervalo de Wilson
//   - sharpe   = mean / std × √SessionsPerYear
//   - cohens_d = mean / std
//   - p_value  = t-test de una muestra contra 0
//   - max_drawdown sobre el P&L acumulado en orden de entrada
//   - bootstrap de la media con BootstrapSamples remuestreos
func Compute(trades []domain.Trade, cfg Config) domain.StatsBundle {
	cfg = cfg.withDefaults()
	var b domain.StatsBundle
	b.N = len(trades)
	if b.N == 0 {
		b.PValue, b.WinRatePValue = 1, 1
		b.Degenerate = true
		return b
	}

	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTime.Before(ordered[j].EntryTime)
	})
	pl := domain.NetPLs(ordered)

	games := make(map[string]struct{})
	var sumWin, sumLoss float64
	for _, t := range ordered {
		games[t.GameID] = struct{}{}
		b.TotalGrossPL += t.GrossPL
		b.TotalFees += t.Fees
		b.TotalNetPL += t.NetPL
		if t.IsWinner() {
			b.Wins++
			sumWin += t.NetPL
		} else {
			b.Losses++
			sumLoss += t.NetPL
		}
	}
	b.GamesTraded = len(games)
	b.TradesPerGame = float64(b.N) / float64(b.GamesTraded)

	b.WinRate = float64(b.Wins) / float64(b.N)
	b.WinRateCI.Low, b.WinRateCI.High = Wilson(b.Wins, b.N, cfg.Confidence)
	b.WinRatePValue = BinomialTwoSided(b.Wins, b.N, 0.5)

	if b.Wins > 0 {
		b.AvgWin = sumWin / float64(b.Wins)
	}
	if b.Losses > 0 {
		b.AvgLoss = sumLoss / float64(b.Losses)
	}
	switch {
	case sumLoss < 0:
		b.ProfitFactor = sumWin / -sumLoss
	case sumWin > 0:
		b.ProfitFactorUnbounded = true
	}
	if b.AvgLoss != 0 {
		b.WinLossRatio = math.Abs(b.AvgWin / b.AvgLoss)
	}

	b.MeanNetPL = stat.Mean(pl, nil)
	b.MedianNetPL = median(pl)
	if b.N > 1 {
		b.StdNetPL = stat.StdDev(pl, nil)
	}

	t := OneSampleT(pl, 0)
	b.TStatistic, b.PValue = t.T, t.P
	b.Degenerate = t.Degenerate
	if !b.Degenerate {
		b.CohensD = b.MeanNetPL / b.StdNetPL
		b.SharpeRatio = b.CohensD * math.Sqrt(cfg.SessionsPerYear)
	}

	b.MaxDrawdown = MaxDrawdown(pl)

	boot := Bootstrap(pl, cfg.BootstrapSamples, cfg.Confidence, cfg.SessionsPerYear, cfg.Seed)
	b.BootstrapCI = boot.MeanCI
	b.SharpeCI = boot.SharpeCI
	b.ProbProfitable = boot.ProbProfitable
	return b
}

// MaxDrawdown devuelve el mínimo de (acumulado − máximo acumulado) sobre el
// camino de P&L en el orden dado. El máximo arranca en el primer acumulado.
// Siempre <= 0.
func MaxDrawdown(pl []float64) float64 {
	var cum, peak, worst float64
	for i, x := range pl {
		cum += x
		if i == 0 || cum > peak {
			peak = cum
		}
		if dd := cum - peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
