package backtest

import (
	"sort"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// Criteria filtra resultados corregidos antes de llevarlos a paper trading.
type Criteria struct {
	// RequireBonferroni exige significancia Bonferroni; si es false basta FDR.
	RequireBonferroni bool `yaml:"require_bonferroni"`
	// RequireConsistent exige que el chequeo temporal sea evaluable y consistente.
	RequireConsistent bool    `yaml:"require_consistent"`
	MinSharpe         float64 `yaml:"min_sharpe"`
	// Top limita el número de estrategias (0 = sin límite).
	Top int `yaml:"top"`
}

// DefaultCriteria: FDR + consistencia temporal, top 5.
func DefaultCriteria() Criteria {
	return Criteria{RequireConsistent: true, Top: 5}
}

// SelectValidated devuelve los resultados que pasan la corrección elegida,
// tienen media neta positiva y cumplen el resto de criterios, ordenados por
// Sharpe descendente (desempate por nombre para ser determinista).
func SelectValidated(results []domain.StrategyResult, c Criteria) []domain.StrategyResult {
	var out []domain.StrategyResult
	for _, r := range results {
		significant := r.FDRSignificant
		if c.RequireBonferroni {
			significant = r.BonferroniSignificant
		}
		if !significant || r.Stats.MeanNetPL <= 0 {
			continue
		}
		if c.RequireConsistent && !(r.Robustness.Evaluable && r.Robustness.Consistent) {
			continue
		}
		if r.Stats.SharpeRatio < c.MinSharpe {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stats.SharpeRatio != out[j].Stats.SharpeRatio {
			return out[i].Stats.SharpeRatio > out[j].Stats.SharpeRatio
		}
		return out[i].Params.Name() < out[j].Params.Name()
	})
	if c.Top > 0 && len(out) > c.Top {
		out = out[:c.Top]
	}
	return out
}

// RankBySharpe ordena una copia de results por Sharpe descendente.
func RankBySharpe(results []domain.StrategyResult) []domain.StrategyResult {
	out := make([]domain.StrategyResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Stats.SharpeRatio > out[j].Stats.SharpeRatio
	})
	return out
}
