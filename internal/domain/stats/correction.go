package stats

import (
	"math"
	"sort"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// DefaultAlpha es el nivel de significancia familiar.
const DefaultAlpha = 0.05

// Correction resume cuántos resultados sobreviven cada criterio.
type Correction struct {
	FamilySize   int
	Alpha        float64
	Bonferroni   int
	FDR          int
	Naive        int
	BonfCutoff   float64 // alpha / N
	FDRMaxPValue float64 // p(k) del mayor rango aceptado por BH, 0 si ninguno
}

// Correct aplica Bonferroni y Benjamini-Hochberg sobre el batch completo.
// Equivale a CorrectFamily con familia = len(results).
func Correct(results []domain.StrategyResult, alpha float64) Correction {
	return CorrectFamily(results, alpha, len(results))
}

// CorrectFamily corrige usando N = family. Si family supera len(results), las
// hipótesis no presentes (celdas sin datos suficientes) cuentan como p = 1:
// ocupan rangos al final y nunca se rechazan, pero sí engordan N.
// Un family menor que len(results) se eleva a len(results).
//
// Muta los flags y p-values ajustados de cada resultado en su sitio.
func CorrectFamily(results []domain.StrategyResult, alpha float64, family int) Correction {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	if family < len(results) {
		family = len(results)
	}
	c := Correction{FamilySize: family, Alpha: alpha}
	if family == 0 {
		return c
	}
	n := float64(family)
	c.BonfCutoff = alpha / n

	for i := range results {
		p := results[i].Stats.PValue
		results[i].BonferroniSignificant = p < c.BonfCutoff
		results[i].BonferroniPValue = math.Min(1, p*n)
		results[i].FDRSignificant = false
		if results[i].BonferroniSignificant {
			c.Bonferroni++
		}
		if p < alpha {
			c.Naive++
		}
	}

	// Orden ascendente por p-value; el índice original desempata para que
	// el resultado no dependa del orden de llegada de los workers.
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].Stats.PValue < results[order[b]].Stats.PValue
	})

	// Mayor k con p(k) <= k/N * alpha.
	k := 0
	for rank := len(order); rank >= 1; rank-- {
		p := results[order[rank-1]].Stats.PValue
		if p <= float64(rank)/n*alpha {
			k = rank
			c.FDRMaxPValue = p
			break
		}
	}
	for rank := 1; rank <= k; rank++ {
		results[order[rank-1]].FDRSignificant = true
	}
	c.FDR = k

	// q-values step-up: q(i) = min_{j>=i} p(j) * N / j.
	q := 1.0
	for rank := len(order); rank >= 1; rank-- {
		idx := order[rank-1]
		v := results[idx].Stats.PValue * n / float64(rank)
		if v < q {
			q = v
		}
		results[idx].FDRQValue = q
	}
	return c
}
