package stats

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// BootstrapResult resume el remuestreo de la media de P&L.
type BootstrapResult struct {
	MeanCI         domain.Interval
	SharpeCI       domain.Interval
	ProbProfitable float64
	Samples        int
}

// Bootstrap remuestrea x con reemplazo `samples` veces. El generador es un
// PCG sembrado con seed: misma entrada y misma semilla, mismo resultado.
// Con menos de 2 observaciones o samples == 0 devuelve intervalos vacíos.
func Bootstrap(x []float64, samples int, confidence, sessionsPerYear float64, seed uint64) BootstrapResult {
	n := len(x)
	if n < 2 || samples <= 0 {
		return BootstrapResult{}
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	annual := math.Sqrt(sessionsPerYear)

	means := make([]float64, samples)
	sharpes := make([]float64, samples)
	resample := make([]float64, n)
	profitable := 0
	for s := 0; s < samples; s++ {
		for i := range resample {
			resample[i] = x[rng.IntN(n)]
		}
		m, sd := stat.MeanStdDev(resample, nil)
		means[s] = m
		if sd > 0 {
			sharpes[s] = m / sd * annual
		}
		if m > 0 {
			profitable++
		}
	}

	lo := (1 - confidence) / 2
	hi := 1 - lo
	return BootstrapResult{
		MeanCI:         percentiles(means, lo, hi),
		SharpeCI:       percentiles(sharpes, lo, hi),
		ProbProfitable: float64(profitable) / float64(samples),
		Samples:        samples,
	}
}

func percentiles(v []float64, lo, hi float64) domain.Interval {
	sort.Float64s(v)
	return domain.Interval{
		Low:  stat.Quantile(lo, stat.LinInterp, v, nil),
		High: stat.Quantile(hi, stat.LinInterp, v, nil),
	}
}
