package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// binomRelErr es la tolerancia relativa del test binomial exacto para
// agrupar resultados igual de probables que el observado.
const binomRelErr = 1 + 1e-7

// TTest es el resultado de un t-test. Degenerate indica que la varianza era
// cero (o no había grados de libertad) y los valores son sentinelas.
type TTest struct {
	T          float64
	P          float64
	DF         float64
	Degenerate bool
}

// OneSampleT contrasta H0: media = mu con un t-test de dos colas.
// Con varianza cero no hay estadístico definido: devuelve t = 0, p = 1
// (nunca se declara significativo algo que no se puede medir).
func OneSampleT(x []float64, mu float64) TTest {
	n := float64(len(x))
	if len(x) < 2 {
		return TTest{P: 1, Degenerate: true}
	}
	mean, sd := stat.MeanStdDev(x, nil)
	if sd == 0 || math.IsNaN(sd) {
		return TTest{P: 1, DF: n - 1, Degenerate: true}
	}
	t := (mean - mu) / (sd / math.Sqrt(n))
	return TTest{T: t, P: twoSidedT(t, n-1), DF: n - 1}
}

// TwoSampleT es el t-test de Student con varianza combinada (pooled)
// (grados de libertad n1 + n2 - 2).
func TwoSampleT(a, b []float64) TTest {
	na, nb := float64(len(a)), float64(len(b))
	df := na + nb - 2
	if len(a) == 0 || len(b) == 0 || df < 1 {
		return TTest{P: 1, Degenerate: true}
	}
	ma, va := meanVar(a)
	mb, vb := meanVar(b)
	pooled := ((na-1)*va + (nb-1)*vb) / df
	if pooled == 0 {
		return TTest{P: 1, DF: df, Degenerate: true}
	}
	t := (ma - mb) / math.Sqrt(pooled*(1/na+1/nb))
	return TTest{T: t, P: twoSidedT(t, df), DF: df}
}

// BinomialTwoSided es el test binomial exacto de dos colas (k éxitos en n
// con probabilidad p). El p-value suma todos los resultados con pmf menor o
// igual que la del observado.
func BinomialTwoSided(k, n int, p float64) float64 {
	if n <= 0 {
		return 1
	}
	if float64(k) == p*float64(n) {
		return 1
	}
	dist := distuv.Binomial{N: float64(n), P: p}
	d := dist.Prob(float64(k)) * binomRelErr
	var pval float64
	for i := 0; i <= n; i++ {
		if pi := dist.Prob(float64(i)); pi <= d {
			pval += pi
		}
	}
	return math.Min(pval, 1)
}

// Wilson devuelve el intervalo de Wilson para k éxitos en n al nivel de
// confianza dado. A diferencia de la aproximación normal, no se sale de
// [0, 1] ni colapsa cuando la proporción está cerca de 0 o 1.
func Wilson(k, n int, confidence float64) (low, high float64) {
	if n <= 0 {
		return 0, 0
	}
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	nf := float64(n)
	phat := float64(k) / nf
	z2 := z * z
	denom := 1 + z2/nf
	center := (phat + z2/(2*nf)) / denom
	half := z / denom * math.Sqrt(phat*(1-phat)/nf+z2/(4*nf*nf))
	return math.Max(0, center-half), math.Min(1, center+half)
}

func twoSidedT(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.Survival(math.Abs(t)))
}

func meanVar(x []float64) (mean, variance float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanVariance(x, nil)
}
