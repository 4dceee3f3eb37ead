package stats

import (
	"github.com/alejandrodnm/fadebot/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// ConsistencyAlpha es el umbral del chequeo temporal: p > 0.05 ⇒ consistente.
const ConsistencyAlpha = 0.05

// CheckRobustness parte los trades en primera y segunda mitad del partido
// (minuto de entrada frente a la mitad de la duración de su sesión) y compara
// el P&L neto de ambas mitades con un t-test de dos muestras.
//
// Es una heurística: no rechazar la igualdad de medias no demuestra que el
// edge sea estable, solo que los datos no muestran lo contrario.
// Sin trades en alguna mitad el chequeo no es evaluable y Consistent = false.
func CheckRobustness(trades []domain.Trade) domain.Robustness {
	var first, second []float64
	for _, t := range trades {
		if t.SessionMinute < t.SessionDuration/2 {
			first = append(first, t.NetPL)
		} else {
			second = append(second, t.NetPL)
		}
	}
	r := domain.Robustness{FirstHalfN: len(first), SecondHalfN: len(second), PValue: 1}
	if len(first) > 0 {
		r.FirstHalfMean = stat.Mean(first, nil)
	}
	if len(second) > 0 {
		r.SecondHalfMean = stat.Mean(second, nil)
	}
	if len(first) == 0 || len(second) == 0 || len(first)+len(second) < 3 {
		return r
	}

	t := TwoSampleT(first, second)
	r.TStatistic, r.PValue = t.T, t.P
	r.Evaluable = true
	r.Consistent = t.P > ConsistencyAlpha
	return r
}
