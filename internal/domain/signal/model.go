package signal

import (
	"fmt"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// Predictor es el subconjunto del modelo ML que usa ModelSignal.
// Lo implementa adapters/model; el entrenamiento vive fuera de este repo.
type Predictor interface {
	// EntryProbability devuelve P(trade ganador | features) en [0, 1].
	EntryProbability(f domain.FeatureVector) float64
	// HoldMinutes sugiere cuánto mantener la posición; 0 = sin sugerencia.
	HoldMinutes(f domain.FeatureVector) int
}

// Model dispara cuando la probabilidad del modelo supera el umbral.
type Model struct {
	predictor Predictor
	threshold float64
	// Range opcional: fuera de este rango no se consulta al modelo.
	priceRange domain.PriceRange
	label      string
}

// NewModel crea una señal basada en modelo. threshold debe estar en (0, 1].
func NewModel(p Predictor, threshold float64, priceRange domain.PriceRange, label string) (*Model, error) {
	if p == nil {
		return nil, fmt.Errorf("signal.NewModel: nil predictor")
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("signal.NewModel: threshold %.3f outside (0, 1]", threshold)
	}
	if priceRange.Max == 0 {
		priceRange = domain.PriceRange{Min: domain.MinPrice, Max: domain.MaxPrice}
	}
	if label == "" {
		label = fmt.Sprintf("ML p>=%.2f", threshold)
	}
	return &Model{predictor: p, threshold: threshold, priceRange: priceRange, label: label}, nil
}

// Evaluate extrae el FeatureVector de la historia y consulta al modelo.
func (m *Model) Evaluate(h domain.Session) (Entry, bool) {
	n := len(h.Candles)
	if n < 2 {
		return Entry{}, false
	}
	if !m.priceRange.Contains(h.Candles[n-1].Close) {
		return Entry{}, false
	}
	f := domain.ExtractFeatures(h)
	prob := m.predictor.EntryProbability(f)
	if prob < m.threshold {
		return Entry{}, false
	}
	return Entry{
		Probability: prob,
		HoldPeriod:  m.predictor.HoldMinutes(f),
		Reason:      fmt.Sprintf("model p=%.3f (threshold %.2f)", prob, m.threshold),
	}, true
}

// Name devuelve la etiqueta de la señal.
func (m *Model) Name() string { return m.label }
