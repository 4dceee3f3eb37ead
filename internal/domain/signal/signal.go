package signal

import (
	"fmt"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// Entry es lo que devuelve una señal cuando dispara. La dirección no viaja
// aquí: el simulador siempre hace fade del último movimiento.
type Entry struct {
	// Probability es la confianza del modelo; 1 para reglas.
	Probability float64
	// HoldPeriod sugerido en minutos; 0 = usar el del caller.
	HoldPeriod int
	Reason     string
}

// Signal define el contrato de una fuente de señales de entrada.
// El simulador es agnóstico al origen: reglas o modelo.
type Signal interface {
	// Evaluate mira la historia h (velas [0, i] de un partido) y decide si
	// hay entrada en el último minuto. Nunca ve datos posteriores a i.
	Evaluate(h domain.Session) (Entry, bool)
	Name() string
}

// Rule es la señal mean-reversion basada en rango de precio + umbral de
// movimiento de 1 minuto.
type Rule struct {
	Params domain.StrategyParameters
}

// NewRule crea una Rule validando los parámetros.
func NewRule(p domain.StrategyParameters) (*Rule, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("signal.NewRule: %w", err)
	}
	return &Rule{Params: p}, nil
}

// Evaluate dispara si price[t] ∈ [min, max] y |price[t] − price[t−1]| > threshold.
func (r *Rule) Evaluate(h domain.Session) (Entry, bool) {
	n := len(h.Candles)
	if n < 2 {
		return Entry{}, false
	}
	price := h.Candles[n-1].Close
	move := price - h.Candles[n-2].Close
	if price < r.Params.PriceMin || price > r.Params.PriceMax {
		return Entry{}, false
	}
	if abs(move) <= r.Params.MoveThreshold {
		return Entry{}, false
	}
	return Entry{
		Probability: 1,
		HoldPeriod:  r.Params.HoldPeriod,
		Reason:      fmt.Sprintf("moved %+.1fc (threshold %.1fc)", move, r.Params.MoveThreshold),
	}, true
}

// Name devuelve la etiqueta de los parámetros.
func (r *Rule) Name() string { return r.Params.Name() }

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
