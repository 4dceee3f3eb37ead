package engine

import (
	"fmt"

	"github.com/alejandrodnm/fadebot/internal/application/backtest"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
)

// Strategy es una señal lista para correr en vivo, con su hold por defecto.
type Strategy struct {
	Name   string
	Signal signal.Signal
	Hold   int
}

// FromResults convierte los resultados validados de un grid en estrategias
// ejecutables, aplicando criteria. Las señales de modelo no salen de un grid:
// para esas se usa FromSignal.
func FromResults(results []domain.StrategyResult, criteria backtest.Criteria) ([]Strategy, error) {
	selected := backtest.SelectValidated(results, criteria)
	out := make([]Strategy, 0, len(selected))
	for _, r := range selected {
		rule, err := signal.NewRule(r.Params)
		if err != nil {
			return nil, fmt.Errorf("engine.FromResults: %s: %w", r.Signal, err)
		}
		out = append(out, Strategy{Name: rule.Name(), Signal: rule, Hold: r.Params.HoldPeriod})
	}
	return out, nil
}

// FromSignal envuelve una señal arbitraria con hold por defecto.
func FromSignal(sig signal.Signal, hold int) Strategy {
	return Strategy{Name: sig.Name(), Signal: sig, Hold: hold}
}
