// Package backtest simula la estrategia fade sobre series históricas y
// barre el grid de parámetros con validación estadística.
package backtest

import (
	"fmt"
	"sort"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
)

// DefaultContracts es el tamaño de posición por trade.
const DefaultContracts = 100

// SimConfig parametriza el simulador.
type SimConfig struct {
	Contracts int
	Fees      domain.FeeSchedule
	// HoldToSettlement mantiene cada posición hasta la liquidación conocida
	// (sin fee de salida) en vez de salir tras hold_period.
	HoldToSettlement bool
}

// DefaultSimConfig devuelve 100 contratos y el schedule de fees publicado.
func DefaultSimConfig() SimConfig {
	return SimConfig{Contracts: DefaultContracts, Fees: domain.DefaultFeeSchedule()}
}

// Simulate recorre cada sesión minuto a minuto y ejecuta las entradas de sig.
//
// Reglas:
//   - como máximo una posición abierta por partido; señales con posición
//     abierta se ignoran y la siguiente entrada se busca tras el minuto de salida
//   - dirección siempre fade del último movimiento; movimiento 0 no entra
//   - salida en t + hold o al final de la serie (SESSION_END), o al precio de
//     liquidación si se conoce (SETTLEMENT, sin fee de salida)
//   - una señal en el último minuto no tiene precio siguiente y se descarta
//
// hold es el hold por defecto; una señal que sugiere su propio hold manda.
// Devuelve los trades ordenados por entry_time. Una serie mal formada aborta
// con un error que envuelve domain.ErrMalformedSeries.
func Simulate(sessions []domain.Session, sig signal.Signal, hold int, cfg SimConfig) ([]domain.Trade, error) {
	if sig == nil {
		return nil, fmt.Errorf("backtest.Simulate: %w: nil signal", domain.ErrInvalidParameters)
	}
	if cfg.Contracts <= 0 {
		return nil, fmt.Errorf("backtest.Simulate: %w: contracts %d", domain.ErrInvalidParameters, cfg.Contracts)
	}
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("backtest.Simulate: %w", err)
		}
	}
	return simulateValidated(sessions, sig, hold, cfg), nil
}

// simulateValidated es Simulate sin la validación, para el grid, que valida
// una sola vez antes de lanzar las celdas.
func simulateValidated(sessions []domain.Session, sig signal.Signal, hold int, cfg SimConfig) []domain.Trade {
	var trades []domain.Trade
	for _, s := range sessions {
		trades = append(trades, simulateSession(s, sig, hold, cfg)...)
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].EntryTime.Before(trades[j].EntryTime)
	})
	return trades
}

// simulateSession asume una sesión ya validada.
func simulateSession(s domain.Session, sig signal.Signal, hold int, cfg SimConfig) []domain.Trade {
	last := len(s.Candles) - 1
	if last < 1 {
		return nil
	}
	duration := s.DurationMinutes()

	var trades []domain.Trade
	for i := 1; i < last; i++ {
		entry, ok := sig.Evaluate(s.History(i))
		if !ok {
			continue
		}
		move := s.Candles[i].Close - s.Candles[i-1].Close
		if move == 0 {
			continue
		}
		h := hold
		if entry.HoldPeriod > 0 {
			h = entry.HoldPeriod
		}
		if h < 1 && !cfg.HoldToSettlement {
			continue
		}

		exitIdx, exitPrice, reason := exitFor(s, i, h, cfg.HoldToSettlement)
		c := s.Candles[i]
		t := domain.NewTrade(cfg.Fees, s.GameID, domain.FadeDirection(move), cfg.Contracts,
			c.Timestamp, c.Close, s.Candles[exitIdx].Timestamp, exitPrice, reason)
		t.SessionMinute = i
		t.SessionDuration = duration
		t.Probability = entry.Probability
		trades = append(trades, t)

		// El minuto de salida no admite entrada nueva.
		i = exitIdx
	}
	return trades
}

// exitFor resuelve índice, precio y motivo de salida para una entrada en i.
func exitFor(s domain.Session, i, hold int, toSettlement bool) (int, float64, domain.ExitReason) {
	last := len(s.Candles) - 1
	if toSettlement || i+hold > last {
		if s.Settlement != nil {
			return last, *s.Settlement, domain.ExitSettlement
		}
		return last, s.Candles[last].Close, domain.ExitSessionEnd
	}
	return i + hold, s.Candles[i+hold].Close, domain.ExitHoldElapsed
}
