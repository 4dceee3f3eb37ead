package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	// MinPrice y MaxPrice acotan los precios de un contrato en centavos.
	// 0 y 100 solo aparecen como precio de liquidación, nunca en una vela.
	MinPrice = 1
	MaxPrice = 99

	// CandleInterval es la resolución de las velas que consume el core.
	CandleInterval = time.Minute
)

// PriceObservation es una vela de un minuto del contrato "equipo A gana".
// Los precios están en centavos (1–99) y representan probabilidad implícita.
type PriceObservation struct {
	GameID    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// GameEvent es el estado del marcador en un instante del partido.
// ScoreA es el equipo al que se refiere el contrato.
type GameEvent struct {
	GameID    string
	Timestamp time.Time
	ScoreA    int
	ScoreB    int
	Period    int
	Clock     float64 // segundos restantes en el periodo
}

// Session agrupa las velas (y eventos opcionales) de un mismo partido.
// Invariante tras Validate: velas ordenadas y contiguas a 1 minuto.
type Session struct {
	GameID  string
	Candles []PriceObservation
	Events  []GameEvent

	// Settlement es el precio de liquidación (0 o 100) si se conoce.
	Settlement *float64
}

// Len devuelve el número de velas de la sesión.
func (s Session) Len() int { return len(s.Candles) }

// Start devuelve el timestamp de la primera vela (zero si está vacía).
func (s Session) Start() time.Time {
	if len(s.Candles) == 0 {
		return time.Time{}
	}
	return s.Candles[0].Timestamp
}

// DurationMinutes devuelve los minutos entre la primera y la última vela.
func (s Session) DurationMinutes() int {
	if len(s.Candles) < 2 {
		return 0
	}
	return int(s.Candles[len(s.Candles)-1].Timestamp.Sub(s.Candles[0].Timestamp) / CandleInterval)
}

// History devuelve la sesión truncada al minuto i (inclusive): velas [0, i]
// y eventos con timestamp <= vela i. Es lo único que ve una señal, así
// no hay look-ahead posible.
func (s Session) History(i int) Session {
	if i < 0 {
		return Session{GameID: s.GameID}
	}
	if i >= len(s.Candles) {
		i = len(s.Candles) - 1
	}
	cut := s.Candles[i].Timestamp
	n := sort.Search(len(s.Events), func(k int) bool {
		return s.Events[k].Timestamp.After(cut)
	})
	return Session{
		GameID:  s.GameID,
		Candles: s.Candles[:i+1],
		Events:  s.Events[:n],
	}
}

// LastEvent devuelve el último evento conocido en la sesión (ya truncada).
func (s Session) LastEvent() (GameEvent, bool) {
	if len(s.Events) == 0 {
		return GameEvent{}, false
	}
	return s.Events[len(s.Events)-1], true
}

// Closes devuelve los precios de cierre de la sesión.
func (s Session) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Validate comprueba las invariantes de la serie. No limpia ni interpola:
// una serie con huecos, desordenada o con precios fuera de [1, 99] es un
// problema del colaborador upstream y se reporta tal cual.
func (s Session) Validate() error {
	for i, c := range s.Candles {
		if c.GameID != s.GameID {
			return &MalformedSeriesError{GameID: s.GameID, Index: i,
				Reason: fmt.Sprintf("row belongs to game %q", c.GameID)}
		}
		for _, p := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			if p < MinPrice || p > MaxPrice {
				return &MalformedSeriesError{GameID: s.GameID, Index: i,
					Reason: fmt.Sprintf("price %.2f outside [%d, %d]", p, MinPrice, MaxPrice)}
			}
		}
		if c.Volume < 0 {
			return &MalformedSeriesError{GameID: s.GameID, Index: i, Reason: "negative volume"}
		}
		if i == 0 {
			continue
		}
		step := c.Timestamp.Sub(s.Candles[i-1].Timestamp)
		switch {
		case step <= 0:
			return &MalformedSeriesError{GameID: s.GameID, Index: i, Reason: "non-monotonic timestamp"}
		case step != CandleInterval:
			return &MalformedSeriesError{GameID: s.GameID, Index: i,
				Reason: fmt.Sprintf("gap of %s between candles", step)}
		}
	}
	for i := 1; i < len(s.Events); i++ {
		if s.Events[i].Timestamp.Before(s.Events[i-1].Timestamp) {
			return &MalformedSeriesError{GameID: s.GameID, Index: i, Reason: "events out of order"}
		}
	}
	if s.Settlement != nil && *s.Settlement != 0 && *s.Settlement != 100 {
		return &MalformedSeriesError{GameID: s.GameID, Index: len(s.Candles),
			Reason: fmt.Sprintf("settlement %.2f is neither 0 nor 100", *s.Settlement)}
	}
	return nil
}

// BuildSessions agrupa la tabla de precios por game_id (en orden de primera
// aparición), adjunta eventos y liquidaciones, y valida cada sesión.
// Falla en la primera sesión mal formada.
func BuildSessions(rows []PriceObservation, events []GameEvent, settlements map[string]float64) ([]Session, error) {
	index := make(map[string]int)
	var sessions []Session
	for _, r := range rows {
		k, ok := index[r.GameID]
		if !ok {
			k = len(sessions)
			index[r.GameID] = k
			sessions = append(sessions, Session{GameID: r.GameID})
		}
		sessions[k].Candles = append(sessions[k].Candles, r)
	}
	for _, e := range events {
		if k, ok := index[e.GameID]; ok {
			sessions[k].Events = append(sessions[k].Events, e)
		}
	}
	for k := range sessions {
		if v, ok := settlements[sessions[k].GameID]; ok {
			sessions[k].Settlement = &v
		}
		if err := sessions[k].Validate(); err != nil {
			return nil, fmt.Errorf("domain.BuildSessions: %w", err)
		}
	}
	return sessions, nil
}

// GameFeed es el estado del marcador de un partido en vivo.
type GameFeed struct {
	GameID string
	Events []GameEvent
	Final  bool
}

// Settlement devuelve el precio de liquidación del contrato "equipo A gana"
// si el partido terminó: 100 si ganó A, 0 si no.
func (f GameFeed) Settlement() (float64, bool) {
	if !f.Final || len(f.Events) == 0 {
		return 0, false
	}
	last := f.Events[len(f.Events)-1]
	if last.ScoreA > last.ScoreB {
		return 100, true
	}
	return 0, true
}
