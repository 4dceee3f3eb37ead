package domain

import "time"

// Direction es el lado de la posición respecto al contrato "equipo A gana".
type Direction int

const (
	// Long gana si el precio sube (se compra YES).
	Long Direction = 1
	// Short gana si el precio baja (equivale a comprar NO).
	Short Direction = -1
)

func (d Direction) String() string {
	if d == Short {
		return "SHORT"
	}
	return "LONG"
}

// FadeDirection devuelve la dirección mean-reversion para un movimiento:
// si el precio subió se apuesta a que baje y viceversa. Política fija.
func FadeDirection(move float64) Direction {
	if move > 0 {
		return Short
	}
	return Long
}

// ExitReason explica por qué se cerró un trade.
type ExitReason string

const (
	ExitHoldElapsed ExitReason = "HOLD_ELAPSED" // pasó hold_period
	ExitSessionEnd  ExitReason = "SESSION_END"  // se acabó la serie, cierre al último precio
	ExitSettlement  ExitReason = "SETTLEMENT"   // liquidación a 0/100, sin fee de salida
)

// Trade es el resultado inmutable de un round trip simulado.
type Trade struct {
	GameID     string
	Direction  Direction
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64 // centavos
	ExitPrice  float64 // centavos (0/100 si liquidó)
	Contracts  int
	ExitReason ExitReason

	// Points es la captura en centavos por contrato, con signo, antes de fees.
	Points  float64
	GrossPL float64 // dólares
	Fees    float64 // entrada + salida, siempre >= 0
	NetPL   float64 // GrossPL - Fees

	// Posición temporal dentro del partido, para el chequeo de robustez.
	SessionMinute   int // minutos desde la primera vela hasta la entrada
	SessionDuration int // minutos totales de la sesión
	Probability     float64
}

// IsWinner es la única definición de "ganador": net_pl > 0.
func (t Trade) IsWinner() bool { return t.NetPL > 0 }

// HoldMinutes devuelve la duración del trade.
func (t Trade) HoldMinutes() int {
	return int(t.ExitTime.Sub(t.EntryTime) / time.Minute)
}

// NewTrade construye un Trade aplicando dirección y fees.
// settled indica salida por liquidación (sin fee de salida).
func NewTrade(fees FeeSchedule, gameID string, dir Direction, contracts int,
	entryTime time.Time, entryPrice float64,
	exitTime time.Time, exitPrice float64, reason ExitReason) Trade {
	points := (exitPrice - entryPrice) * float64(dir)
	gross := points / 100 * float64(contracts)
	fee := fees.Fee(contracts, entryPrice, true) + fees.ExitFee(contracts, exitPrice, reason == ExitSettlement)
	return Trade{
		GameID:     gameID,
		Direction:  dir,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Contracts:  contracts,
		ExitReason: reason,
		Points:     points,
		GrossPL:    gross,
		Fees:       fee,
		NetPL:      gross - fee,
	}
}

// NetPLs extrae los net_pl en orden.
func NetPLs(trades []Trade) []float64 {
	out := make([]float64, len(trades))
	for i, t := range trades {
		out[i] = t.NetPL
	}
	return out
}
