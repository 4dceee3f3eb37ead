package domain

// Tasas por defecto del schedule de Kalshi para mercados NBA.
const (
	DefaultTakerRate = 0.07
	DefaultMakerRate = 0.0175
)

// FeeSchedule es el schedule de fees basado en riesgo del exchange.
// Se inyecta desde config para poder re-testear con otros schedules.
type FeeSchedule struct {
	TakerRate float64
	MakerRate float64
}

// DefaultFeeSchedule devuelve el schedule publicado para contratos NBA.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{TakerRate: DefaultTakerRate, MakerRate: DefaultMakerRate}
}

// Fee calcula el fee de una pierna en dólares.
//
// Fórmula: fee = rate × contracts × p × (1 − p), con p = price / 100.
//   - máximo en p = 0.5, tiende a 0 en los extremos
//   - 0 para precios fuera de (0, 100): la liquidación automática no paga fee
func (f FeeSchedule) Fee(contracts int, priceCents float64, isTaker bool) float64 {
	if contracts <= 0 || priceCents <= 0 || priceCents >= 100 {
		return 0
	}
	rate := f.MakerRate
	if isTaker {
		rate = f.TakerRate
	}
	p := priceCents / 100
	return rate * float64(contracts) * p * (1 - p)
}

// ExitFee es el fee de la pierna de salida. Una salida manual siempre paga
// fee taker; mantener hasta liquidación no paga nada.
func (f FeeSchedule) ExitFee(contracts int, priceCents float64, settled bool) float64 {
	if settled {
		return 0
	}
	return f.Fee(contracts, priceCents, true)
}

// RoundTripCost asume ambas piernas taker (conservador: cruzan el spread).
func (f FeeSchedule) RoundTripCost(contracts int, entryPrice, exitPrice float64) float64 {
	return f.Fee(contracts, entryPrice, true) + f.Fee(contracts, exitPrice, true)
}

// BreakEvenEdge devuelve el movimiento mínimo, en puntos porcentuales del
// valor de la posición, necesario para cubrir un round trip al mismo precio.
func (f FeeSchedule) BreakEvenEdge(priceCents float64, contracts int) float64 {
	if contracts <= 0 || priceCents <= 0 || priceCents >= 100 {
		return 0
	}
	positionValue := float64(contracts) * priceCents / 100
	return f.RoundTripCost(contracts, priceCents, priceCents) / positionValue * 100
}
