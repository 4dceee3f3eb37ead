package domain_test

import (
	"testing"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFee_Formula(t *testing.T) {
	f := domain.DefaultFeeSchedule()

	// 0.07 × 10 × 0.5 × 0.5
	assert.InDelta(t, 0.175, f.Fee(10, 50, true), 1e-12)
	// 0.0175 × 10 × 0.5 × 0.5
	assert.InDelta(t, 0.04375, f.Fee(10, 50, false), 1e-12)
	// 0.07 × 1 × 0.2 × 0.8
	assert.InDelta(t, 0.0112, f.Fee(1, 20, true), 1e-12)
}

func TestFee_PeaksAtMidpoint(t *testing.T) {
	f := domain.DefaultFeeSchedule()
	peak := f.Fee(100, 50, true)
	for p := 1.0; p <= 99; p++ {
		assert.LessOrEqual(t, f.Fee(100, p, true), peak+1e-12, "price %.0f", p)
	}
	// Simétrica alrededor de 50.
	assert.InDelta(t, f.Fee(100, 30, true), f.Fee(100, 70, true), 1e-12)
	// Crece hacia el centro.
	assert.Less(t, f.Fee(100, 10, true), f.Fee(100, 30, true))
	assert.Less(t, f.Fee(100, 95, true), f.Fee(100, 80, true))
}

func TestFee_TakerAtLeastMaker(t *testing.T) {
	f := domain.DefaultFeeSchedule()
	for _, p := range []float64{1, 15, 50, 85, 99} {
		assert.GreaterOrEqual(t, f.Fee(25, p, true), f.Fee(25, p, false))
	}
}

func TestFee_Boundaries(t *testing.T) {
	f := domain.DefaultFeeSchedule()
	assert.Equal(t, 0.0, f.Fee(10, 0, true))
	assert.Equal(t, 0.0, f.Fee(10, 100, true))
	assert.Equal(t, 0.0, f.Fee(10, -5, true))
	assert.Equal(t, 0.0, f.Fee(0, 50, true))
}

func TestExitFee_Settlement(t *testing.T) {
	f := domain.DefaultFeeSchedule()
	assert.Equal(t, 0.0, f.ExitFee(10, 60, true))
	assert.InDelta(t, f.Fee(10, 60, true), f.ExitFee(10, 60, false), 1e-12)
}

func TestRoundTripAndBreakEven(t *testing.T) {
	f := domain.DefaultFeeSchedule()
	rt := f.RoundTripCost(10, 50, 50)
	assert.InDelta(t, 0.35, rt, 1e-12)
	// 0.35 / (10 × 0.50) = 7%
	assert.InDelta(t, 7.0, f.BreakEvenEdge(50, 10), 1e-9)
	assert.Equal(t, 0.0, f.BreakEvenEdge(0, 10))
	// Más barato en los extremos en términos absolutos, pero caro en relativo.
	assert.Greater(t, f.BreakEvenEdge(50, 10), f.BreakEvenEdge(90, 10))
}

func TestNewTrade(t *testing.T) {
	f := domain.DefaultFeeSchedule()
	entry := t0
	exit := t0.Add(2 * domainMinute)

	short := domain.NewTrade(f, "G1", domain.Short, 10, entry, 60, exit, 58, domain.ExitHoldElapsed)
	assert.InDelta(t, 2.0, short.Points, 1e-12)
	assert.InDelta(t, 0.2, short.GrossPL, 1e-12)
	assert.InDelta(t, f.Fee(10, 60, true)+f.Fee(10, 58, true), short.Fees, 1e-12)
	assert.InDelta(t, short.GrossPL-short.Fees, short.NetPL, 1e-12)
	assert.Equal(t, 2, short.HoldMinutes())

	long := domain.NewTrade(f, "G1", domain.Long, 10, entry, 40, exit, 100, domain.ExitSettlement)
	assert.InDelta(t, 60.0, long.Points, 1e-12)
	assert.InDelta(t, f.Fee(10, 40, true), long.Fees, 1e-12)
	assert.True(t, long.IsWinner())
}

func TestFadeDirection(t *testing.T) {
	assert.Equal(t, domain.Short, domain.FadeDirection(6))
	assert.Equal(t, domain.Long, domain.FadeDirection(-6))
	assert.Equal(t, "SHORT", domain.Short.String())
	assert.Equal(t, "LONG", domain.Long.String())
}
