package domain

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// FeatureSchemaVersion identifica el layout de FeatureVector. Un modelo
// entrenado con otra versión no se puede cargar.
const FeatureSchemaVersion = 1

// Constantes de partido NBA usadas por las features de estado.
const (
	MinutesPerPeriod   = 12
	RegulationPeriods  = 4
	RegulationMinutes  = MinutesPerPeriod * RegulationPeriods
	closeGameMargin    = 5
	blowoutMargin      = 15
	lateGameMinutes    = 5
	extremeLowPrice    = 10
	extremeHighPrice   = 90
)

// FeatureVector es el schema v1 de features, compartido por el backtest
// (ModelSignal) y el paper trading.
//
// Política de defaults, única para todo el schema: una feature que necesita
// más historia de la disponible (o un marcador que aún no existe) vale 0.
type FeatureVector struct {
	Close        float64 `yaml:"close"`
	Move1        float64 `yaml:"move_1"` // Δ close en centavos, 1 minuto
	Move3        float64 `yaml:"move_3"`
	Move5        float64 `yaml:"move_5"`
	Move10       float64 `yaml:"move_10"`
	Volatility5  float64 `yaml:"volatility_5"` // std muestral de los últimos 5 cierres
	Volatility10 float64 `yaml:"volatility_10"`
	Range5       float64 `yaml:"range_5"`
	Volume       float64 `yaml:"volume"`
	VolumeMA5    float64 `yaml:"volume_ma_5"`

	ScoreDiff     float64 `yaml:"score_diff"` // A - B
	ScoreDiffAbs  float64 `yaml:"score_diff_abs"`
	ScoreTotal    float64 `yaml:"score_total"`
	ScoreDiff3    float64 `yaml:"score_diff_3"` // cambio del diferencial en 3 minutos
	ScoringRate3  float64 `yaml:"scoring_rate_3"`
	Period        float64 `yaml:"period"`
	MinutesPlayed float64 `yaml:"minutes_played"`
	TimeRemaining float64 `yaml:"time_remaining"`

	IsCloseGame    float64 `yaml:"is_close_game"`
	IsBlowout      float64 `yaml:"is_blowout"`
	IsLateGame     float64 `yaml:"is_late_game"`
	IsCrunchTime   float64 `yaml:"is_crunch_time"`
	IsExtremePrice float64 `yaml:"is_extreme_price"`
	IsMidPrice     float64 `yaml:"is_mid_price"`
}

// FeatureNames devuelve los nombres del schema en el orden de Values.
func FeatureNames() []string {
	return []string{
		"close", "move_1", "move_3", "move_5", "move_10",
		"volatility_5", "volatility_10", "range_5", "volume", "volume_ma_5",
		"score_diff", "score_diff_abs", "score_total", "score_diff_3", "scoring_rate_3",
		"period", "minutes_played", "time_remaining",
		"is_close_game", "is_blowout", "is_late_game", "is_crunch_time",
		"is_extreme_price", "is_mid_price",
	}
}

// Values devuelve el vector en el orden de FeatureNames.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.Close, v.Move1, v.Move3, v.Move5, v.Move10,
		v.Volatility5, v.Volatility10, v.Range5, v.Volume, v.VolumeMA5,
		v.ScoreDiff, v.ScoreDiffAbs, v.ScoreTotal, v.ScoreDiff3, v.ScoringRate3,
		v.Period, v.MinutesPlayed, v.TimeRemaining,
		v.IsCloseGame, v.IsBlowout, v.IsLateGame, v.IsCrunchTime,
		v.IsExtremePrice, v.IsMidPrice,
	}
}

// ExtractFeatures calcula el vector para el último minuto de h.
// h debe ser ya una historia (Session.History), nunca la sesión completa.
func ExtractFeatures(h Session) FeatureVector {
	var v FeatureVector
	n := len(h.Candles)
	if n == 0 {
		return v
	}
	closes := h.Closes()
	last := closes[n-1]

	v.Close = last
	v.Move1 = move(closes, 1)
	v.Move3 = move(closes, 3)
	v.Move5 = move(closes, 5)
	v.Move10 = move(closes, 10)
	v.Volatility5 = rollingStd(closes, 5)
	v.Volatility10 = rollingStd(closes, 10)
	if n >= 5 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, c := range closes[n-5:] {
			lo, hi = math.Min(lo, c), math.Max(hi, c)
		}
		v.Range5 = hi - lo
	}
	v.Volume = float64(h.Candles[n-1].Volume)
	if n >= 5 {
		var sum float64
		for _, c := range h.Candles[n-5:] {
			sum += float64(c.Volume)
		}
		v.VolumeMA5 = sum / 5
	}

	if ev, ok := h.LastEvent(); ok {
		diff := float64(ev.ScoreA - ev.ScoreB)
		v.ScoreDiff = diff
		v.ScoreDiffAbs = math.Abs(diff)
		v.ScoreTotal = float64(ev.ScoreA + ev.ScoreB)
		v.Period = float64(ev.Period)
		v.MinutesPlayed = minutesPlayed(ev)
		v.TimeRemaining = math.Max(RegulationMinutes-v.MinutesPlayed, 0)

		if prev, ok := eventBefore(h, 3); ok {
			v.ScoreDiff3 = diff - float64(prev.ScoreA-prev.ScoreB)
			v.ScoringRate3 = (v.ScoreTotal - float64(prev.ScoreA+prev.ScoreB)) / 3
		}
		v.IsCloseGame = flag(v.ScoreDiffAbs <= closeGameMargin)
		v.IsBlowout = flag(v.ScoreDiffAbs >= blowoutMargin)
		v.IsLateGame = flag(v.TimeRemaining <= lateGameMinutes)
		v.IsCrunchTime = flag(v.IsLateGame == 1 && v.IsCloseGame == 1)
	}

	v.IsExtremePrice = flag(last <= extremeLowPrice || last >= extremeHighPrice)
	v.IsMidPrice = flag(last > 40 && last < 60)
	return v
}

func move(closes []float64, k int) float64 {
	n := len(closes)
	if n <= k {
		return 0
	}
	return closes[n-1] - closes[n-1-k]
}

func rollingStd(closes []float64, k int) float64 {
	if len(closes) < k || k < 2 {
		return 0
	}
	return stat.StdDev(closes[len(closes)-k:], nil)
}

// minutesPlayed traduce periodo + reloj a minutos jugados de partido.
// Las prórrogas (periodo > 4) duran 5 minutos.
func minutesPlayed(ev GameEvent) float64 {
	if ev.Period <= 0 {
		return 0
	}
	if ev.Period <= RegulationPeriods {
		return float64(ev.Period-1)*MinutesPerPeriod + (MinutesPerPeriod - ev.Clock/60)
	}
	ot := ev.Period - RegulationPeriods
	return RegulationMinutes + float64(ot-1)*5 + (5 - ev.Clock/60)
}

// eventBefore devuelve el último evento con timestamp <= última vela - k minutos.
func eventBefore(h Session, k int) (GameEvent, bool) {
	n := len(h.Candles)
	if n <= k {
		return GameEvent{}, false
	}
	cut := h.Candles[n-1-k].Timestamp
	for i := len(h.Events) - 1; i >= 0; i-- {
		if !h.Events[i].Timestamp.After(cut) {
			return h.Events[i], true
		}
	}
	return GameEvent{}, false
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
