package domain

import (
	"fmt"
	"time"
)

// PriceRange es el rango de precio de entrada elegible, en centavos.
type PriceRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains indica si p está en [Min, Max].
func (r PriceRange) Contains(p float64) bool { return p >= r.Min && p <= r.Max }

func (r PriceRange) String() string { return fmt.Sprintf("%.0f-%.0fc", r.Min, r.Max) }

// StrategyParameters es un punto del grid de búsqueda.
type StrategyParameters struct {
	PriceMin      float64
	PriceMax      float64
	MoveThreshold float64 // centavos, |Δ1| estricto
	HoldPeriod    int     // minutos
}

// Validate comprueba 1 <= min < max <= 99, threshold >= 0 y hold >= 1.
func (p StrategyParameters) Validate() error {
	if p.PriceMin < MinPrice || p.PriceMax > MaxPrice || p.PriceMin >= p.PriceMax {
		return fmt.Errorf("%w: price range %.2f-%.2f", ErrInvalidParameters, p.PriceMin, p.PriceMax)
	}
	if p.MoveThreshold < 0 {
		return fmt.Errorf("%w: move threshold %.2f", ErrInvalidParameters, p.MoveThreshold)
	}
	if p.HoldPeriod < 1 {
		return fmt.Errorf("%w: hold period %d", ErrInvalidParameters, p.HoldPeriod)
	}
	return nil
}

// Name es la etiqueta corta usada en tablas y en la base de datos.
func (p StrategyParameters) Name() string {
	return fmt.Sprintf("P%.0f-%.0f M%g H%dm", p.PriceMin, p.PriceMax, p.MoveThreshold, p.HoldPeriod)
}

// Interval es un intervalo de confianza cerrado.
type Interval struct {
	Low  float64
	High float64
}

// Contains indica si x cae dentro del intervalo.
func (i Interval) Contains(x float64) bool { return x >= i.Low && x <= i.High }

// StatsBundle agrupa todas las métricas de un conjunto de trades.
// Ningún campo es NaN ni Inf: los casos indefinidos quedan a 0 con flag.
type StatsBundle struct {
	N       int
	Wins    int
	Losses  int
	WinRate float64
	// WinRateCI es el intervalo de Wilson al nivel de confianza configurado.
	WinRateCI Interval

	TotalGrossPL float64
	TotalFees    float64
	TotalNetPL   float64
	MeanNetPL    float64
	MedianNetPL  float64
	StdNetPL     float64 // desviación muestral (n-1)
	AvgWin       float64
	AvgLoss      float64
	ProfitFactor float64 // 0 si no hay pérdidas (ver ProfitFactorUnbounded)
	WinLossRatio float64

	ProfitFactorUnbounded bool

	SharpeRatio float64
	CohensD     float64
	// Degenerate indica varianza cero (o n < 2): Sharpe, d y t quedan a 0.
	Degenerate bool

	TStatistic     float64
	PValue         float64 // t-test de una muestra contra media 0
	WinRatePValue  float64 // binomial exacto contra p = 0.5
	MaxDrawdown    float64 // <= 0, en dólares
	BootstrapCI    Interval
	SharpeCI       Interval
	ProbProfitable float64 // fracción de remuestreos con media > 0

	GamesTraded   int
	TradesPerGame float64
}

// Robustness es el resultado del chequeo temporal primera vs segunda mitad.
// Es una señal heurística: no rechazar medias iguales no prueba estabilidad.
type Robustness struct {
	FirstHalfMean  float64
	FirstHalfN     int
	SecondHalfMean float64
	SecondHalfN    int
	TStatistic     float64
	PValue         float64
	Consistent     bool
	// Evaluable es false si alguna mitad quedó vacía o no hay grados de libertad.
	Evaluable bool
}

// StrategyResult es la salida de una celda del grid.
// Los flags de corrección se rellenan solo cuando todo el batch tiene p-value.
type StrategyResult struct {
	Params     StrategyParameters
	Signal     string // nombre de la señal; en reglas coincide con Params.Name()
	Trades     []Trade
	Stats      StatsBundle
	Robustness Robustness

	BonferroniSignificant bool
	FDRSignificant        bool
	BonferroniPValue      float64 // p × N, acotado a 1
	FDRQValue             float64 // BH step-up ajustado
}

// SearchSummary es lo que ve el operador al final de un grid.
type SearchSummary struct {
	CellsAttempted        int
	CellsInsufficientData int
	CellsValid            int
	BonferroniSignificant int
	FDRSignificant        int
	NaiveSignificant      int // p < alpha sin corrección, para comparar
	FamilySize            int
	Alpha                 float64
	Elapsed               time.Duration
}

// SearchRun es un grid completo listo para persistir.
type SearchRun struct {
	ID        string
	StartedAt time.Time
	Games     int
	Summary   SearchSummary
	Results   []StrategyResult
}
