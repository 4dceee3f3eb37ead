package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
	"github.com/alejandrodnm/fadebot/internal/domain/stats"
	"github.com/google/uuid"
)

// ErrGridTooLarge indica que el producto cartesiano supera SearchConfig.MaxCells.
var ErrGridTooLarge = errors.New("grid exceeds max cells")

// Defaults del grid.
const (
	DefaultMinTrades = 10
	DefaultMaxCells  = 5000
)

// FamilyMode decide qué N usa la corrección por comparaciones múltiples.
type FamilyMode string

const (
	// FamilyAttempted corrige sobre todas las celdas probadas, incluidas las
	// que no llegaron a min_trades (cuentan como p = 1).
	FamilyAttempted FamilyMode = "attempted"
	// FamilyEvaluated corrige solo sobre las celdas con estadísticas.
	FamilyEvaluated FamilyMode = "evaluated"
)

// Grid es el espacio de parámetros a barrer.
type Grid struct {
	PriceRanges    []domain.PriceRange `yaml:"price_ranges"`
	MoveThresholds []float64           `yaml:"move_thresholds"`
	HoldPeriods    []int               `yaml:"hold_periods"`
}

// DefaultGrid es el barrido estándar: extremos de precio, movimientos grandes.
func DefaultGrid() Grid {
	return Grid{
		PriceRanges: []domain.PriceRange{
			{Min: 1, Max: 10}, {Min: 1, Max: 15}, {Min: 1, Max: 20},
			{Min: 85, Max: 90}, {Min: 85, Max: 95}, {Min: 90, Max: 99},
		},
		MoveThresholds: []float64{10, 12, 15, 18, 20, 25},
		HoldPeriods:    []int{3, 5, 7, 10, 12, 15},
	}
}

// Size devuelve el número de celdas del producto cartesiano.
func (g Grid) Size() int {
	return len(g.PriceRanges) * len(g.MoveThresholds) * len(g.HoldPeriods)
}

// Cells expande el grid en orden determinista: rango, umbral, hold.
func (g Grid) Cells() []domain.StrategyParameters {
	cells := make([]domain.StrategyParameters, 0, g.Size())
	for _, r := range g.PriceRanges {
		for _, m := range g.MoveThresholds {
			for _, h := range g.HoldPeriods {
				cells = append(cells, domain.StrategyParameters{
					PriceMin:      r.Min,
					PriceMax:      r.Max,
					MoveThreshold: m,
					HoldPeriod:    h,
				})
			}
		}
	}
	return cells
}

// SearchConfig agrupa todo lo que necesita Search.
type SearchConfig struct {
	MinTrades int
	Workers   int
	MaxCells  int
	Sim       SimConfig
	Stats     stats.Config
	Alpha     float64
	Family    FamilyMode
}

// DefaultSearchConfig devuelve min_trades 10, alpha 0.05 y familia "attempted".
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MinTrades: DefaultMinTrades,
		MaxCells:  DefaultMaxCells,
		Sim:       DefaultSimConfig(),
		Stats:     stats.DefaultConfig(),
		Alpha:     stats.DefaultAlpha,
		Family:    FamilyAttempted,
	}
}

// Search corre el simulador en cada celda del grid, calcula estadísticas
// para las que llegan a MinTrades y, con el batch completo, aplica la
// corrección por comparaciones múltiples.
//
// Las celdas son independientes y se evalúan en paralelo. El resultado es
// determinista: las celdas se devuelven en el orden de Grid.Cells y cada una
// siembra su bootstrap con Stats.Seed + índice.
func Search(ctx context.Context, sessions []domain.Session, grid Grid, cfg SearchConfig) (domain.SearchRun, error) {
	start := time.Now()
	cfg = cfg.withDefaults()

	cells := grid.Cells()
	if len(cells) == 0 {
		return domain.SearchRun{}, fmt.Errorf("backtest.Search: %w: empty grid", domain.ErrInvalidParameters)
	}
	if len(cells) > cfg.MaxCells {
		return domain.SearchRun{}, fmt.Errorf("backtest.Search: %w: %d > %d", ErrGridTooLarge, len(cells), cfg.MaxCells)
	}
	for _, p := range cells {
		if err := p.Validate(); err != nil {
			return domain.SearchRun{}, fmt.Errorf("backtest.Search: cell %s: %w", p.Name(), err)
		}
	}
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			return domain.SearchRun{}, fmt.Errorf("backtest.Search: %w", err)
		}
	}

	outcomes, err := runCellsConcurrent(ctx, sessions, cells, cfg)
	if err != nil {
		return domain.SearchRun{}, fmt.Errorf("backtest.Search: %w", err)
	}

	results := make([]domain.StrategyResult, 0, len(outcomes))
	for _, o := range outcomes {
		if o.ok {
			results = append(results, o.result)
		}
	}

	family := len(results)
	if cfg.Family == FamilyAttempted {
		family = len(cells)
	}
	corr := stats.CorrectFamily(results, cfg.Alpha, family)

	summary := domain.SearchSummary{
		CellsAttempted:        len(cells),
		CellsInsufficientData: len(cells) - len(results),
		CellsValid:            len(results),
		BonferroniSignificant: corr.Bonferroni,
		FDRSignificant:        corr.FDR,
		NaiveSignificant:      corr.Naive,
		FamilySize:            corr.FamilySize,
		Alpha:                 corr.Alpha,
		Elapsed:               time.Since(start),
	}

	slog.Info("grid search complete",
		"cells", summary.CellsAttempted,
		"insufficient", summary.CellsInsufficientData,
		"valid", summary.CellsValid,
		"naive", summary.NaiveSignificant,
		"bonferroni", summary.BonferroniSignificant,
		"fdr", summary.FDRSignificant,
		"family", summary.FamilySize,
		"elapsed", summary.Elapsed.Round(time.Millisecond),
	)

	return domain.SearchRun{
		ID:        uuid.New().String(),
		StartedAt: start.UTC(),
		Games:     len(sessions),
		Summary:   summary,
		Results:   results,
	}, nil
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.MinTrades <= 0 {
		c.MinTrades = DefaultMinTrades
	}
	if c.MaxCells <= 0 {
		c.MaxCells = DefaultMaxCells
	}
	if c.Sim.Contracts <= 0 {
		c.Sim.Contracts = DefaultContracts
	}
	if c.Sim.Fees == (domain.FeeSchedule{}) {
		c.Sim.Fees = domain.DefaultFeeSchedule()
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		c.Alpha = stats.DefaultAlpha
	}
	if c.Family != FamilyEvaluated {
		c.Family = FamilyAttempted
	}
	return c
}

// evaluateCell corre una celda del grid.
func evaluateCell(sessions []domain.Session, idx int, p domain.StrategyParameters, cfg SearchConfig) cellOutcome {
	return evaluate(sessions, idx, &signal.Rule{Params: p}, p, cfg)
}

func evaluate(sessions []domain.Session, idx int, sig signal.Signal, p domain.StrategyParameters, cfg SearchConfig) cellOutcome {
	out := cellOutcome{index: idx}
	trades := simulateValidated(sessions, sig, p.HoldPeriod, cfg.Sim)
	if len(trades) < cfg.MinTrades {
		slog.Debug("cell below min trades", "cell", sig.Name(), "trades", len(trades))
		return out
	}

	sc := cfg.Stats
	sc.Seed += uint64(idx)
	out.result = domain.StrategyResult{
		Params:     p,
		Signal:     sig.Name(),
		Trades:     trades,
		Stats:      stats.Compute(trades, sc),
		Robustness: stats.CheckRobustness(trades),
	}
	out.ok = true
	return out
}

// RunSignal evalúa una señal arbitraria (p. ej. un modelo) con el mismo
// pipeline que una celda del grid. hold es el hold por defecto si la señal
// no sugiere uno. Devuelve domain.ErrInsufficientData si no llega a MinTrades.
// La corrección no se aplica: una sola hipótesis no forma familia.
func RunSignal(sessions []domain.Session, sig signal.Signal, hold int, cfg SearchConfig) (domain.StrategyResult, error) {
	cfg = cfg.withDefaults()
	if sig == nil {
		return domain.StrategyResult{}, fmt.Errorf("backtest.RunSignal: %w: nil signal", domain.ErrInvalidParameters)
	}
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			return domain.StrategyResult{}, fmt.Errorf("backtest.RunSignal: %w", err)
		}
	}
	p := domain.StrategyParameters{PriceMin: domain.MinPrice, PriceMax: domain.MaxPrice, HoldPeriod: hold}
	if r, ok := sig.(*signal.Rule); ok {
		p = r.Params
	}
	o := evaluate(sessions, 0, sig, p, cfg)
	if !o.ok {
		return domain.StrategyResult{}, fmt.Errorf("backtest.RunSignal: %s: %w", sig.Name(), domain.ErrInsufficientData)
	}
	return o.result, nil
}
