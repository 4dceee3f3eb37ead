package backtest

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// cellOutcome es la salida de una celda. ok = false si no llegó a min_trades.
type cellOutcome struct {
	index  int
	result domain.StrategyResult
	ok     bool
}

// runCellsConcurrent evalúa todas las celdas con un worker pool.
// Las celdas solo leen las sesiones compartidas y escriben su propio
// resultado; el único punto de unión es resultCh.
//
// Si workers <= 0 usa runtime.NumCPU(). Devuelve los outcomes indexados por
// celda, en el mismo orden que cells.
func runCellsConcurrent(
	ctx context.Context,
	sessions []domain.Session,
	cells []domain.StrategyParameters,
	cfg SearchConfig,
) ([]cellOutcome, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(cells) {
		workers = len(cells)
	}

	workCh := make(chan int, len(cells))
	resultCh := make(chan cellOutcome, len(cells))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				if ctx.Err() != nil {
					continue
				}
				resultCh <- evaluateCell(sessions, idx, cells[idx], cfg)
			}
		}()
	}

	for idx := range cells {
		workCh <- idx
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	outcomes := make([]cellOutcome, len(cells))
	done := 0
	for o := range resultCh {
		outcomes[o.index] = o
		done++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("grid cells complete",
		"cells", len(cells),
		"evaluated", done,
		"workers", workers,
	)
	return outcomes, nil
}
