package ports

import (
	"context"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// Notifier presenta los resultados de un grid al operador.
type Notifier interface {
	// NotifySearch muestra el resumen del grid y las top estrategias por Sharpe.
	NotifySearch(ctx context.Context, run domain.SearchRun, top int) error
}

// PaperNotifier presenta el estado del paper trading.
type PaperNotifier interface {
	NotifyPaperCycle(ctx context.Context, open []domain.PaperPosition, closed []domain.PaperPosition) error
	NotifyPaperReport(ctx context.Context, stats domain.PaperStats) error
}
