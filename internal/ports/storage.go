package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// RunInfo es la cabecera de un grid persistido.
type RunInfo struct {
	ID        string
	StartedAt time.Time
	Games     int
	Summary   domain.SearchSummary
	Config    string
}

// ResultStorage persiste los grids de búsqueda y sus resultados.
type ResultStorage interface {
	// SaveRun persiste el run completo. config es un snapshot en YAML de
	// la configuración usada, para poder reproducirlo.
	SaveRun(ctx context.Context, run domain.SearchRun, config string) error

	// LatestRun devuelve el último run guardado, sin trades.
	LatestRun(ctx context.Context) (domain.SearchRun, error)

	// ListRuns devuelve las cabeceras de los últimos limit runs.
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

// PaperStorage persiste el estado del paper trading.
type PaperStorage interface {
	ApplyPaperSchema(ctx context.Context) error

	StartPaperSession(ctx context.Context, s domain.PaperSession) error
	EndPaperSession(ctx context.Context, id string, endedAt time.Time) error

	SavePaperSignal(ctx context.Context, sig domain.PaperSignal) error
	SavePaperPosition(ctx context.Context, pos domain.PaperPosition) error
	ClosePaperPosition(ctx context.Context, pos domain.PaperPosition) error
	GetOpenPaperPositions(ctx context.Context, sessionID string) ([]domain.PaperPosition, error)
	GetPaperTrades(ctx context.Context, sessionID string) ([]domain.PaperPosition, error)
	GetPaperStats(ctx context.Context) (domain.PaperStats, error)
}
