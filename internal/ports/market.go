package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

// CandleProvider obtiene velas de un minuto de un contrato del exchange.
type CandleProvider interface {
	// FetchCandles devuelve las velas de ticker en [from, to], etiquetadas
	// con gameID y ordenadas por tiempo.
	FetchCandles(ctx context.Context, ticker, gameID string, from, to time.Time) ([]domain.PriceObservation, error)
}

// OrderBookProvider obtiene el libro actual de un contrato.
type OrderBookProvider interface {
	FetchOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error)
}

// EventProvider obtiene el play-by-play de un partido.
type EventProvider interface {
	// FetchGame devuelve los eventos de marcador, con ScoreA del lado del
	// contrato, y si el partido terminó.
	FetchGame(ctx context.Context, game domain.WatchedGame) (domain.GameFeed, error)
}
