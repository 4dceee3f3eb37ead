package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/ports"
)

const periodMinute = 1

var (
	_ ports.CandleProvider    = (*Client)(nil)
	_ ports.OrderBookProvider = (*Client)(nil)
)

// FetchCandles devuelve las velas de 1 minuto de ticker en [from, to].
// Los minutos sin trades usan el mid de bid/ask; si tampoco hay libro se descartan.
func (c *Client) FetchCandles(ctx context.Context, ticker, gameID string, from, to time.Time) ([]domain.PriceObservation, error) {
	q := url.Values{}
	q.Set("period_interval", fmt.Sprint(periodMinute))
	q.Set("start_ts", fmt.Sprint(from.Unix()))
	q.Set("end_ts", fmt.Sprint(to.Unix()))
	u := fmt.Sprintf("%s/markets/%s/candlesticks?%s", c.base, url.PathEscape(ticker), q.Encode())

	var resp candlesticksResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("kalshi.FetchCandles %s: %w", ticker, err)
	}

	obs := make([]domain.PriceObservation, 0, len(resp.Candlesticks))
	skipped := 0
	for _, cs := range resp.Candlesticks {
		o, ok := mapCandle(cs, gameID)
		if !ok {
			skipped++
			continue
		}
		obs = append(obs, o)
	}

	slog.Debug("kalshi candles fetched", "ticker", ticker, "count", len(obs), "skipped", skipped)
	return obs, nil
}

// FetchOrderBook devuelve el libro actual de ticker.
func (c *Client) FetchOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error) {
	u := fmt.Sprintf("%s/markets/%s/orderbook", c.base, url.PathEscape(ticker))

	var resp orderbookResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("kalshi.FetchOrderBook %s: %w", ticker, err)
	}

	return domain.OrderBook{
		Ticker:    ticker,
		YesBids:   descending(resp.Orderbook.Yes),
		NoBids:    descending(resp.Orderbook.No),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// mapCandle convierte una vela de la API al dominio. El timestamp es el
// inicio del minuto; la API informa el final.
func mapCandle(cs candlestick, gameID string) (domain.PriceObservation, bool) {
	ts := time.Unix(cs.EndPeriodTS, 0).UTC().Add(-domain.CandleInterval)

	if cs.Price.Close != nil {
		cl := *cs.Price.Close
		return domain.PriceObservation{
			GameID:    gameID,
			Timestamp: ts,
			Open:      valueOr(cs.Price.Open, cl),
			High:      valueOr(cs.Price.High, cl),
			Low:       valueOr(cs.Price.Low, cl),
			Close:     cl,
			Volume:    cs.Volume,
		}, true
	}

	if cs.YesBid.Close == nil || cs.YesAsk.Close == nil {
		return domain.PriceObservation{}, false
	}
	mid := (*cs.YesBid.Close + *cs.YesAsk.Close) / 2
	if mid < domain.MinPrice || mid > domain.MaxPrice {
		return domain.PriceObservation{}, false
	}
	return domain.PriceObservation{
		GameID: gameID, Timestamp: ts,
		Open: mid, High: mid, Low: mid, Close: mid,
		Volume: cs.Volume,
	}, true
}

// descending invierte los niveles de la API (ascendentes) al orden del dominio.
func descending(levels [][2]float64) []domain.BookEntry {
	out := make([]domain.BookEntry, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, domain.BookEntry{Price: levels[i][0], Size: levels[i][1]})
	}
	return out
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
