package paper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/fadebot/internal/adapters/storage"
	"github.com/alejandrodnm/fadebot/internal/application/engine"
	"github.com/alejandrodnm/fadebot/internal/application/engine/paper"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/domain/signal"
	"github.com/alejandrodnm/fadebot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC)

type fakeCandles struct {
	rows []domain.PriceObservation
}

func (f *fakeCandles) FetchCandles(_ context.Context, _, gameID string, from, to time.Time) ([]domain.PriceObservation, error) {
	var out []domain.PriceObservation
	for _, r := range f.rows {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			r.GameID = gameID
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeEvents struct {
	feed domain.GameFeed
	err  error
}

func (f *fakeEvents) FetchGame(_ context.Context, g domain.WatchedGame) (domain.GameFeed, error) {
	if f.err != nil {
		return domain.GameFeed{}, f.err
	}
	feed := f.feed
	feed.GameID = g.GameID
	return feed, nil
}

type fakeBooks struct {
	book domain.OrderBook
}

func (f *fakeBooks) FetchOrderBook(_ context.Context, ticker string) (domain.OrderBook, error) {
	b := f.book
	b.Ticker = ticker
	return b, nil
}

func closes(vals ...float64) []domain.PriceObservation {
	out := make([]domain.PriceObservation, len(vals))
	for i, v := range vals {
		out[i] = domain.PriceObservation{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      v, High: v, Low: v, Close: v,
		}
	}
	return out
}

func finalFeed(scoreA, scoreB int) domain.GameFeed {
	return domain.GameFeed{
		Final:  true,
		Events: []domain.GameEvent{{Timestamp: t0, ScoreA: scoreA, ScoreB: scoreB, Period: 4}},
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	engine *paper.Engine
	store  *storage.SQLiteStorage
	events *fakeEvents
	clock  *clock
}

func newFixture(t *testing.T, rows []domain.PriceObservation, books ports.OrderBookProvider, cfg paper.Config) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rule, err := signal.NewRule(domain.StrategyParameters{PriceMin: 1, PriceMax: 30, MoveThreshold: 10, HoldPeriod: 3})
	require.NoError(t, err)

	events := &fakeEvents{}
	games := []domain.WatchedGame{{GameID: "g1", Ticker: "KX-G1"}}
	strategies := []engine.Strategy{engine.FromSignal(rule, 3)}

	e := paper.New(&fakeCandles{rows: rows}, books, events, store, strategies, games, cfg)
	c := &clock{now: t0}
	e.SetClock(c.Now)
	return &fixture{engine: e, store: store, events: events, clock: c}
}

func (f *fixture) cycle(t *testing.T, at time.Duration) *paper.CycleResult {
	t.Helper()
	f.clock.now = t0.Add(at)
	res, err := f.engine.RunOnce(context.Background())
	require.NoError(t, err)
	return res
}

func TestRunOnce_NotStarted(t *testing.T) {
	f := newFixture(t, closes(10, 10), nil, paper.Config{})
	_, err := f.engine.RunOnce(context.Background())
	assert.True(t, errors.Is(err, paper.ErrNotStarted))
}

func TestRunOnce_OpenAndExitAfterHold(t *testing.T) {
	f := newFixture(t, closes(10, 10, 25, 24, 23, 22, 21), nil, paper.Config{})
	ctx := context.Background()
	require.NoError(t, f.engine.Start(ctx))

	// minutos 0-2 cerrados: +15 en el minuto 2 dispara
	res := f.cycle(t, 3*time.Minute)
	require.Len(t, res.Open, 1)
	pos := res.Open[0]
	assert.Equal(t, domain.Short, pos.Direction)
	assert.InDelta(t, 25, pos.EntryPrice, 1e-9)
	assert.Equal(t, t0.Add(5*time.Minute), pos.TargetExit)
	require.Len(t, res.Signals, 1)
	assert.True(t, res.Signals[0].Taken)

	// hold no cumplido
	res = f.cycle(t, 4*time.Minute)
	assert.Len(t, res.Open, 1)
	assert.Empty(t, res.Closed)

	// el minuto 5 cerró: salida al close 22 con fee taker
	res = f.cycle(t, 6*time.Minute)
	assert.Empty(t, res.Open)
	require.Len(t, res.Closed, 1)
	closed := res.Closed[0]
	assert.Equal(t, domain.PaperStatusClosed, closed.Status)
	require.NotNil(t, closed.Trade)
	assert.Equal(t, domain.ExitHoldElapsed, closed.Trade.ExitReason)
	assert.InDelta(t, 22, closed.ExitPrice, 1e-9)
	assert.InDelta(t, 3, closed.Trade.Points, 1e-9)

	fees := domain.DefaultFeeSchedule()
	wantFees := fees.Fee(100, 25, true) + fees.Fee(100, 22, true)
	assert.InDelta(t, wantFees, closed.Trade.Fees, 1e-9)
	assert.InDelta(t, 3-wantFees, closed.Trade.NetPL, 1e-9)

	trades, err := f.store.GetPaperTrades(ctx, f.engine.SessionID())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, closed.Trade.NetPL, trades[0].Trade.NetPL, 1e-9)
}

func TestRunOnce_SettlementClosesWithoutExitFee(t *testing.T) {
	f := newFixture(t, closes(10, 10, 25, 24, 23), nil, paper.Config{HoldToSettlement: true})
	ctx := context.Background()
	require.NoError(t, f.engine.Start(ctx))

	res := f.cycle(t, 3*time.Minute)
	require.Len(t, res.Open, 1)
	assert.True(t, res.Open[0].HoldToClose)

	// HoldToClose ignora el hold
	res = f.cycle(t, 10*time.Minute)
	assert.Len(t, res.Open, 1)

	f.events.feed = finalFeed(101, 98)
	res = f.cycle(t, 11*time.Minute)
	assert.Empty(t, res.Open)
	require.Len(t, res.Closed, 1)

	closed := res.Closed[0]
	assert.Equal(t, domain.PaperStatusSettled, closed.Status)
	assert.Equal(t, domain.ExitSettlement, closed.Trade.ExitReason)
	assert.InDelta(t, 100, closed.ExitPrice, 1e-9)
	assert.InDelta(t, -75, closed.Trade.Points, 1e-9)
	assert.InDelta(t, domain.DefaultFeeSchedule().Fee(100, 25, true), closed.Trade.Fees, 1e-9)
	assert.True(t, f.engine.Done())

	// partido final: el siguiente ciclo no hace nada
	res = f.cycle(t, 12*time.Minute)
	assert.Empty(t, res.Closed)
	assert.Empty(t, res.Signals)
}

func TestRunOnce_OnePositionPerGameAndStrategy(t *testing.T) {
	f := newFixture(t, closes(10, 10, 25, 10, 10), nil, paper.Config{})
	ctx := context.Background()
	require.NoError(t, f.engine.Start(ctx))

	f.cycle(t, 3*time.Minute)
	// -15 en el minuto 3 con la posición aún abierta
	res := f.cycle(t, 4*time.Minute)
	require.Len(t, res.Signals, 1)
	assert.False(t, res.Signals[0].Taken)
	assert.Equal(t, "position already open", res.Signals[0].Reason)
	assert.Len(t, res.Open, 1)

	stats, err := f.store.GetPaperStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Signals)
	assert.Equal(t, 1, stats.SignalsTaken)
}

func TestRunOnce_SameMinuteNotEvaluatedTwice(t *testing.T) {
	f := newFixture(t, closes(10, 10, 25, 24), nil, paper.Config{})
	require.NoError(t, f.engine.Start(context.Background()))

	res := f.cycle(t, 3*time.Minute)
	assert.Len(t, res.Signals, 1)
	res = f.cycle(t, 3*time.Minute+30*time.Second)
	assert.Empty(t, res.Signals)
}

func TestRunOnce_UsesBookMid(t *testing.T) {
	books := &fakeBooks{book: domain.OrderBook{
		YesBids: []domain.BookEntry{{Price: 26, Size: 10}},
		NoBids:  []domain.BookEntry{{Price: 72, Size: 10}},
	}}
	f := newFixture(t, closes(10, 10, 25), books, paper.Config{})
	require.NoError(t, f.engine.Start(context.Background()))

	res := f.cycle(t, 3*time.Minute)
	require.Len(t, res.Open, 1)
	assert.InDelta(t, 27, res.Open[0].EntryPrice, 1e-9)
}

func TestRunOnce_GameErrorDoesNotAbortCycle(t *testing.T) {
	f := newFixture(t, closes(10, 10, 25), nil, paper.Config{})
	require.NoError(t, f.engine.Start(context.Background()))

	f.events.err = errors.New("cdn down")
	res := f.cycle(t, 3*time.Minute)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "cdn down")
	assert.Empty(t, res.Open)
}

func TestRunOnce_GapKeepsContiguousTail(t *testing.T) {
	rows := closes(10, 10, 12, 12, 30)
	// hueco: falta el minuto 3
	rows = append(rows[:3], rows[4])
	f := newFixture(t, rows, nil, paper.Config{})
	require.NoError(t, f.engine.Start(context.Background()))

	// tras el hueco solo queda una vela: sin historia no hay señal
	res := f.cycle(t, 5*time.Minute)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Signals)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, closes(10), nil, paper.Config{Notes: "test"})
	ctx := context.Background()
	require.NoError(t, f.engine.Stop(ctx))
	require.NoError(t, f.engine.Start(ctx))
	assert.NotEmpty(t, f.engine.SessionID())
	require.NoError(t, f.engine.Stop(ctx))

	stats, err := f.store.GetPaperStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
}
