package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fadebot/internal/application/engine"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultContracts = 100
	DefaultLookback  = 4 * time.Hour
)

// ErrNotStarted is returned by RunOnce before Start.
var ErrNotStarted = errors.New("paper session not started")

// Config holds paper trading-specific settings.
type Config struct {
	Contracts int
	Fees      domain.FeeSchedule
	// HoldToSettlement keeps every position until the game is final.
	HoldToSettlement bool
	// Lookback is how much candle history is fetched each cycle.
	Lookback time.Duration
	Notes    string
}

// Engine runs the paper trading loop: one cycle per call to RunOnce.
type Engine struct {
	candles    ports.CandleProvider
	books      ports.OrderBookProvider // optional, marks at the book mid when set
	events     ports.EventProvider
	store      ports.PaperStorage
	strategies []engine.Strategy
	games      []domain.WatchedGame
	cfg        Config

	sessionID string
	now       func() time.Time
	// lastEval is the last candle each game was evaluated on, so a minute
	// is never evaluated twice.
	lastEval map[string]time.Time
	final    map[string]bool
}

// New creates a paper trading engine. books may be nil.
func New(
	candles ports.CandleProvider,
	books ports.OrderBookProvider,
	events ports.EventProvider,
	store ports.PaperStorage,
	strategies []engine.Strategy,
	games []domain.WatchedGame,
	cfg Config,
) *Engine {
	if cfg.Contracts <= 0 {
		cfg.Contracts = DefaultContracts
	}
	if cfg.Fees == (domain.FeeSchedule{}) {
		cfg.Fees = domain.DefaultFeeSchedule()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	return &Engine{
		candles:    candles,
		books:      books,
		events:     events,
		store:      store,
		strategies: strategies,
		games:      games,
		cfg:        cfg,
		now:        time.Now,
		lastEval:   make(map[string]time.Time),
		final:      make(map[string]bool),
	}
}

// SetClock replaces the wall clock, for tests.
func (pe *Engine) SetClock(now func() time.Time) { pe.now = now }

// SessionID returns the id of the running session, "" before Start.
func (pe *Engine) SessionID() string { return pe.sessionID }

// Done reports whether every watched game is final.
func (pe *Engine) Done() bool {
	for _, g := range pe.games {
		if !pe.final[g.GameID] {
			return false
		}
	}
	return len(pe.games) > 0
}

// Start creates the paper tables if needed and opens a new session.
func (pe *Engine) Start(ctx context.Context) error {
	if err := pe.store.ApplyPaperSchema(ctx); err != nil {
		return fmt.Errorf("paper.Start: schema: %w", err)
	}
	s := domain.PaperSession{
		ID:             uuid.NewString(),
		StartedAt:      pe.now().UTC(),
		GamesMonitored: len(pe.games),
		Strategies:     len(pe.strategies),
		Notes:          pe.cfg.Notes,
	}
	if err := pe.store.StartPaperSession(ctx, s); err != nil {
		return fmt.Errorf("paper.Start: %w", err)
	}
	pe.sessionID = s.ID
	slog.Info("paper session started", "session", s.ID, "games", len(pe.games), "strategies", len(pe.strategies))
	return nil
}

// Stop closes the session. Open positions stay open in storage.
func (pe *Engine) Stop(ctx context.Context) error {
	if pe.sessionID == "" {
		return nil
	}
	if err := pe.store.EndPaperSession(ctx, pe.sessionID, pe.now().UTC()); err != nil {
		return fmt.Errorf("paper.Stop: %w", err)
	}
	slog.Info("paper session ended", "session", pe.sessionID)
	return nil
}

// CycleResult contains everything produced by one paper trading cycle.
type CycleResult struct {
	Open    []domain.PaperPosition
	Closed  []domain.PaperPosition
	Signals []domain.PaperSignal
	// Errors are per-game failures; the cycle carries on with the other games.
	Errors []string
}

// RunOnce polls every non-final game, closes due positions and opens new ones.
func (pe *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	if pe.sessionID == "" {
		return nil, ErrNotStarted
	}
	now := pe.now().UTC()
	result := &CycleResult{}

	open, err := pe.store.GetOpenPaperPositions(ctx, pe.sessionID)
	if err != nil {
		return nil, fmt.Errorf("paper.RunOnce: open positions: %w", err)
	}
	byGame := make(map[string][]domain.PaperPosition)
	for _, p := range open {
		byGame[p.GameID] = append(byGame[p.GameID], p)
	}

	for _, g := range pe.games {
		if pe.final[g.GameID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("paper.RunOnce: %w", err)
		}
		if err := pe.runGame(ctx, g, now, byGame[g.GameID], result); err != nil {
			slog.Warn("paper: game skipped this cycle", "game", g.GameID, "err", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", g.GameID, err))
		}
	}

	result.Open, err = pe.store.GetOpenPaperPositions(ctx, pe.sessionID)
	if err != nil {
		return nil, fmt.Errorf("paper.RunOnce: open positions: %w", err)
	}
	return result, nil
}

func (pe *Engine) runGame(ctx context.Context, g domain.WatchedGame, now time.Time, open []domain.PaperPosition, result *CycleResult) error {
	feed, err := pe.events.FetchGame(ctx, g)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	rows, err := pe.candles.FetchCandles(ctx, g.Ticker, g.GameID, now.Add(-pe.cfg.Lookback), now)
	if err != nil {
		return fmt.Errorf("candles: %w", err)
	}

	s := domain.Session{GameID: g.GameID, Candles: contiguousTail(closedCandles(rows, now)), Events: feed.Events}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	settle, settled := feed.Settlement()
	for _, p := range open {
		closed, ok, err := pe.maybeClose(ctx, g, p, s, now, settle, settled)
		if err != nil {
			return err
		}
		if ok {
			result.Closed = append(result.Closed, closed)
		}
	}

	if settled {
		pe.final[g.GameID] = true
		slog.Info("paper: game final", "game", g.GameID, "settlement", settle)
		return nil
	}

	last := len(s.Candles) - 1
	if last < 1 || !s.Candles[last].Timestamp.After(pe.lastEval[g.GameID]) {
		return nil
	}
	pe.lastEval[g.GameID] = s.Candles[last].Timestamp

	busy := make(map[string]bool, len(open))
	for _, p := range open {
		busy[p.Strategy] = true
	}
	for _, c := range result.Closed {
		if c.GameID == g.GameID {
			// exit minute does not admit a new entry
			busy[c.Strategy] = true
		}
	}

	for _, st := range pe.strategies {
		sig, pos, fired := pe.evaluate(ctx, g, st, s, busy[st.Name])
		if !fired {
			continue
		}
		if err := pe.store.SavePaperSignal(ctx, sig); err != nil {
			return fmt.Errorf("save signal: %w", err)
		}
		result.Signals = append(result.Signals, sig)
		if pos == nil {
			continue
		}
		if err := pe.store.SavePaperPosition(ctx, *pos); err != nil {
			return fmt.Errorf("save position: %w", err)
		}
		busy[st.Name] = true
		slog.Info("paper: position opened",
			"game", g.GameID, "strategy", st.Name, "side", pos.Direction,
			"price", pos.EntryPrice, "exit_at", pos.TargetExit.Format("15:04"))
	}
	return nil
}

// evaluate runs one strategy on the last closed minute. It returns the signal
// row to log and, if taken, the position to open.
func (pe *Engine) evaluate(ctx context.Context, g domain.WatchedGame, st engine.Strategy, s domain.Session, busy bool) (domain.PaperSignal, *domain.PaperPosition, bool) {
	last := len(s.Candles) - 1
	entry, ok := st.Signal.Evaluate(s.History(last))
	if !ok {
		return domain.PaperSignal{}, nil, false
	}
	move := s.Candles[last].Close - s.Candles[last-1].Close
	if move == 0 {
		return domain.PaperSignal{}, nil, false
	}

	c := s.Candles[last]
	price := pe.markPrice(ctx, g, c.Close)
	dir := domain.FadeDirection(move)
	sig := domain.PaperSignal{
		ID:          uuid.NewString(),
		SessionID:   pe.sessionID,
		GameID:      g.GameID,
		Strategy:    st.Name,
		Timestamp:   c.Timestamp,
		Price:       price,
		Move:        move,
		Direction:   dir,
		Probability: entry.Probability,
	}
	if busy {
		sig.Reason = "position already open"
		return sig, nil, true
	}

	hold := st.Hold
	if entry.HoldPeriod > 0 {
		hold = entry.HoldPeriod
	}
	holdToClose := pe.cfg.HoldToSettlement || hold < 1
	sig.Taken = true

	return sig, &domain.PaperPosition{
		ID:          uuid.NewString(),
		SessionID:   pe.sessionID,
		GameID:      g.GameID,
		Ticker:      g.Ticker,
		Strategy:    st.Name,
		Direction:   dir,
		Contracts:   pe.cfg.Contracts,
		EntryTime:   c.Timestamp,
		EntryPrice:  price,
		TargetExit:  c.Timestamp.Add(time.Duration(hold) * domain.CandleInterval),
		HoldToClose: holdToClose,
		Status:      domain.PaperStatusOpen,
	}, true
}

// maybeClose settles p when the game is final, or exits it at the mark
// price once its hold has elapsed.
func (pe *Engine) maybeClose(
	ctx context.Context,
	g domain.WatchedGame,
	p domain.PaperPosition,
	s domain.Session,
	now time.Time,
	settle float64,
	settled bool,
) (domain.PaperPosition, bool, error) {
	var (
		exitTime  time.Time
		exitPrice float64
		reason    domain.ExitReason
	)
	switch {
	case settled:
		exitTime, exitPrice, reason = now, settle, domain.ExitSettlement
		if n := len(s.Candles); n > 0 {
			exitTime = s.Candles[n-1].Timestamp
		}
		p.Status = domain.PaperStatusSettled
	case p.DueAt(now) && len(s.Candles) > 0:
		c := s.Candles[len(s.Candles)-1]
		if c.Timestamp.Before(p.TargetExit) {
			// the exit minute has not closed yet
			return p, false, nil
		}
		exitTime, exitPrice, reason = c.Timestamp, pe.markPrice(ctx, g, c.Close), domain.ExitHoldElapsed
		p.Status = domain.PaperStatusClosed
	default:
		return p, false, nil
	}

	t := domain.NewTrade(pe.cfg.Fees, p.GameID, p.Direction, p.Contracts,
		p.EntryTime, p.EntryPrice, exitTime, exitPrice, reason)
	p.ExitTime = &exitTime
	p.ExitPrice = exitPrice
	p.Trade = &t

	if err := pe.store.ClosePaperPosition(ctx, p); err != nil {
		return p, false, fmt.Errorf("close position %s: %w", p.ID, err)
	}
	slog.Info("paper: position closed",
		"game", p.GameID, "strategy", p.Strategy, "reason", reason,
		"entry", p.EntryPrice, "exit", exitPrice, "net_pl", fmt.Sprintf("$%.2f", t.NetPL))
	return p, true, nil
}

// markPrice is the book midpoint when a book provider is set and the book
// has a price in [1, 99]; otherwise the candle close.
func (pe *Engine) markPrice(ctx context.Context, g domain.WatchedGame, lastClose float64) float64 {
	if pe.books == nil {
		return lastClose
	}
	ob, err := pe.books.FetchOrderBook(ctx, g.Ticker)
	if err != nil {
		slog.Debug("paper: orderbook unavailable, using close", "ticker", g.Ticker, "err", err)
		return lastClose
	}
	mid := ob.Midpoint()
	if mid < domain.MinPrice || mid > domain.MaxPrice {
		return lastClose
	}
	return mid
}

// closedCandles drops the minute still in progress at now.
func closedCandles(rows []domain.PriceObservation, now time.Time) []domain.PriceObservation {
	out := rows[:0:0]
	for _, r := range rows {
		if !r.Timestamp.Add(domain.CandleInterval).After(now) {
			out = append(out, r)
		}
	}
	return out
}

// contiguousTail returns the longest suffix with 1-minute steps. Live feeds
// skip minutes without trades or quotes; the signal only needs recent history.
func contiguousTail(rows []domain.PriceObservation) []domain.PriceObservation {
	start := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp.Sub(rows[i-1].Timestamp) != domain.CandleInterval {
			start = i
		}
	}
	return rows[start:]
}
