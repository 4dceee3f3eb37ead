package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
)

const paperSchema = `
CREATE TABLE IF NOT EXISTS paper_sessions (
    id              TEXT PRIMARY KEY,
    started_at      DATETIME NOT NULL,
    ended_at        DATETIME,
    games_monitored INTEGER NOT NULL DEFAULT 0,
    strategies      INTEGER NOT NULL DEFAULT 0,
    notes           TEXT
);

CREATE TABLE IF NOT EXISTS paper_signals (
    id          TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    game_id     TEXT NOT NULL,
    strategy    TEXT NOT NULL,
    timestamp   DATETIME NOT NULL,
    price       REAL NOT NULL,
    move        REAL NOT NULL DEFAULT 0,
    direction   INTEGER NOT NULL,
    probability REAL NOT NULL DEFAULT 0,
    taken       INTEGER NOT NULL DEFAULT 0,
    reason      TEXT
);

CREATE TABLE IF NOT EXISTS paper_trades (
    id            TEXT PRIMARY KEY,
    session_id    TEXT NOT NULL,
    game_id       TEXT NOT NULL,
    ticker        TEXT NOT NULL,
    strategy      TEXT NOT NULL,
    direction     INTEGER NOT NULL,
    contracts     INTEGER NOT NULL,
    entry_time    DATETIME NOT NULL,
    entry_price   REAL NOT NULL,
    target_exit   DATETIME NOT NULL,
    hold_to_close INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'OPEN',
    exit_time     DATETIME,
    exit_price    REAL NOT NULL DEFAULT 0,
    exit_reason   TEXT,
    points        REAL NOT NULL DEFAULT 0,
    gross_pl      REAL NOT NULL DEFAULT 0,
    fees          REAL NOT NULL DEFAULT 0,
    net_pl        REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_paper_signals_session ON paper_signals(session_id);
CREATE INDEX IF NOT EXISTS idx_paper_trades_session  ON paper_trades(session_id);
CREATE INDEX IF NOT EXISTS idx_paper_trades_status   ON paper_trades(status);
`

// ApplyPaperSchema creates paper trading tables if they don't exist.
func (s *SQLiteStorage) ApplyPaperSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, paperSchema); err != nil {
		return fmt.Errorf("storage.ApplyPaperSchema: %w", err)
	}
	// Silent migrations: ALTER fails when the column already exists.
	for _, stmt := range []string{
		"ALTER TABLE paper_trades ADD COLUMN exit_reason TEXT",
		"ALTER TABLE paper_trades ADD COLUMN points REAL NOT NULL DEFAULT 0",
		"ALTER TABLE paper_sessions ADD COLUMN notes TEXT",
	} {
		s.db.ExecContext(ctx, stmt) // ignore errors (column already exists)
	}
	return nil
}

// StartPaperSession inserts a new paper session.
func (s *SQLiteStorage) StartPaperSession(ctx context.Context, ps domain.PaperSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_sessions (id, started_at, games_monitored, strategies, notes)
		VALUES (?, ?, ?, ?, ?)`,
		ps.ID, ps.StartedAt.UTC().Format(time.RFC3339), ps.GamesMonitored, ps.Strategies, ps.Notes,
	)
	if err != nil {
		return fmt.Errorf("storage.StartPaperSession: %w", err)
	}
	return nil
}

// EndPaperSession stamps the session end time.
func (s *SQLiteStorage) EndPaperSession(ctx context.Context, id string, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE paper_sessions SET ended_at = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("storage.EndPaperSession: %w", err)
	}
	return nil
}

// SavePaperSignal records an observed entry signal, taken or skipped.
func (s *SQLiteStorage) SavePaperSignal(ctx context.Context, sig domain.PaperSignal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_signals (id, session_id, game_id, strategy, timestamp, price,
		                           move, direction, probability, taken, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.SessionID, sig.GameID, sig.Strategy, sig.Timestamp.UTC().Format(time.RFC3339),
		sig.Price, sig.Move, int(sig.Direction), sig.Probability, boolInt(sig.Taken), sig.Reason,
	)
	if err != nil {
		return fmt.Errorf("storage.SavePaperSignal: %w", err)
	}
	return nil
}

// SavePaperPosition inserts a newly opened position.
func (s *SQLiteStorage) SavePaperPosition(ctx context.Context, pos domain.PaperPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_trades (id, session_id, game_id, ticker, strategy, direction, contracts,
		                          entry_time, entry_price, target_exit, hold_to_close, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.SessionID, pos.GameID, pos.Ticker, pos.Strategy, int(pos.Direction), pos.Contracts,
		pos.EntryTime.UTC().Format(time.RFC3339), pos.EntryPrice,
		pos.TargetExit.UTC().Format(time.RFC3339), boolInt(pos.HoldToClose), string(pos.Status),
	)
	if err != nil {
		return fmt.Errorf("storage.SavePaperPosition: %w", err)
	}
	return nil
}

// ClosePaperPosition records the exit of a position and its realized trade.
func (s *SQLiteStorage) ClosePaperPosition(ctx context.Context, pos domain.PaperPosition) error {
	if pos.Trade == nil || pos.ExitTime == nil {
		return fmt.Errorf("storage.ClosePaperPosition: position %s has no exit", pos.ID)
	}
	t := pos.Trade
	res, err := s.db.ExecContext(ctx, `
		UPDATE paper_trades
		SET status = ?, exit_time = ?, exit_price = ?, exit_reason = ?,
		    points = ?, gross_pl = ?, fees = ?, net_pl = ?
		WHERE id = ? AND status = 'OPEN'`,
		string(pos.Status), pos.ExitTime.UTC().Format(time.RFC3339), pos.ExitPrice, string(t.ExitReason),
		t.Points, t.GrossPL, t.Fees, t.NetPL, pos.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.ClosePaperPosition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.ClosePaperPosition: position %s not open", pos.ID)
	}
	return nil
}

// GetOpenPaperPositions returns OPEN positions, all sessions if sessionID is empty.
func (s *SQLiteStorage) GetOpenPaperPositions(ctx context.Context, sessionID string) ([]domain.PaperPosition, error) {
	q := positionSelect + ` WHERE status = 'OPEN'`
	args := []any{}
	if sessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	return s.queryPositions(ctx, q+` ORDER BY entry_time`, args...)
}

// GetPaperTrades returns closed and settled positions, all sessions if sessionID is empty.
func (s *SQLiteStorage) GetPaperTrades(ctx context.Context, sessionID string) ([]domain.PaperPosition, error) {
	q := positionSelect + ` WHERE status != 'OPEN'`
	args := []any{}
	if sessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, sessionID)
	}
	return s.queryPositions(ctx, q+` ORDER BY entry_time`, args...)
}

// GetPaperStats aggregates every paper session. Per-strategy rows are
// ordered by net P&L descending.
func (s *SQLiteStorage) GetPaperStats(ctx context.Context) (domain.PaperStats, error) {
	var st domain.PaperStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM paper_sessions`).Scan(&st.Sessions); err != nil {
		return st, fmt.Errorf("storage.GetPaperStats: sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(taken), 0) FROM paper_signals`).Scan(&st.Signals, &st.SignalsTaken); err != nil {
		return st, fmt.Errorf("storage.GetPaperStats: signals: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM paper_trades WHERE status = 'OPEN'`).Scan(&st.OpenPositions); err != nil {
		return st, fmt.Errorf("storage.GetPaperStats: open: %w", err)
	}

	var first, last sql.NullString
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN net_pl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'SETTLED' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(gross_pl), 0), COALESCE(SUM(fees), 0), COALESCE(SUM(net_pl), 0),
		       MIN(entry_time), MAX(entry_time)
		FROM paper_trades WHERE status != 'OPEN'`).Scan(
		&st.Trades, &st.Wins, &st.Settled,
		&st.TotalGrossPL, &st.TotalFees, &st.TotalNetPL,
		&first, &last,
	); err != nil {
		return st, fmt.Errorf("storage.GetPaperStats: trades: %w", err)
	}
	if first.Valid {
		st.FirstTrade, _ = time.Parse(time.RFC3339, first.String)
	}
	if last.Valid {
		st.LastTrade, _ = time.Parse(time.RFC3339, last.String)
	}
	if st.Trades > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Trades)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, COUNT(*),
		       SUM(CASE WHEN net_pl > 0 THEN 1 ELSE 0 END),
		       SUM(net_pl)
		FROM paper_trades WHERE status != 'OPEN'
		GROUP BY strategy
		ORDER BY SUM(net_pl) DESC, strategy`)
	if err != nil {
		return st, fmt.Errorf("storage.GetPaperStats: by strategy: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ss domain.PaperStrategyStats
		if err := rows.Scan(&ss.Strategy, &ss.Trades, &ss.Wins, &ss.NetPL); err != nil {
			return st, fmt.Errorf("storage.GetPaperStats: scan: %w", err)
		}
		st.ByStrategy = append(st.ByStrategy, ss)
	}
	return st, rows.Err()
}

const positionSelect = `
	SELECT id, session_id, game_id, ticker, strategy, direction, contracts,
	       entry_time, entry_price, target_exit, hold_to_close, status,
	       exit_time, exit_price, exit_reason, points, gross_pl, fees, net_pl
	FROM paper_trades`

// queryPositions is a helper to scan rows into PaperPosition slices.
func (s *SQLiteStorage) queryPositions(ctx context.Context, query string, args ...any) ([]domain.PaperPosition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.queryPositions: %w", err)
	}
	defer rows.Close()

	var out []domain.PaperPosition
	for rows.Next() {
		var p domain.PaperPosition
		var dir, holdToClose int
		var status, entryTime, targetExit string
		var exitTime, exitReason sql.NullString
		var points, gross, fees, net float64

		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.GameID, &p.Ticker, &p.Strategy, &dir, &p.Contracts,
			&entryTime, &p.EntryPrice, &targetExit, &holdToClose, &status,
			&exitTime, &p.ExitPrice, &exitReason, &points, &gross, &fees, &net,
		); err != nil {
			return nil, fmt.Errorf("storage.queryPositions: scan: %w", err)
		}

		p.Direction = domain.Direction(dir)
		p.HoldToClose = holdToClose == 1
		p.Status = domain.PaperPositionStatus(status)
		p.EntryTime, _ = time.Parse(time.RFC3339, entryTime)
		p.TargetExit, _ = time.Parse(time.RFC3339, targetExit)
		if exitTime.Valid {
			t, _ := time.Parse(time.RFC3339, exitTime.String)
			p.ExitTime = &t
			p.Trade = &domain.Trade{
				GameID:     p.GameID,
				Direction:  p.Direction,
				EntryTime:  p.EntryTime,
				ExitTime:   t,
				EntryPrice: p.EntryPrice,
				ExitPrice:  p.ExitPrice,
				Contracts:  p.Contracts,
				ExitReason: domain.ExitReason(exitReason.String),
				Points:     points,
				GrossPL:    gross,
				Fees:       fees,
				NetPL:      net,
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
