package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// NotifyPaperCycle prints a compact status line for one paper cycle, plus a
// table of open positions when table mode is on.
func (c *Console) NotifyPaperCycle(_ context.Context, open, closed []domain.PaperPosition) error {
	now := time.Now().Format("15:04:05")

	var cyclePL float64
	settled := 0
	for _, p := range closed {
		if p.Trade != nil {
			cyclePL += p.Trade.NetPL
		}
		if p.Status == domain.PaperStatusSettled {
			settled++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s][PAPER] %d open | %d closed (%d settled) | cycle net $%.2f",
		now, len(open), len(closed), settled, cyclePL)
	for _, p := range closed {
		if p.Trade == nil {
			continue
		}
		fmt.Fprintf(&sb, "\n  -- %s %s %s %.0f→%.0f %s net $%.2f",
			p.GameID, p.Strategy, p.Direction, p.EntryPrice, p.ExitPrice, p.Trade.ExitReason, p.Trade.NetPL)
	}
	fmt.Fprintln(c.out, sb.String())

	if c.table && len(open) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Game", "Strategy", "Side", "Qty", "Entry", "Since", "Exit at")
		for _, p := range open {
			exitAt := "settlement"
			if !p.HoldToClose {
				exitAt = p.TargetExit.Local().Format("15:04")
			}
			tbl.Append(
				p.GameID,
				truncate(p.Strategy, 32),
				p.Direction.String(),
				fmt.Sprintf("%d", p.Contracts),
				fmt.Sprintf("%.0fc", p.EntryPrice),
				p.EntryTime.Local().Format("15:04"),
				exitAt,
			)
		}
		tbl.Render()
	}
	return nil
}

// NotifyPaperReport prints the aggregate paper trading report.
func (c *Console) NotifyPaperReport(_ context.Context, stats domain.PaperStats) error {
	if stats.Sessions == 0 {
		fmt.Fprintln(c.out, "\n  No paper trading data yet. Run -paper first for a few games.")
		return nil
	}

	fmt.Fprintf(c.out, "\n")
	fmt.Fprintf(c.out, "========================================================\n")
	fmt.Fprintf(c.out, "  PAPER TRADING REPORT (%d sessions)\n", stats.Sessions)
	if stats.Trades > 0 {
		fmt.Fprintf(c.out, "  %s to %s\n",
			stats.FirstTrade.Local().Format("2006-01-02 15:04"),
			stats.LastTrade.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(c.out, "========================================================\n\n")

	if len(stats.ByStrategy) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Strategy", "Trades", "Wins", "Win%", "Net$")
		for _, s := range stats.ByStrategy {
			winRate := 0.0
			if s.Trades > 0 {
				winRate = float64(s.Wins) / float64(s.Trades) * 100
			}
			tbl.Append(
				truncate(s.Strategy, 32),
				fmt.Sprintf("%d", s.Trades),
				fmt.Sprintf("%d", s.Wins),
				fmt.Sprintf("%.1f", winRate),
				fmt.Sprintf("$%.2f", s.NetPL),
			)
		}
		tbl.Render()
	}

	fmt.Fprintf(c.out, "\n  --- AGGREGATE ---\n")
	fmt.Fprintf(c.out, "  Signals observed:      %d (%d taken)\n", stats.Signals, stats.SignalsTaken)
	fmt.Fprintf(c.out, "  Closed trades:         %d (%d settled)\n", stats.Trades, stats.Settled)
	fmt.Fprintf(c.out, "  Open positions:        %d\n", stats.OpenPositions)
	fmt.Fprintf(c.out, "  Win rate:              %.1f%%\n", stats.WinRate*100)

	fmt.Fprintf(c.out, "\n  --- P&L ---\n")
	fmt.Fprintf(c.out, "  Gross:                 $%.2f\n", stats.TotalGrossPL)
	fmt.Fprintf(c.out, "  Fees:                  $%.2f\n", stats.TotalFees)
	fmt.Fprintf(c.out, "  Net:                   $%.2f\n", stats.TotalNetPL)
	if stats.Trades > 0 {
		fmt.Fprintf(c.out, "  Net per trade:         $%.3f\n", stats.TotalNetPL/float64(stats.Trades))
	}

	fmt.Fprintf(c.out, "\n  --- VERDICT ---\n")
	switch {
	case stats.Trades < 30:
		fmt.Fprintf(c.out, "  Need at least 30 closed trades. Currently %d.\n", stats.Trades)
	case stats.TotalNetPL > 0:
		fmt.Fprintf(c.out, "  POSITIVE: paper trading is net profitable after fees.\n")
		fmt.Fprintf(c.out, "  Compare against the backtest mean before trusting it.\n")
	default:
		fmt.Fprintf(c.out, "  NEGATIVE: paper trading does not cover fees.\n")
		fmt.Fprintf(c.out, "  Do NOT use real money.\n")
	}

	fmt.Fprintln(c.out)
	return nil
}
