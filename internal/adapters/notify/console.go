package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/fadebot/internal/application/backtest"
	"github.com/alejandrodnm/fadebot/internal/domain"
	"github.com/alejandrodnm/fadebot/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier y ports.PaperNotifier.
type Console struct {
	out      io.Writer
	table    bool
	validate bool
}

var (
	_ ports.Notifier      = (*Console)(nil)
	_ ports.PaperNotifier = (*Console)(nil)
)

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table, validate bool) *Console {
	return &Console{out: os.Stdout, table: table, validate: validate}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table, validate bool) *Console {
	return &Console{out: w, table: table, validate: validate}
}

// NotifySearch imprime el resumen del grid y las top estrategias por Sharpe.
func (c *Console) NotifySearch(_ context.Context, run domain.SearchRun, top int) error {
	ranked := backtest.RankBySharpe(run.Results)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	if !c.table {
		c.printCompact(run, ranked)
		return nil
	}

	c.printSummary(run)
	if len(ranked) == 0 {
		fmt.Fprintf(c.out, "\n  ⚠ Ninguna celda llegó a min_trades\n\n")
		return nil
	}
	c.printTable(ranked)
	if c.validate {
		c.printValidation(ranked)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(run domain.SearchRun, ranked []domain.StrategyResult) {
	s := run.Summary
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d cells → valid:%d insuf:%d | naive:%d bonf:%d fdr:%d (N=%d)",
		time.Now().Format("15:04:05"), s.CellsAttempted, s.CellsValid, s.CellsInsufficientData,
		s.NaiveSignificant, s.BonferroniSignificant, s.FDRSignificant, s.FamilySize)
	for i, r := range ranked {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s sh%.2f p%.4f %s", r.Signal, r.Stats.SharpeRatio, r.Stats.PValue, verdict(r))
	}
	fmt.Fprintln(c.out, sb.String())
}

// printSummary imprime el resumen del grid: qué proporción fue evaluable y
// cuánto sobrevive a cada corrección.
func (c *Console) printSummary(run domain.SearchRun) {
	s := run.Summary
	fmt.Fprintf(c.out, "\n=== GRID SEARCH %s (%d games, %s) ===\n",
		shortID(run.ID), run.Games, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(c.out, "  Cells attempted:         %d\n", s.CellsAttempted)
	fmt.Fprintf(c.out, "  Insufficient data:       %d (%.0f%%)\n", s.CellsInsufficientData, pct(s.CellsInsufficientData, s.CellsAttempted))
	fmt.Fprintf(c.out, "  Valid (>= min trades):   %d\n", s.CellsValid)
	fmt.Fprintf(c.out, "  ─────────────────────────────────────────────\n")
	fmt.Fprintf(c.out, "  Naive p < %.2f:          %d\n", s.Alpha, s.NaiveSignificant)
	fmt.Fprintf(c.out, "  Bonferroni (p < %.2g):  %d\n", s.Alpha/float64(max(s.FamilySize, 1)), s.BonferroniSignificant)
	fmt.Fprintf(c.out, "  Benjamini-Hochberg FDR:  %d   (family N=%d)\n", s.FDRSignificant, s.FamilySize)
	if s.NaiveSignificant > s.FDRSignificant {
		fmt.Fprintf(c.out, "  >>> %d naive hits do not survive correction\n", s.NaiveSignificant-s.FDRSignificant)
	}
}

// printTable imprime las top estrategias.
func (c *Console) printTable(ranked []domain.StrategyResult) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Strategy", "N", "Win%", "Win CI", "Mean$", "Sharpe", "MaxDD", "p", "q", "Robust", "Verdict")

	for i, r := range ranked {
		st := r.Stats
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(r.Signal, 32),
			fmt.Sprintf("%d", st.N),
			fmt.Sprintf("%.1f", st.WinRate*100),
			fmt.Sprintf("%.0f-%.0f", st.WinRateCI.Low*100, st.WinRateCI.High*100),
			fmt.Sprintf("$%.3f", st.MeanNetPL),
			sharpeLabel(st),
			fmt.Sprintf("$%.2f", st.MaxDrawdown),
			fmt.Sprintf("%.4f", st.PValue),
			fmt.Sprintf("%.4f", r.FDRQValue),
			robustLabel(r.Robustness),
			verdict(r),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Win CI = Wilson 95% | q = BH-adjusted p | Robust = 1st vs 2nd half t-test")
	fmt.Fprintln(c.out, "  Verdict: BONF > FDR > NAIVE (not corrected) > NOISE")
}

// printValidation imprime el detalle de los top 3.
func (c *Console) printValidation(ranked []domain.StrategyResult) {
	top := ranked
	if len(top) > 3 {
		top = ranked[:3]
	}

	fmt.Fprintln(c.out, "\n=== VALIDATION — step-by-step ===")
	for i, r := range top {
		st, rb := r.Stats, r.Robustness
		fmt.Fprintf(c.out, "\n--- #%d: %s [%s] ---\n", i+1, r.Signal, verdict(r))

		fmt.Fprintf(c.out, "\n  1. TRADES:\n")
		fmt.Fprintf(c.out, "     n=%d  wins=%d  losses=%d  games=%d  (%.1f/game)\n",
			st.N, st.Wins, st.Losses, st.GamesTraded, st.TradesPerGame)
		fmt.Fprintf(c.out, "     gross=$%.2f  fees=$%.2f  net=$%.2f\n", st.TotalGrossPL, st.TotalFees, st.TotalNetPL)
		fmt.Fprintf(c.out, "     avg win=$%.3f  avg loss=$%.3f  profit factor=%s\n",
			st.AvgWin, st.AvgLoss, profitFactorLabel(st))

		fmt.Fprintf(c.out, "\n  2. DISTRIBUTION:\n")
		fmt.Fprintf(c.out, "     mean=$%.4f  median=$%.4f  std=$%.4f\n", st.MeanNetPL, st.MedianNetPL, st.StdNetPL)
		fmt.Fprintf(c.out, "     bootstrap 95%% CI: [$%.4f, $%.4f]  P(mean>0)=%.1f%%\n",
			st.BootstrapCI.Low, st.BootstrapCI.High, st.ProbProfitable*100)
		fmt.Fprintf(c.out, "     sharpe=%s  CI [%.2f, %.2f]  cohen d=%.3f  max DD=$%.2f\n",
			sharpeLabel(st), st.SharpeCI.Low, st.SharpeCI.High, st.CohensD, st.MaxDrawdown)

		fmt.Fprintf(c.out, "\n  3. SIGNIFICANCE:\n")
		fmt.Fprintf(c.out, "     t=%.3f  p=%.5f  win-rate binomial p=%.5f\n", st.TStatistic, st.PValue, st.WinRatePValue)
		fmt.Fprintf(c.out, "     bonferroni p=%.5f %s  BH q=%.5f %s\n",
			r.BonferroniPValue, mark(r.BonferroniSignificant), r.FDRQValue, mark(r.FDRSignificant))

		fmt.Fprintf(c.out, "\n  4. TEMPORAL ROBUSTNESS (heuristic):\n")
		if !rb.Evaluable {
			fmt.Fprintf(c.out, "     not evaluable (1st half n=%d, 2nd half n=%d)\n", rb.FirstHalfN, rb.SecondHalfN)
			continue
		}
		fmt.Fprintf(c.out, "     1st half mean=$%.4f (n=%d)  2nd half mean=$%.4f (n=%d)\n",
			rb.FirstHalfMean, rb.FirstHalfN, rb.SecondHalfMean, rb.SecondHalfN)
		fmt.Fprintf(c.out, "     t=%.3f  p=%.4f  consistent %s\n", rb.TStatistic, rb.PValue, mark(rb.Consistent))
	}
	fmt.Fprintln(c.out)
}

// PrintResult imprime una única estrategia evaluada fuera del grid.
func (c *Console) PrintResult(r domain.StrategyResult) {
	c.printTable([]domain.StrategyResult{r})
	c.printValidation([]domain.StrategyResult{r})
}

// PrintRuns lista los grids guardados.
func (c *Console) PrintRuns(runs []ports.RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No search runs stored.")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Started", "Games", "Cells", "Valid", "Bonf", "FDR", "N")
	for _, r := range runs {
		s := r.Summary
		table.Append(
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", r.Games),
			fmt.Sprintf("%d", s.CellsAttempted),
			fmt.Sprintf("%d", s.CellsValid),
			fmt.Sprintf("%d", s.BonferroniSignificant),
			fmt.Sprintf("%d", s.FDRSignificant),
			fmt.Sprintf("%d", s.FamilySize),
		)
	}
	table.Render()
}

// --- helpers ---

// verdict resume la evidencia de una celda.
func verdict(r domain.StrategyResult) string {
	switch {
	case r.Stats.MeanNetPL <= 0:
		return "NOISE"
	case r.BonferroniSignificant:
		return "BONF"
	case r.FDRSignificant:
		return "FDR"
	case r.Stats.PValue < 0.05:
		return "NAIVE"
	default:
		return "NOISE"
	}
}

func sharpeLabel(st domain.StatsBundle) string {
	if st.Degenerate {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", st.SharpeRatio)
}

func profitFactorLabel(st domain.StatsBundle) string {
	if st.ProfitFactorUnbounded {
		return "∞ (no losses)"
	}
	return fmt.Sprintf("%.2f", st.ProfitFactor)
}

func robustLabel(rb domain.Robustness) string {
	switch {
	case !rb.Evaluable:
		return "-"
	case rb.Consistent:
		return "✓"
	default:
		return "✗"
	}
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
