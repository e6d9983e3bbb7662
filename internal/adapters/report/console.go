package report

// console.go — presentación del resultado en consola.
//
// Dos modos, como el resto de la tooling: compacto (una línea con lo esencial,
// para correr estrategias en batch) y tabla completa con métricas, desglose
// por lado, distribución de salidas y los trades individuales.

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// maxTradesShown limita la tabla de trades del modo completo.
const maxTradesShown = 25

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Report imprime el resultado en el modo configurado.
func (c *Console) Report(_ context.Context, result *domain.BacktestResult) error {
	if c.table {
		c.printFull(result)
	} else {
		c.printCompact(result)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r *domain.BacktestResult) {
	m := r.Metrics
	fmt.Fprintf(c.out, "[%s] %s | mkts:%d trades:%d wr:%.1f%% pnl:$%.2f roi:%.2f%% dd:%.1f%% pf:%.2f\n",
		time.Now().Format("15:04:05"),
		strategyLabel(r),
		r.MarketsAnalyzed,
		m.TotalTrades,
		m.WinRate,
		m.NetPnl,
		m.ROIPercent,
		m.MaxDrawdownPercent,
		m.ProfitFactor,
	)
}

// printFull imprime el informe completo.
func (c *Console) printFull(r *domain.BacktestResult) {
	m := r.Metrics

	fmt.Fprintf(c.out, "\n=== BACKTEST %s ===\n", strategyLabel(r))
	fmt.Fprintf(c.out, "%s → %s | %d markets | run %s | %s\n\n",
		r.Strategy.StartDate.Format(time.DateOnly),
		r.Strategy.EndDate.Format(time.DateOnly),
		r.MarketsAnalyzed,
		shortID(r.RunID),
		r.ExecutionTime.Round(time.Millisecond),
	)

	c.printSummary(r)
	c.printSideSplit(m)
	c.printExitReasons(m)
	c.printTrades(r.Trades)
	c.printDebug(r.Debug)
}

func (c *Console) printSummary(r *domain.BacktestResult) {
	m := r.Metrics
	table := tablewriter.NewWriter(c.out)
	table.Header("Capital", "Net PnL", "ROI", "Trades", "Win rate", "PF", "Sharpe", "Max DD", "Fees")
	table.Append(
		fmt.Sprintf("$%.2f → $%.2f", r.StartingCapital, r.EndingCapital),
		fmt.Sprintf("$%.2f", m.NetPnl),
		fmt.Sprintf("%.2f%%", m.ROIPercent),
		fmt.Sprintf("%d (%dW/%dL)", m.TotalTrades, m.WinningTrades, m.LosingTrades),
		fmt.Sprintf("%.1f%%", m.WinRate),
		fmt.Sprintf("%.2f", m.ProfitFactor),
		fmt.Sprintf("%.3f", m.SharpeRatio),
		fmt.Sprintf("$%.2f (%.1f%%)", m.MaxDrawdown, m.MaxDrawdownPercent),
		fmt.Sprintf("$%.2f", m.TotalFees),
	)
	table.Render()

	fmt.Fprintf(c.out, "avg win $%.2f | avg loss $%.2f | best $%.2f | worst $%.2f | expectancy $%.2f | avg hold %.1fh | streaks W%d/L%d\n\n",
		m.AvgWin, m.AvgLoss, m.BestTrade, m.WorstTrade,
		m.Expectancy, m.AvgHoldingHours,
		m.MaxConsecutiveWins, m.MaxConsecutiveLosses,
	)
}

func (c *Console) printSideSplit(m domain.Metrics) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Side", "Trades", "Win rate", "PnL", "Avg win", "Avg loss")
	for _, row := range []struct {
		name  string
		stats domain.SideStats
	}{
		{"YES", m.YesSide},
		{"NO", m.NoSide},
	} {
		table.Append(
			row.name,
			fmt.Sprintf("%d", row.stats.Trades),
			fmt.Sprintf("%.1f%%", row.stats.WinRate),
			fmt.Sprintf("$%.2f", row.stats.Pnl),
			fmt.Sprintf("$%.2f", row.stats.AvgWin),
			fmt.Sprintf("$%.2f", row.stats.AvgLoss),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

func (c *Console) printExitReasons(m domain.Metrics) {
	if len(m.ExitReasons) == 0 {
		return
	}

	reasons := make([]domain.ExitReason, 0, len(m.ExitReasons))
	for r := range m.ExitReasons {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		return m.ExitReasons[reasons[i]] > m.ExitReasons[reasons[j]]
	})

	fmt.Fprint(c.out, "exits:")
	for _, r := range reasons {
		fmt.Fprintf(c.out, " %s:%d", r, m.ExitReasons[r])
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out)
}

func (c *Console) printTrades(trades []domain.BacktestTrade) {
	if len(trades) == 0 {
		fmt.Fprintln(c.out, "no trades closed")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Side", "Entry", "Exit", "Shares", "PnL", "PnL %", "Hold", "Reason")

	shown := len(trades)
	if shown > maxTradesShown {
		shown = maxTradesShown
	}

	for i := 0; i < shown; i++ {
		t := trades[i]
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(t.MarketName, 32),
			string(t.Side),
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.ExitPrice),
			fmt.Sprintf("%.1f", t.Shares),
			fmt.Sprintf("$%.2f", t.Pnl),
			fmt.Sprintf("%.1f%%", t.PnlPercentage),
			fmt.Sprintf("%.0fh", t.HoldingDuration.Hours()),
			exitLabel(t),
		)
	}
	table.Render()

	if len(trades) > shown {
		fmt.Fprintf(c.out, "... and %d more trades (use -export for the full table)\n", len(trades)-shown)
	}
}

func (c *Console) printDebug(d domain.DebugInfo) {
	fmt.Fprintf(c.out, "\ndata: %d/%d markets with candles | %d/%d valid candlesticks | %d entry attempts\n",
		d.MarketsWithData, d.MarketsProcessed,
		d.ValidCandlesticks, d.TotalCandlesticks,
		d.EntryAttempts,
	)
	for _, reason := range d.Reasons {
		fmt.Fprintf(c.out, "  - %s\n", reason)
	}
}

// PrintHistory imprime el historial de runs persistidos.
func (c *Console) PrintHistory(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no backtest runs stored")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Date", "Strategy", "Markets", "Trades", "Win rate", "Net PnL", "ROI", "Max DD")
	for _, r := range runs {
		table.Append(
			shortID(r.RunID),
			r.StartedAt.Format("2006-01-02 15:04"),
			truncate(r.StrategyName, 28),
			fmt.Sprintf("%d", r.MarketsAnalyzed),
			fmt.Sprintf("%d", r.TotalTrades),
			fmt.Sprintf("%.1f%%", r.WinRate),
			fmt.Sprintf("$%.2f", r.NetPnl),
			fmt.Sprintf("%.2f%%", r.ROIPercent),
			fmt.Sprintf("%.1f%%", r.MaxDrawdownPct),
		)
	}
	table.Render()
}

func strategyLabel(r *domain.BacktestResult) string {
	if r.Strategy.Name != "" {
		return r.Strategy.Name
	}
	return shortID(r.RunID)
}

func exitLabel(t domain.BacktestTrade) string {
	if t.PartialExitNumber > 0 {
		return fmt.Sprintf("%s (#%d)", t.ExitReason, t.PartialExitNumber)
	}
	return string(t.ExitReason)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
