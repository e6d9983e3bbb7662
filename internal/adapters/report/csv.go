package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// ExportCSV escribe la tabla desnormalizada de trades a un archivo CSV:
// una fila por trade cerrado o parcialmente cerrado.
func ExportCSV(path string, result *domain.BacktestResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report.ExportCSV: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"trade_id", "run_id", "market_id", "condition_id", "market_name",
		"side", "status", "entry_time", "entry_price", "entry_reason",
		"exit_time", "exit_price", "exit_reason", "partial_number",
		"shares", "amount_invested", "fees", "pnl", "pnl_pct",
		"holding_hours", "capital_allocation_pct",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("report.ExportCSV: write header: %w", err)
	}

	for _, t := range result.Trades {
		row := []string{
			t.ID,
			result.RunID,
			t.MarketID,
			t.ConditionID,
			t.MarketName,
			string(t.Side),
			string(t.Status),
			t.EntryTime.UTC().Format(time.RFC3339),
			formatFloat(t.EntryPrice),
			string(t.EntryReason),
			t.ExitTime.UTC().Format(time.RFC3339),
			formatFloat(t.ExitPrice),
			string(t.ExitReason),
			strconv.Itoa(t.PartialExitNumber),
			formatFloat(t.Shares),
			formatFloat(t.AmountInvested),
			formatFloat(t.Fees),
			formatFloat(t.Pnl),
			formatFloat(t.PnlPercentage),
			formatFloat(t.HoldingDuration.Hours()),
			formatFloat(t.CapitalAllocation),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report.ExportCSV: write trade %s: %w", t.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report.ExportCSV: flush: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
