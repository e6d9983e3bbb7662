package storage

// sqlite.go — persistencia del historial de backtests.
//
// Estrategia:
//   - `runs`: una fila por backtest con el resumen de métricas y la config
//     de la estrategia serializada en YAML, para poder reproducir el run.
//   - `run_trades`: una fila por trade cerrado, la tabla desnormalizada que
//     consumen los exports y el historial.
//   - Prune automático al arrancar: runs de más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por backtest ejecutado
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    started_at       DATETIME NOT NULL,
    strategy_name    TEXT,
    start_date       DATETIME NOT NULL,
    end_date         DATETIME NOT NULL,
    markets_analyzed INTEGER  NOT NULL DEFAULT 0,
    total_trades     INTEGER  NOT NULL DEFAULT 0,
    starting_capital REAL     NOT NULL DEFAULT 0,
    ending_capital   REAL     NOT NULL DEFAULT 0,
    net_pnl          REAL     NOT NULL DEFAULT 0,
    roi_pct          REAL     NOT NULL DEFAULT 0,
    win_rate         REAL     NOT NULL DEFAULT 0,
    profit_factor    REAL     NOT NULL DEFAULT 0,
    max_drawdown_pct REAL     NOT NULL DEFAULT 0,
    execution_ms     INTEGER  NOT NULL DEFAULT 0,
    config_yaml      TEXT
);

-- Una fila por trade cerrado (incluye registros de salidas parciales)
CREATE TABLE IF NOT EXISTS run_trades (
    id             TEXT PRIMARY KEY,
    run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    market_id      TEXT NOT NULL,
    condition_id   TEXT,
    market_name    TEXT,
    side           TEXT NOT NULL,
    entry_time     DATETIME NOT NULL,
    entry_price    REAL NOT NULL,
    entry_reason   TEXT,
    exit_time      DATETIME NOT NULL,
    exit_price     REAL NOT NULL,
    exit_reason    TEXT NOT NULL,
    shares         REAL NOT NULL,
    amount         REAL NOT NULL,
    fees           REAL NOT NULL,
    pnl            REAL NOT NULL,
    pnl_pct        REAL NOT NULL,
    holding_hours  REAL NOT NULL,
    partial_number INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started   ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_run     ON run_trades(run_id);
CREATE INDEX IF NOT EXISTS idx_trades_market  ON run_trades(run_id, market_id);
`

// retentionRuns es cuánto historial de runs se conserva.
const retentionRuns = 90 * 24 * time.Hour

// SQLiteStore implementa ports.RunStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveRun persiste el run y sus trades cerrados en una sola transacción.
func (s *SQLiteStore) SaveRun(ctx context.Context, result *domain.BacktestResult) error {
	configYAML, err := yaml.Marshal(result.Strategy)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: marshal strategy: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, started_at, strategy_name, start_date, end_date,
			 markets_analyzed, total_trades, starting_capital, ending_capital,
			 net_pnl, roi_pct, win_rate, profit_factor, max_drawdown_pct,
			 execution_ms, config_yaml)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		result.Strategy.Name,
		result.Strategy.StartDate,
		result.Strategy.EndDate,
		result.MarketsAnalyzed,
		result.Metrics.TotalTrades,
		result.StartingCapital,
		result.EndingCapital,
		result.Metrics.NetPnl,
		result.Metrics.ROIPercent,
		result.Metrics.WinRate,
		result.Metrics.ProfitFactor,
		result.Metrics.MaxDrawdownPercent,
		result.ExecutionTime.Milliseconds(),
		string(configYAML),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades
			(id, run_id, market_id, condition_id, market_name, side,
			 entry_time, entry_price, entry_reason,
			 exit_time, exit_price, exit_reason,
			 shares, amount, fees, pnl, pnl_pct, holding_hours, partial_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare trades: %w", err)
	}
	defer stmt.Close()

	for _, t := range result.Trades {
		if _, err := stmt.ExecContext(ctx,
			t.ID,
			result.RunID,
			t.MarketID,
			t.ConditionID,
			t.MarketName,
			string(t.Side),
			t.EntryTime,
			t.EntryPrice,
			string(t.EntryReason),
			t.ExitTime,
			t.ExitPrice,
			string(t.ExitReason),
			t.Shares,
			t.AmountInvested,
			t.Fees,
			t.Pnl,
			t.PnlPercentage,
			t.HoldingDuration.Hours(),
			t.PartialExitNumber,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert trade %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve los últimos runs, el más reciente primero.
func (s *SQLiteStore) GetRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, strategy_name, markets_analyzed, total_trades,
		       net_pnl, roi_pct, max_drawdown_pct, win_rate
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var startedAt string
		if err := rows.Scan(
			&r.RunID,
			&startedAt,
			&r.StrategyName,
			&r.MarketsAnalyzed,
			&r.TotalTrades,
			&r.NetPnl,
			&r.ROIPercent,
			&r.MaxDrawdownPct,
			&r.WinRate,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	// started_at se guarda como RFC3339 UTC: la comparación lexicográfica
	// coincide con la temporal.
	cutoff := time.Now().UTC().Add(-retentionRuns).Format(time.RFC3339Nano)
	s.db.ExecContext(ctx, `DELETE FROM run_trades WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
}
