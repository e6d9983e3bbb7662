package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(runID string) *domain.BacktestResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.BacktestResult{
		RunID: runID,
		Strategy: domain.StrategyConfig{
			Name:            "test-strategy",
			StartDate:       start,
			EndDate:         start.AddDate(0, 1, 0),
			InitialBankroll: 10000,
		},
		Trades: []domain.BacktestTrade{
			{
				ID:              runID + "-t1",
				MarketID:        "mkt-1",
				ConditionID:     "0x1",
				MarketName:      "Will it rain?",
				Side:            domain.SideYes,
				EntryTime:       start.Add(24 * time.Hour),
				EntryPrice:      0.40,
				EntryReason:     domain.EntryPriceThreshold,
				ExitTime:        start.Add(48 * time.Hour),
				ExitPrice:       0.60,
				ExitReason:      domain.ExitTakeProfit,
				Shares:          250,
				AmountInvested:  100,
				Fees:            5,
				Pnl:             45,
				PnlPercentage:   45,
				HoldingDuration: 24 * time.Hour,
				Status:          domain.StatusClosed,
			},
		},
		Metrics: domain.Metrics{
			TotalTrades:        1,
			NetPnl:             45,
			ROIPercent:         0.45,
			WinRate:            100,
			ProfitFactor:       999,
			MaxDrawdownPercent: 1.2,
		},
		StartingCapital: 10000,
		EndingCapital:   10045,
		MarketsAnalyzed: 3,
		StartedAt:       time.Now().UTC(),
		ExecutionTime:   1200 * time.Millisecond,
	}
}

func TestSaveRun_AndGetRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sampleResult("run-1")))

	runs, err := store.GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "test-strategy", r.StrategyName)
	assert.Equal(t, 3, r.MarketsAnalyzed)
	assert.Equal(t, 1, r.TotalTrades)
	assert.InDelta(t, 45.0, r.NetPnl, 1e-9)
	assert.InDelta(t, 0.45, r.ROIPercent, 1e-9)
	assert.InDelta(t, 100.0, r.WinRate, 1e-9)
	assert.InDelta(t, 1.2, r.MaxDrawdownPct, 1e-9)
	assert.WithinDuration(t, time.Now().UTC(), r.StartedAt, time.Minute)
}

func TestGetRuns_NewestFirstAndLimited(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		res := sampleResult(id)
		res.StartedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveRun(ctx, res))
	}

	runs, err := store.GetRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)
}

func TestSaveRun_PersistsTrades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sampleResult("run-1")))

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM run_trades WHERE run_id = ?`, "run-1").Scan(&count))
	assert.Equal(t, 1, count)

	var side, reason string
	var pnl float64
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT side, exit_reason, pnl FROM run_trades WHERE run_id = ?`, "run-1").
		Scan(&side, &reason, &pnl))
	assert.Equal(t, "YES", side)
	assert.Equal(t, "TAKE_PROFIT", reason)
	assert.InDelta(t, 45.0, pnl, 1e-9)
}

func TestSaveRun_StoresStrategyYAML(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sampleResult("run-1")))

	var configYAML string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT config_yaml FROM runs WHERE id = ?`, "run-1").Scan(&configYAML))
	assert.Contains(t, configYAML, "test-strategy")
	assert.Contains(t, configYAML, "initial_bankroll")
}

func TestGetRuns_DefaultLimit(t *testing.T) {
	store := newTestStore(t)
	runs, err := store.GetRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
