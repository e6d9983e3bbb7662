package backtest

import (
	"testing"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedTrade(side domain.Side, pnl, invested, fees float64, exitAt time.Time, reason domain.ExitReason) domain.BacktestTrade {
	pct := 0.0
	if invested > 0 {
		pct = pnl / invested * 100
	}
	return domain.BacktestTrade{
		Side:            side,
		AmountInvested:  invested,
		Fees:            fees,
		Pnl:             pnl,
		PnlPercentage:   pct,
		ExitTime:        exitAt,
		ExitReason:      reason,
		HoldingDuration: 12 * time.Hour,
		Status:          domain.StatusClosed,
	}
}

func TestComputeMetrics_NoTrades(t *testing.T) {
	m := ComputeMetrics(nil, nil, 10000)

	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.NetPnl)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.BestTrade)
	assert.Equal(t, 0.0, m.WorstTrade)
	assert.Empty(t, m.DailyPnl)
}

func TestComputeMetrics_Aggregates(t *testing.T) {
	trades := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 50, 100, 4, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, -20, 100, 4, t0.Add(time.Hour), domain.ExitStopLoss),
		closedTrade(domain.SideNo, 30, 100, 4, t0.Add(2*time.Hour), domain.ExitTakeProfit),
	}

	m := ComputeMetrics(trades, nil, 10000)

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 60.0, m.NetPnl, 1e-9)
	assert.InDelta(t, 12.0, m.TotalFees, 1e-9)
	assert.InDelta(t, 72.0, m.GrossPnl, 1e-9) // net + fees
	assert.InDelta(t, 0.6, m.ROIPercent, 1e-9)
	assert.InDelta(t, 100.0/1.5, m.WinRate, 1e-6) // 2/3
	assert.InDelta(t, 20.0, m.Expectancy, 1e-9)
	assert.InDelta(t, 40.0, m.AvgWin, 1e-9)
	assert.InDelta(t, 20.0, m.AvgLoss, 1e-9)
	assert.InDelta(t, 50.0, m.BestTrade, 1e-9)
	assert.InDelta(t, -20.0, m.WorstTrade, 1e-9)
	assert.InDelta(t, 80.0/20.0, m.ProfitFactor, 1e-9)
	assert.Equal(t, 2, m.ExitReasons[domain.ExitTakeProfit])
	assert.Equal(t, 1, m.ExitReasons[domain.ExitStopLoss])
}

func TestComputeMetrics_SideBreakdown(t *testing.T) {
	trades := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 50, 100, 4, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, -20, 100, 4, t0, domain.ExitStopLoss),
		closedTrade(domain.SideNo, 30, 100, 4, t0, domain.ExitTakeProfit),
	}

	m := ComputeMetrics(trades, nil, 10000)

	assert.Equal(t, 2, m.YesSide.Trades)
	assert.InDelta(t, 30.0, m.YesSide.Pnl, 1e-9)
	assert.InDelta(t, 50.0, m.YesSide.WinRate, 1e-9)
	assert.InDelta(t, 50.0, m.YesSide.AvgWin, 1e-9)
	assert.InDelta(t, 20.0, m.YesSide.AvgLoss, 1e-9)

	assert.Equal(t, 1, m.NoSide.Trades)
	assert.InDelta(t, 100.0, m.NoSide.WinRate, 1e-9)
}

func TestProfitFactor_SaturatesAt999(t *testing.T) {
	onlyWins := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 10, 100, 2, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, 20, 100, 2, t0, domain.ExitTakeProfit),
	}
	m := ComputeMetrics(onlyWins, nil, 10000)
	assert.Equal(t, 999.0, m.ProfitFactor)

	onlyLosses := []domain.BacktestTrade{
		closedTrade(domain.SideYes, -10, 100, 2, t0, domain.ExitStopLoss),
	}
	m = ComputeMetrics(onlyLosses, nil, 10000)
	assert.Equal(t, 0.0, m.ProfitFactor)
}

func TestComputeMetrics_ZeroVolatilityMeansZeroSharpe(t *testing.T) {
	// Todos los retornos idénticos: stddev 0, el sharpe no divide por cero.
	trades := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 10, 100, 2, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, 10, 100, 2, t0, domain.ExitTakeProfit),
	}
	m := ComputeMetrics(trades, nil, 10000)
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.SharpeRatio)
}

func TestComputeMetrics_StreaksResetOnZeroPnl(t *testing.T) {
	trades := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 10, 100, 2, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, 10, 100, 2, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, 0, 100, 2, t0, domain.ExitResolution), // corta la racha
		closedTrade(domain.SideYes, 10, 100, 2, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, -5, 100, 2, t0, domain.ExitStopLoss),
		closedTrade(domain.SideYes, -5, 100, 2, t0, domain.ExitStopLoss),
		closedTrade(domain.SideYes, -5, 100, 2, t0, domain.ExitStopLoss),
	}

	m := ComputeMetrics(trades, nil, 10000)

	assert.Equal(t, 2, m.MaxConsecutiveWins)
	assert.Equal(t, 3, m.MaxConsecutiveLosses)
	assert.Equal(t, 3, m.WinningTrades, "zero-pnl trade counts as neither win nor loss")
	assert.Equal(t, 3, m.LosingTrades)
}

func TestMedian_EvenCount(t *testing.T) {
	assert.InDelta(t, 2.5, median([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, 3.0, median([]float64{5, 1, 3}), 1e-9)
	assert.Equal(t, 0.0, median(nil))
}

func TestDrawdownCurve_PeakSeededAtBankroll(t *testing.T) {
	// La equity nunca supera el bankroll inicial: el drawdown se mide contra él.
	equity := []domain.EquityPoint{
		{Timestamp: t0, Equity: 9900},
		{Timestamp: t0.Add(time.Hour), Equity: 9950},
		{Timestamp: t0.Add(2 * time.Hour), Equity: 10100},
		{Timestamp: t0.Add(3 * time.Hour), Equity: 10000},
	}

	curve := drawdownCurve(equity, 10000)
	require.Len(t, curve, 4)

	assert.InDelta(t, 100.0, curve[0].Drawdown, 1e-9)
	assert.InDelta(t, 50.0, curve[1].Drawdown, 1e-9)
	assert.InDelta(t, 0.0, curve[2].Drawdown, 1e-9) // nuevo pico 10100
	assert.InDelta(t, 100.0, curve[3].Drawdown, 1e-9)

	for _, p := range curve {
		assert.GreaterOrEqual(t, p.Drawdown, 0.0)
	}
}

func TestDailyPnl_CumulativeByUTCDay(t *testing.T) {
	day1 := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 11, 23, 0, 0, 0, time.UTC)

	trades := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 10, 100, 2, day1, domain.ExitTakeProfit),
		closedTrade(domain.SideYes, 5, 100, 2, day1.Add(2*time.Hour), domain.ExitTakeProfit),
		closedTrade(domain.SideYes, -3, 100, 2, day2, domain.ExitStopLoss),
	}

	points := dailyPnl(trades)
	require.Len(t, points, 2)

	assert.InDelta(t, 15.0, points[0].Pnl, 1e-9)
	assert.InDelta(t, 15.0, points[0].Cumulative, 1e-9)
	assert.InDelta(t, -3.0, points[1].Pnl, 1e-9)
	assert.InDelta(t, 12.0, points[1].Cumulative, 1e-9)
	assert.True(t, points[0].Date.Before(points[1].Date))
}

func TestComputeMetrics_Deterministic(t *testing.T) {
	trades := []domain.BacktestTrade{
		closedTrade(domain.SideYes, 50, 100, 4, t0, domain.ExitTakeProfit),
		closedTrade(domain.SideNo, -20, 100, 4, t0.Add(time.Hour), domain.ExitStopLoss),
	}
	equity := []domain.EquityPoint{
		{Timestamp: t0, Equity: 10050},
		{Timestamp: t0.Add(time.Hour), Equity: 10030},
	}

	a := ComputeMetrics(trades, equity, 10000)
	b := ComputeMetrics(trades, equity, 10000)
	assert.Equal(t, a, b, "same snapshot must produce identical metrics")
}
