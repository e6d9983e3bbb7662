package backtest

// metrics.go — estadísticas de rendimiento del run.
//
// ComputeMetrics es una función pura de (trades cerrados, curva de equity,
// bankroll inicial): sin estado oculto, dos llamadas sobre el mismo snapshot
// producen salida idéntica bit a bit. Cada denominador potencialmente cero
// tiene un fallback explícito documentado — nunca NaN ni Inf.

import (
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// profitFactorCap es el centinela saturante para ganancias sin pérdidas.
const profitFactorCap = 999

// ComputeMetrics calcula todas las estadísticas agregadas y las series
// temporales del resultado.
func ComputeMetrics(trades []domain.BacktestTrade, equity []domain.EquityPoint, initialBankroll float64) domain.Metrics {
	m := domain.Metrics{
		TotalTrades: len(trades),
		ExitReasons: make(map[domain.ExitReason]int),
	}

	var (
		wins, losses                []float64 // pnl de ganadores / |pnl| de perdedores
		returns                     []float64 // pnlPct/100 por trade, en orden de cierre
		holdingHours                []float64
		totalWin, totalLoss         float64
		totalAllocation             float64
		curWinStreak, curLossStreak int
	)

	m.BestTrade = math.Inf(-1)
	m.WorstTrade = math.Inf(1)

	for _, t := range trades {
		m.NetPnl += t.Pnl
		m.TotalFees += t.Fees
		totalAllocation += t.CapitalAllocation
		returns = append(returns, t.PnlPercentage/100)
		holdingHours = append(holdingHours, t.HoldingDuration.Hours())
		m.ExitReasons[t.ExitReason]++

		if t.Pnl > m.BestTrade {
			m.BestTrade = t.Pnl
		}
		if t.Pnl < m.WorstTrade {
			m.WorstTrade = t.Pnl
		}

		switch {
		case t.Pnl > 0:
			m.WinningTrades++
			wins = append(wins, t.Pnl)
			totalWin += t.Pnl
			curWinStreak++
			curLossStreak = 0
		case t.Pnl < 0:
			m.LosingTrades++
			loss := math.Abs(t.Pnl)
			losses = append(losses, loss)
			totalLoss += loss
			curLossStreak++
			curWinStreak = 0
		default:
			// Trades a P&L exactamente 0 no cuentan como win ni loss
			// y cortan ambas rachas.
			curWinStreak = 0
			curLossStreak = 0
		}

		if curWinStreak > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = curWinStreak
		}
		if curLossStreak > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = curLossStreak
		}
	}

	if m.TotalTrades == 0 {
		m.BestTrade = 0
		m.WorstTrade = 0
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.Expectancy = m.NetPnl / float64(m.TotalTrades)
		m.AvgHoldingHours = mean(holdingHours)
		m.MedianHoldingHours = median(holdingHours)
		m.AvgCapitalAllocation = totalAllocation / float64(m.TotalTrades)
	}

	m.GrossPnl = m.NetPnl + m.TotalFees
	if initialBankroll > 0 {
		m.ROIPercent = m.NetPnl / initialBankroll * 100
	}

	m.AvgWin = mean(wins)
	m.AvgLoss = mean(losses)
	m.MedianWin = median(wins)
	m.MedianLoss = median(losses)

	m.YesSide = sideStats(trades, domain.SideYes)
	m.NoSide = sideStats(trades, domain.SideNo)

	m.ProfitFactor = profitFactor(totalWin, totalLoss)

	m.Volatility = stddev(returns)
	if m.Volatility > 0 {
		m.SharpeRatio = mean(returns) / m.Volatility
	}

	m.DrawdownCurve = drawdownCurve(equity, initialBankroll)
	for _, p := range m.DrawdownCurve {
		if p.Drawdown > m.MaxDrawdown {
			m.MaxDrawdown = p.Drawdown
		}
		if p.DrawdownPercentage > m.MaxDrawdownPercent {
			m.MaxDrawdownPercent = p.DrawdownPercentage
		}
	}

	m.DailyPnl = dailyPnl(trades)
	m.CapitalUtilization = capitalUtilization(m.DrawdownCurve, initialBankroll)

	return m
}

// sideStats calcula el desglose de rendimiento para un lado.
func sideStats(trades []domain.BacktestTrade, side domain.Side) domain.SideStats {
	var s domain.SideStats
	var totalWin, totalLoss float64
	var lossCount int

	for _, t := range trades {
		if t.Side != side {
			continue
		}
		s.Trades++
		s.Pnl += t.Pnl
		if t.Pnl > 0 {
			s.Wins++
			totalWin += t.Pnl
		} else if t.Pnl < 0 {
			lossCount++
			totalLoss += math.Abs(t.Pnl)
		}
	}

	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = totalWin / float64(s.Wins)
	}
	if lossCount > 0 {
		s.AvgLoss = totalLoss / float64(lossCount)
	}
	return s
}

// profitFactor devuelve gross win / gross loss, saturado en 999 cuando hay
// ganancias sin ninguna pérdida, y 0 cuando no hay ni unas ni otras.
func profitFactor(totalWin, totalLoss float64) float64 {
	switch {
	case totalLoss > 0:
		return totalWin / totalLoss
	case totalWin > 0:
		return profitFactorCap
	}
	return 0
}

// drawdownCurve re-deriva el drawdown por punto con el pico sembrado en el
// bankroll inicial. Nunca produce valores negativos.
func drawdownCurve(equity []domain.EquityPoint, initialBankroll float64) []domain.DrawdownPoint {
	curve := make([]domain.DrawdownPoint, 0, len(equity))
	peak := initialBankroll

	for _, p := range equity {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd < 0 {
			dd = 0
		}
		var ddPct float64
		if peak > 0 {
			ddPct = dd / peak * 100
		}
		curve = append(curve, domain.DrawdownPoint{
			Timestamp:          p.Timestamp,
			Drawdown:           dd,
			DrawdownPercentage: ddPct,
		})
	}
	return curve
}

// dailyPnl agrupa el P&L realizado por día de salida (UTC) con total acumulado.
func dailyPnl(trades []domain.BacktestTrade) []domain.DailyPnlPoint {
	byDay := make(map[time.Time]float64)
	for _, t := range trades {
		day := t.ExitTime.UTC().Truncate(24 * time.Hour)
		byDay[day] += t.Pnl
	}

	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]domain.DailyPnlPoint, 0, len(days))
	var cumulative float64
	for _, d := range days {
		cumulative += byDay[d]
		points = append(points, domain.DailyPnlPoint{
			Date:       d,
			Pnl:        byDay[d],
			Cumulative: cumulative,
		})
	}
	return points
}

// capitalUtilization aproxima el capital en uso desde la serie de drawdown.
// No es un conteo preciso de posiciones abiertas por vela: la curva de equity
// valora posiciones a coste, así que el drawdown re-derivado es la mejor señal
// disponible de capital comprometido sin re-instrumentar el replay.
func capitalUtilization(drawdowns []domain.DrawdownPoint, initialBankroll float64) []domain.UtilizationPoint {
	points := make([]domain.UtilizationPoint, 0, len(drawdowns))
	for _, d := range drawdowns {
		var pct float64
		if initialBankroll > 0 {
			pct = d.Drawdown / initialBankroll * 100
		}
		points = append(points, domain.UtilizationPoint{
			Timestamp:          d.Timestamp,
			CapitalInUse:       d.Drawdown,
			UtilizationPercent: pct,
		})
	}
	return points
}

// --- helpers estadísticos ---

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// median devuelve la mediana; con longitud par, la media de los dos centrales.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
