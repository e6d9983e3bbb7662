package domain

import "time"

// BacktestResult es el resultado completo de una invocación del engine.
// Se crea fresco por run y no comparte estado mutable con runs anteriores.
type BacktestResult struct {
	RunID           string
	Strategy        StrategyConfig
	Trades          []BacktestTrade // trades cerrados, en orden de cierre
	Metrics         Metrics
	EquityCurve     []EquityPoint
	StartingCapital float64
	EndingCapital   float64
	MarketsAnalyzed int
	StartedAt       time.Time
	ExecutionTime   time.Duration
	Debug           DebugInfo
}

// DebugInfo son los diagnósticos estructurados del run: cuánta data hubo
// y por qué un mercado pudo no producir trades. Nunca es fatal.
type DebugInfo struct {
	MarketsProcessed  int
	MarketsWithData   int
	TotalCandlesticks int
	ValidCandlesticks int
	EntryAttempts     int
	Reasons           []string
}

// AddReason registra un diagnóstico de texto libre.
func (d *DebugInfo) AddReason(reason string) {
	d.Reasons = append(d.Reasons, reason)
}

// Metrics son las estadísticas agregadas y distribucionales del run.
// Es una función pura de (trades cerrados, curva de equity, bankroll inicial).
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // % de trades ganadores, 0 sin trades

	// P&L agregado. Pnl de cada trade ya viene neto de fees, así que
	// NetPnl = Σ pnl y GrossPnl lo re-expande sumando los fees pagados.
	GrossPnl   float64
	NetPnl     float64
	TotalFees  float64
	ROIPercent float64

	AvgWin     float64
	AvgLoss    float64 // valor absoluto
	BestTrade  float64
	WorstTrade float64
	MedianWin  float64
	MedianLoss float64

	YesSide SideStats
	NoSide  SideStats

	ExitReasons map[ExitReason]int

	MaxDrawdown        float64
	MaxDrawdownPercent float64

	Volatility  float64 // stddev de los retornos por trade
	SharpeRatio float64 // media/stddev de retornos, 0 con volatilidad 0
	Expectancy  float64 // P&L total / nº de trades cerrados

	AvgHoldingHours      float64
	MedianHoldingHours   float64
	AvgCapitalAllocation float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int

	// Gross win / gross loss. 999 si hay ganancias y ninguna pérdida
	// (centinela saturante, nunca Inf); 0 si no hay ni unas ni otras.
	ProfitFactor float64

	DailyPnl           []DailyPnlPoint
	DrawdownCurve      []DrawdownPoint
	CapitalUtilization []UtilizationPoint
}

// SideStats es el desglose de rendimiento de un lado (YES o NO).
type SideStats struct {
	Trades  int
	Wins    int
	WinRate float64
	Pnl     float64
	AvgWin  float64
	AvgLoss float64
}

// DailyPnlPoint es el P&L realizado agrupado por día de salida (UTC).
type DailyPnlPoint struct {
	Date       time.Time
	Pnl        float64
	Cumulative float64
}

// DrawdownPoint es el drawdown re-derivado por punto de la curva de equity,
// con el pico sembrado en el bankroll inicial.
type DrawdownPoint struct {
	Timestamp          time.Time
	Drawdown           float64
	DrawdownPercentage float64
}

// UtilizationPoint aproxima el capital en uso a lo largo del run. Se deriva
// de la serie de equity/drawdown, no de un conteo preciso de posiciones
// abiertas por vela — es una aproximación conocida, no una métrica exacta.
type UtilizationPoint struct {
	Timestamp          time.Time
	CapitalInUse       float64
	UtilizationPercent float64
}

// RunSummary es la fila resumida de un run persistido, para el historial.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	StrategyName    string
	MarketsAnalyzed int
	TotalTrades     int
	NetPnl          float64
	ROIPercent      float64
	MaxDrawdownPct  float64
	WinRate         float64
}
