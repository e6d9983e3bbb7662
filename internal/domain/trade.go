package domain

import "time"

// TradeStatus es el estado del ciclo de vida de una posición simulada.
type TradeStatus string

const (
	StatusOpen    TradeStatus = "OPEN"
	StatusPartial TradeStatus = "PARTIAL" // queda remanente tras una salida parcial
	StatusClosed  TradeStatus = "CLOSED"
)

// ExitReason indica qué regla cerró (o cerró parcialmente) la posición.
type ExitReason string

const (
	ExitResolution   ExitReason = "RESOLUTION"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTakeProfit   ExitReason = "TAKE_PROFIT"
	ExitMaxHoldTime  ExitReason = "MAX_HOLD_TIME"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitPartial1     ExitReason = "PARTIAL_EXIT_1"
	ExitPartial2     ExitReason = "PARTIAL_EXIT_2"
)

// EntryReason indica por qué se abrió la posición.
type EntryReason string

const (
	EntryPriceThreshold EntryReason = "PRICE_THRESHOLD" // el lado tenía banda de precio configurada
	EntryMarketEntry    EntryReason = "MARKET_ENTRY"    // entrada incondicional
)

// BacktestTrade es una posición simulada sobre un lado de un mercado.
// El ledger es el único dueño de sus transiciones de estado: los campos de
// salida solo se escriben al cerrar, y los de parciales solo al ejecutar una.
type BacktestTrade struct {
	ID          string
	MarketID    string
	ConditionID string
	MarketName  string
	Side        Side

	EntryTime      time.Time
	EntryPrice     float64
	EntryReason    EntryReason
	Shares         float64
	AmountInvested float64
	Fees           float64 // acumula fee de entrada + cada fee de salida
	Status         TradeStatus

	// Asignación de capital de la entrada como % del bankroll inicial.
	CapitalAllocation float64

	// Pico de P&L no realizado en %, actualizado en cada vela. Dispara el
	// trailing stop: el retroceso se mide desde este máximo, no desde la entrada.
	PeakPnlPercentage float64

	// Contabilidad de salidas parciales sobre la posición original.
	PartialExitsTaken int
	PartialExitNumber int     // en el registro de una salida parcial: 1 o 2
	OriginalShares    float64 // shares al abrir, antes de cualquier parcial

	// Poblados al cerrar.
	ExitTime        time.Time
	ExitPrice       float64
	Pnl             float64
	PnlPercentage   float64
	ExitReason      ExitReason
	HoldingDuration time.Duration
}

// UnrealizedPnlPct devuelve el P&L no realizado en % al precio dado.
// Con inversión 0 devuelve 0 en vez de dividir por cero.
func (t *BacktestTrade) UnrealizedPnlPct(price float64) float64 {
	if t.AmountInvested == 0 {
		return 0
	}
	return (t.Shares*price - t.AmountInvested) / t.AmountInvested * 100
}

// HoldingHours devuelve las horas que la posición lleva abierta en el instante dado.
func (t *BacktestTrade) HoldingHours(at time.Time) float64 {
	return at.Sub(t.EntryTime).Hours()
}

// IsOpen devuelve true si la posición sigue viva (abierta o con remanente parcial).
func (t *BacktestTrade) IsOpen() bool {
	return t.Status == StatusOpen || t.Status == StatusPartial
}

// EquityPoint es un punto de la curva de equity, uno por vela procesada.
// Equity = capital cash + coste de las posiciones abiertas (no se marca a mercado).
type EquityPoint struct {
	Timestamp          time.Time
	Equity             float64
	Drawdown           float64 // pico histórico - equity, nunca negativo
	DrawdownPercentage float64
}
