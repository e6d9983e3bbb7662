package backtest

// evaluator.go — decisión de entrada/salida por vela.
//
// El evaluador es una función de decisión pura sobre (config inmutable,
// SimulationState): primero comprueba salidas de la posición viva del mercado
// y después una posible entrada nueva. Un mercado recibe como máximo una
// posición nueva por vela, con prioridad YES antes que NO.

import (
	"log/slog"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Evaluator aplica las reglas de la estrategia sobre el estado de simulación.
type Evaluator struct {
	cfg   *domain.StrategyConfig
	state *SimulationState
}

// NewEvaluator crea el evaluador para un run.
func NewEvaluator(cfg *domain.StrategyConfig, state *SimulationState) *Evaluator {
	return &Evaluator{cfg: cfg, state: state}
}

// Step procesa una vela: salida antes que entrada, siempre en ese orden.
func (e *Evaluator) Step(m domain.MarketDescriptor, c domain.Candlestick) {
	e.tryExit(m, c)
	e.tryEnter(m, c)
}

// tryExit evalúa las reglas de salida contra la posición viva del mercado.
// Actualiza incondicionalmente el pico de P&L (arma el trailing stop) y
// aplica la primera regla que dispare.
func (e *Evaluator) tryExit(m domain.MarketDescriptor, c domain.Candlestick) {
	t := e.state.Position(m.MarketID)
	if t == nil {
		return
	}

	price := c.PriceFor(t.Side)
	pnlPct := t.UnrealizedPnlPct(price)
	if pnlPct > t.PeakPnlPercentage {
		t.PeakPnlPercentage = pnlPct
	}

	for _, rule := range exitRuleOrder {
		action := rule.eval(e.cfg.Exits, t, pnlPct, c)
		if action == nil {
			continue
		}

		if action.sellShares > 0 {
			e.state.PartialExit(t, c.Timestamp, price, action.sellShares, action.partialIndex)
		} else {
			e.state.ClosePosition(t, c.Timestamp, price, action.reason)
		}

		slog.Debug("exit rule fired",
			"rule", rule.name,
			"market", m.MarketID,
			"side", t.Side,
			"pnl_pct", pnlPct,
		)
		return
	}
}

// tryEnter abre una posición nueva si la vela pasa todas las puertas:
// sin posición viva, ventana temporal, límites de frecuencia, capital
// disponible, tope de exposición y precio no degenerado.
func (e *Evaluator) tryEnter(m domain.MarketDescriptor, c domain.Candlestick) {
	if e.state.Position(m.MarketID) != nil {
		return
	}
	e.state.Debug.EntryAttempts++

	if !e.cfg.EntryWindow.Allows(c.Timestamp) {
		return
	}
	if !e.state.CanEnterNow(c.Timestamp, e.cfg.Frequency) {
		return
	}

	size := e.cfg.Sizing.Amount(e.state.Capital)
	if size <= 0 || size > e.state.Capital {
		return
	}
	if max := e.cfg.Sizing.MaxExposurePercent; max != nil {
		projected := (e.state.OpenExposure() + size) / e.state.InitialBankroll * 100
		if projected > *max {
			return
		}
	}

	// Precios exactamente 0 o 1 son degenerados para entrar: el mercado ya
	// está decidido y los shares serían gratis o sin recorrido.
	if c.Close <= 0 || c.Close >= 1 {
		return
	}

	if e.cfg.EntersYes() && e.cfg.Thresholds.Yes.Allows(c.Close) {
		e.open(m, c, domain.SideYes, size)
		return
	}
	if e.cfg.EntersNo() && e.cfg.Thresholds.No.Allows(c.NoPrice()) {
		e.open(m, c, domain.SideNo, size)
	}
}

func (e *Evaluator) open(m domain.MarketDescriptor, c domain.Candlestick, side domain.Side, size float64) {
	reason := domain.EntryMarketEntry
	if e.cfg.Thresholds.ForSide(side) != nil {
		reason = domain.EntryPriceThreshold
	}

	t := e.state.OpenPosition(m, c, side, size, reason)

	slog.Debug("position opened",
		"market", m.MarketID,
		"side", side,
		"price", t.EntryPrice,
		"shares", t.Shares,
		"amount", size,
		"capital", e.state.Capital,
	)
}
