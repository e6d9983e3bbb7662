package backtest

// rules.go — reglas de salida como lista ordenada declarada.
//
// La prioridad (parciales → trailing → stop loss → take profit → max hold)
// es una constante del paquete, no una consecuencia del orden de unos if:
// la primera regla que dispara gana y corta la evaluación de esa vela.

import "github.com/alejandrodnm/polysim/internal/domain"

// exitAction es la decisión de una regla: venta parcial o cierre total.
type exitAction struct {
	reason       domain.ExitReason
	sellShares   float64 // > 0 → venta parcial de esos shares; 0 → cierre total
	partialIndex int
}

// exitRule evalúa una regla de salida contra la posición en la vela actual.
// Devuelve nil si la regla no dispara.
type exitRule struct {
	name string
	eval func(exits domain.ExitRules, t *domain.BacktestTrade, pnlPct float64, c domain.Candlestick) *exitAction
}

// exitRuleOrder es el orden de prioridad fijo de las reglas de salida.
var exitRuleOrder = []exitRule{
	{name: "partial_exit_1", eval: evalPartialExit1},
	{name: "partial_exit_2", eval: evalPartialExit2},
	{name: "trailing_stop", eval: evalTrailingStop},
	{name: "stop_loss", eval: evalStopLoss},
	{name: "take_profit", eval: evalTakeProfit},
	{name: "max_hold_time", eval: evalMaxHoldTime},
}

func evalPartialExit1(exits domain.ExitRules, t *domain.BacktestTrade, pnlPct float64, _ domain.Candlestick) *exitAction {
	if !exits.PartialsEnabled() || t.PartialExitsTaken != 0 {
		return nil
	}
	lvl := exits.Partials.TakeProfit1
	if lvl == nil || pnlPct < lvl.Percent {
		return nil
	}
	return &exitAction{
		reason:       domain.ExitPartial1,
		sellShares:   t.Shares * lvl.SellPercent / 100,
		partialIndex: 1,
	}
}

func evalPartialExit2(exits domain.ExitRules, t *domain.BacktestTrade, pnlPct float64, _ domain.Candlestick) *exitAction {
	if !exits.PartialsEnabled() || t.PartialExitsTaken != 1 {
		return nil
	}
	lvl := exits.Partials.TakeProfit2
	if lvl == nil || pnlPct < lvl.Percent {
		return nil
	}
	// SellPercent aplica sobre los shares ya reducidos por la primera parcial.
	return &exitAction{
		reason:       domain.ExitPartial2,
		sellShares:   t.Shares * lvl.SellPercent / 100,
		partialIndex: 2,
	}
}

// evalTrailingStop mide el retroceso desde el pico de P&L, no desde la entrada.
// Solo arma el stop una vez que el pico alcanzó el umbral de activación.
func evalTrailingStop(exits domain.ExitRules, t *domain.BacktestTrade, pnlPct float64, _ domain.Candlestick) *exitAction {
	ts := exits.Trailing
	if ts == nil || !ts.Enabled {
		return nil
	}
	if t.PeakPnlPercentage < ts.ActivationPercent {
		return nil
	}
	if t.PeakPnlPercentage-pnlPct < ts.TrailPercent {
		return nil
	}
	return &exitAction{reason: domain.ExitTrailingStop}
}

func evalStopLoss(exits domain.ExitRules, _ *domain.BacktestTrade, pnlPct float64, _ domain.Candlestick) *exitAction {
	if exits.StopLoss == nil || pnlPct > -*exits.StopLoss {
		return nil
	}
	return &exitAction{reason: domain.ExitStopLoss}
}

// evalTakeProfit solo aplica cuando no hay salidas parciales activas —
// la lógica escalonada de parciales reemplaza al take profit único.
func evalTakeProfit(exits domain.ExitRules, _ *domain.BacktestTrade, pnlPct float64, _ domain.Candlestick) *exitAction {
	if exits.PartialsEnabled() {
		return nil
	}
	if exits.TakeProfit == nil || pnlPct < *exits.TakeProfit {
		return nil
	}
	return &exitAction{reason: domain.ExitTakeProfit}
}

func evalMaxHoldTime(exits domain.ExitRules, t *domain.BacktestTrade, _ float64, c domain.Candlestick) *exitAction {
	if exits.MaxHoldHours == nil || t.HoldingHours(c.Timestamp) < *exits.MaxHoldHours {
		return nil
	}
	return &exitAction{reason: domain.ExitMaxHoldTime}
}
