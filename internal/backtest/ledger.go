package backtest

// ledger.go — estado mutable de la simulación: capital, posiciones abiertas,
// trades cerrados, curva de equity y contadores de frecuencia.
//
// Todo el estado vive en SimulationState y se pasa explícitamente — nunca hay
// estado mutable a nivel de paquete, así cada invocación del engine es
// re-entrante y testeable por sí sola. El ledger es el único que transiciona
// posiciones entre OPEN/PARTIAL/CLOSED y el único que toca el capital.

import (
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/google/uuid"
)

// utcDayKey agrupa entradas por día calendario UTC para max_trades_per_day.
const utcDayKey = "2006-01-02"

// SimulationState es el estado completo de un run de backtest.
type SimulationState struct {
	Capital         float64
	InitialBankroll float64
	FeeRate         float64

	// Una posición abierta/parcial por mercado como máximo.
	Open   map[string]*domain.BacktestTrade
	Closed []domain.BacktestTrade
	Equity []domain.EquityPoint
	Debug  domain.DebugInfo

	peakEquity   float64
	lastFillTime time.Time
	tradesPerDay map[string]int
}

// NewSimulationState crea el estado inicial de un run.
func NewSimulationState(initialBankroll, feeRate float64) *SimulationState {
	return &SimulationState{
		Capital:         initialBankroll,
		InitialBankroll: initialBankroll,
		FeeRate:         feeRate,
		Open:            make(map[string]*domain.BacktestTrade),
		peakEquity:      initialBankroll,
		tradesPerDay:    make(map[string]int),
	}
}

// Position devuelve la posición viva del mercado, o nil si no hay.
func (s *SimulationState) Position(marketID string) *domain.BacktestTrade {
	return s.Open[marketID]
}

// OpenExposure devuelve el capital invertido en posiciones vivas.
func (s *SimulationState) OpenExposure() float64 {
	var total float64
	for _, t := range s.Open {
		total += t.AmountInvested
	}
	return total
}

// CanEnterNow aplica los límites de frecuencia, globales entre mercados:
// cooldown desde el último fill y máximo de entradas por día calendario UTC.
func (s *SimulationState) CanEnterNow(ts time.Time, freq domain.TradeFrequency) bool {
	if freq.CooldownHours != nil && !s.lastFillTime.IsZero() {
		if ts.Sub(s.lastFillTime).Hours() < *freq.CooldownHours {
			return false
		}
	}
	if freq.MaxTradesPerDay != nil {
		if s.tradesPerDay[ts.UTC().Format(utcDayKey)] >= *freq.MaxTradesPerDay {
			return false
		}
	}
	return true
}

// OpenPosition abre una posición nueva en el mercado. El fee de entrada es
// un porcentaje fijo sobre el notional y sale del capital junto al importe.
func (s *SimulationState) OpenPosition(
	m domain.MarketDescriptor,
	c domain.Candlestick,
	side domain.Side,
	amount float64,
	reason domain.EntryReason,
) *domain.BacktestTrade {
	price := c.PriceFor(side)
	shares := amount / price
	fee := amount * s.FeeRate

	t := &domain.BacktestTrade{
		ID:                uuid.New().String(),
		MarketID:          m.MarketID,
		ConditionID:       m.ConditionID,
		MarketName:        m.Title,
		Side:              side,
		EntryTime:         c.Timestamp,
		EntryPrice:        price,
		EntryReason:       reason,
		Shares:            shares,
		OriginalShares:    shares,
		AmountInvested:    amount,
		Fees:              fee,
		Status:            domain.StatusOpen,
		CapitalAllocation: amount / s.InitialBankroll * 100,
	}

	s.Capital -= amount + fee
	s.Open[m.MarketID] = t

	s.lastFillTime = c.Timestamp
	s.tradesPerDay[c.Timestamp.UTC().Format(utcDayKey)]++

	return t
}

// PartialExit vende una fracción de la posición con contabilidad proporcional:
// la venta arrastra su parte del importe invertido y del fee de entrada, y paga
// su propio fee de salida. El registro de la venta se añade a la lista de
// cerrados como trade propio; la posición original queda en PARTIAL con los
// shares y el coste restantes.
func (s *SimulationState) PartialExit(
	t *domain.BacktestTrade,
	at time.Time,
	price, sharesToSell float64,
	exitNumber int,
) domain.BacktestTrade {
	proportion := sharesToSell / t.Shares
	propInvestment := proportion * t.AmountInvested
	propEntryFee := propInvestment * s.FeeRate

	saleValue := sharesToSell * price
	exitFee := saleValue * s.FeeRate
	pnl := (saleValue - exitFee) - (propInvestment + propEntryFee)

	reason := domain.ExitPartial1
	if exitNumber == 2 {
		reason = domain.ExitPartial2
	}

	record := domain.BacktestTrade{
		ID:                uuid.New().String(),
		MarketID:          t.MarketID,
		ConditionID:       t.ConditionID,
		MarketName:        t.MarketName,
		Side:              t.Side,
		EntryTime:         t.EntryTime,
		EntryPrice:        t.EntryPrice,
		EntryReason:       t.EntryReason,
		Shares:            sharesToSell,
		OriginalShares:    t.OriginalShares,
		AmountInvested:    propInvestment,
		Fees:              propEntryFee + exitFee,
		Status:            domain.StatusClosed,
		CapitalAllocation: t.CapitalAllocation,
		PeakPnlPercentage: t.PeakPnlPercentage,
		PartialExitNumber: exitNumber,
		ExitTime:          at,
		ExitPrice:         price,
		Pnl:               pnl,
		ExitReason:        reason,
		HoldingDuration:   at.Sub(t.EntryTime),
	}
	if propInvestment > 0 {
		record.PnlPercentage = pnl / propInvestment * 100
	}

	s.Capital += saleValue - exitFee
	s.Closed = append(s.Closed, record)

	// El remanente sigue vivo con su parte del coste y del fee de entrada.
	t.Shares -= sharesToSell
	t.AmountInvested -= propInvestment
	t.Fees -= propEntryFee
	t.Status = domain.StatusPartial
	t.PartialExitsTaken = exitNumber

	return record
}

// ClosePosition cierra la posición completa al precio dado. El valor de salida
// viene neto del fee de salida; el pnl descuenta además los fees ya pagados.
func (s *SimulationState) ClosePosition(
	t *domain.BacktestTrade,
	at time.Time,
	price float64,
	reason domain.ExitReason,
) {
	grossExit := t.Shares * price
	exitFee := grossExit * s.FeeRate
	netExitValue := grossExit - exitFee

	t.Pnl = netExitValue - (t.AmountInvested + t.Fees)
	if t.AmountInvested > 0 {
		t.PnlPercentage = t.Pnl / t.AmountInvested * 100
	}
	t.Fees += exitFee
	t.ExitTime = at
	t.ExitPrice = price
	t.ExitReason = reason
	t.HoldingDuration = at.Sub(t.EntryTime)
	t.Status = domain.StatusClosed

	s.Capital += netExitValue
	delete(s.Open, t.MarketID)
	s.Closed = append(s.Closed, *t)
}

// SettleAtResolution liquida la posición viva de un mercado resuelto al precio
// derivado del outcome: 1.0 si acertó el lado, 0.0 si falló, o el precio de
// entrada (reembolso) si el mercado resolvió INVALID.
func (s *SimulationState) SettleAtResolution(m domain.MarketDescriptor, at time.Time) {
	t := s.Open[m.MarketID]
	if t == nil {
		return
	}
	s.ClosePosition(t, at, m.SettlementPrice(t.Side, t.EntryPrice), domain.ExitResolution)
}

// CloseRemaining cierra toda posición aún viva a su propio precio de entrada —
// un cierre forzoso neutro, sin ganancia ni pérdida de precio (los fees del
// round-trip sí se pagan). Las posiciones se cierran en orden de entrada (con
// el market ID como desempate), nunca en orden de iteración del mapa: el orden
// de los trades cerrados tiene que ser idéntico entre runs idénticos.
func (s *SimulationState) CloseRemaining(at time.Time) {
	remaining := make([]*domain.BacktestTrade, 0, len(s.Open))
	for _, t := range s.Open {
		remaining = append(remaining, t)
	}
	sort.Slice(remaining, func(i, j int) bool {
		if !remaining[i].EntryTime.Equal(remaining[j].EntryTime) {
			return remaining[i].EntryTime.Before(remaining[j].EntryTime)
		}
		return remaining[i].MarketID < remaining[j].MarketID
	})

	for _, t := range remaining {
		s.ClosePosition(t, at, t.EntryPrice, domain.ExitResolution)
	}
}

// RecordEquity añade un punto a la curva de equity. La equity valora las
// posiciones abiertas a su coste, no a precio de mercado — una simplificación
// que hace la curva función exclusiva del P&L realizado y los fees.
func (s *SimulationState) RecordEquity(ts time.Time) {
	equity := s.Capital + s.OpenExposure()
	if equity > s.peakEquity {
		s.peakEquity = equity
	}

	drawdown := s.peakEquity - equity
	if drawdown < 0 {
		drawdown = 0
	}
	var ddPct float64
	if s.peakEquity > 0 {
		ddPct = drawdown / s.peakEquity * 100
	}

	s.Equity = append(s.Equity, domain.EquityPoint{
		Timestamp:          ts,
		Equity:             equity,
		Drawdown:           drawdown,
		DrawdownPercentage: ddPct,
	})
}
