package backtest

// engine.go — orquestador del replay.
//
// Secuencia estricta por run: reset de estado → selección de mercados →
// replay por mercado y por vela (salida, entrada, punto de equity) → cierre
// de remanentes → métricas → resultado. Todo single-threaded: los mercados se
// procesan uno a uno y nada más muta el ledger, así que no hay carreras sobre
// el capital ni sobre el mapa de posiciones.
//
// El run siempre devuelve un resultado — cero mercados o cero trades es un
// resultado válido, no un error. Solo una configuración malformada (o la
// cancelación del contexto) aborta antes de terminar.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
	"github.com/google/uuid"
)

// Config contiene los parámetros de ejecución del engine.
type Config struct {
	// FeeRate es el fee fijo aplicado de forma independiente sobre el
	// notional de entrada y el de cada salida — nunca se netea entre patas.
	FeeRate float64

	ListPageSize   int
	MaxListRecords int
}

// DefaultConfig devuelve la configuración de producción.
func DefaultConfig() Config {
	return Config{
		FeeRate:        0.02,
		ListPageSize:   defaultListPageSize,
		MaxListRecords: defaultMaxListRecords,
	}
}

// Engine ejecuta backtests contra un proveedor de velas.
type Engine struct {
	cfg      Config
	provider ports.CandleProvider
	selector *Selector
}

// New crea un Engine con todas las dependencias inyectadas.
func New(cfg Config, provider ports.CandleProvider) *Engine {
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = DefaultConfig().FeeRate
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		selector: NewSelector(provider, cfg.ListPageSize, cfg.MaxListRecords),
	}
}

// Run ejecuta un backtest completo para la estrategia dada.
func (e *Engine) Run(ctx context.Context, strategy *domain.StrategyConfig) (*domain.BacktestResult, error) {
	if err := strategy.Validate(); err != nil {
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}

	start := time.Now()
	state := NewSimulationState(strategy.InitialBankroll, e.cfg.FeeRate)
	evaluator := NewEvaluator(strategy, state)

	markets := e.selector.Select(ctx, strategy)
	slog.Info("backtest starting",
		"strategy", strategy.Name,
		"markets", len(markets),
		"bankroll", strategy.InitialBankroll,
		"from", strategy.StartDate.Format(time.DateOnly),
		"to", strategy.EndDate.Format(time.DateOnly),
	)

	granularity := chooseGranularity(strategy.StartDate, strategy.EndDate)

	for _, m := range markets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest.Run: %w", err)
		}
		e.replayMarket(ctx, m, granularity, strategy, state, evaluator)
	}

	// Lo que siga abierto tras todos los mercados se cierra neutro a su
	// precio de entrada en la fecha final del backtest.
	state.CloseRemaining(strategy.EndDate)

	metrics := ComputeMetrics(state.Closed, state.Equity, strategy.InitialBankroll)

	result := &domain.BacktestResult{
		RunID:           uuid.New().String(),
		Strategy:        *strategy,
		Trades:          state.Closed,
		Metrics:         metrics,
		EquityCurve:     state.Equity,
		StartingCapital: strategy.InitialBankroll,
		EndingCapital:   state.Capital,
		MarketsAnalyzed: len(markets),
		StartedAt:       start.UTC(),
		ExecutionTime:   time.Since(start),
		Debug:           state.Debug,
	}

	slog.Info("backtest complete",
		"run_id", result.RunID,
		"trades", metrics.TotalTrades,
		"net_pnl", fmt.Sprintf("%.2f", metrics.NetPnl),
		"roi_pct", fmt.Sprintf("%.2f", metrics.ROIPercent),
		"duration", result.ExecutionTime.Round(time.Millisecond),
	)
	return result, nil
}

// replayMarket reproduce las velas de un mercado en orden temporal.
func (e *Engine) replayMarket(
	ctx context.Context,
	m domain.MarketDescriptor,
	g domain.Granularity,
	strategy *domain.StrategyConfig,
	state *SimulationState,
	evaluator *Evaluator,
) {
	state.Debug.MarketsProcessed++

	candles := e.fetchCandles(ctx, m, g, strategy)
	if len(candles) == 0 {
		state.Debug.AddReason(fmt.Sprintf("market %s: no candle data in range", m.MarketID))
		return
	}
	state.Debug.MarketsWithData++

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	discarded := 0
	for _, c := range candles {
		state.Debug.TotalCandlesticks++
		if !c.Valid() {
			discarded++
			continue
		}
		state.Debug.ValidCandlesticks++

		evaluator.Step(m, c)
		state.RecordEquity(c.Timestamp)
	}
	if discarded > 0 {
		state.Debug.AddReason(fmt.Sprintf("market %s: discarded %d degenerate candles", m.MarketID, discarded))
	}

	// Mercado con resolución conocida: liquidar la posición viva al precio
	// derivado del outcome, si la estrategia liquida al vencimiento.
	if m.Resolved() && strategy.Exits.ResolveOnExpiry {
		settleAt := m.EndTime
		if settleAt.IsZero() {
			settleAt = strategy.EndDate
		}
		state.SettleAtResolution(m, settleAt)
	}

	slog.Debug("market replayed",
		"market", m.MarketID,
		"candles", len(candles),
		"discarded", discarded,
		"capital", fmt.Sprintf("%.2f", state.Capital),
	)
}

// fetchCandles pide las velas al proveedor, con un único reintento a
// granularidad diaria si la granularidad elegida vuelve vacía. Un fallo duro
// del fetch se trata como cero velas para ese mercado, nunca aborta el run.
func (e *Engine) fetchCandles(
	ctx context.Context,
	m domain.MarketDescriptor,
	g domain.Granularity,
	strategy *domain.StrategyConfig,
) []domain.Candlestick {
	key := m.ConditionID
	if key == "" {
		key = m.MarketID
	}

	candles, err := e.provider.GetCandles(ctx, key, g, strategy.StartDate, strategy.EndDate)
	if err != nil {
		slog.Warn("candle fetch failed, treating as no data", "market", m.MarketID, "err", err)
		return nil
	}

	if len(candles) == 0 && g != domain.GranularityDay {
		slog.Debug("empty candle response, retrying at daily granularity", "market", m.MarketID)
		candles, err = e.provider.GetCandles(ctx, key, domain.GranularityDay, strategy.StartDate, strategy.EndDate)
		if err != nil {
			slog.Warn("daily retry failed, treating as no data", "market", m.MarketID, "err", err)
			return nil
		}
	}
	return candles
}

// chooseGranularity elige el bucket de vela según el rango del backtest:
// rangos de hasta 30 días se reproducen con velas horarias, más largos con
// velas diarias.
func chooseGranularity(start, end time.Time) domain.Granularity {
	if end.Sub(start) <= 30*24*time.Hour {
		return domain.GranularityHour
	}
	return domain.GranularityDay
}
