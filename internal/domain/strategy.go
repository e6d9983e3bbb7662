package domain

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Side es uno de los dos lados complementarios de un mercado binario.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// EntryType indica en qué lados puede entrar la estrategia.
type EntryType string

const (
	EntryYes  EntryType = "YES"
	EntryNo   EntryType = "NO"
	EntryBoth EntryType = "BOTH"
)

// SizingType indica cómo se calcula el tamaño de cada posición.
type SizingType string

const (
	SizingFixed      SizingType = "FIXED"
	SizingPercentage SizingType = "PERCENTAGE"
)

const (
	defaultFixedAmount       = 100.0
	defaultPercentOfBankroll = 5.0
)

// StrategyConfig es la configuración declarativa e inmutable de un backtest.
// Se valida una sola vez antes de arrancar el replay.
type StrategyConfig struct {
	Name            string           `yaml:"name"`
	StartDate       time.Time        `yaml:"start_date"`
	EndDate         time.Time        `yaml:"end_date"`
	Market          MarketSelection  `yaml:"market"`
	EntryType       EntryType        `yaml:"entry_type"`
	Thresholds      EntryThresholds  `yaml:"entry_thresholds"`
	EntryWindow     EntryWindow      `yaml:"entry_window"`
	Frequency       TradeFrequency   `yaml:"trade_frequency"`
	Sizing          PositionSizing   `yaml:"position_sizing"`
	Exits           ExitRules        `yaml:"exit_rules"`
	InitialBankroll float64          `yaml:"initial_bankroll"`
}

// MarketSelection resuelve qué mercados se reproducen: uno específico por
// condition_id o slug, o un universo filtrado.
type MarketSelection struct {
	ConditionID string        `yaml:"condition_id"`
	Slug        string        `yaml:"slug"`
	Filter      *MarketFilter `yaml:"filter"`
}

// MarketFilter acota el universo de mercados del listado del proveedor.
type MarketFilter struct {
	Categories           []string `yaml:"categories"`
	MinLiquidity         *float64 `yaml:"min_liquidity"`
	MaxLiquidity         *float64 `yaml:"max_liquidity"`
	MinHoursToResolution *float64 `yaml:"min_hours_to_resolution"`
	MaxHoursToResolution *float64 `yaml:"max_hours_to_resolution"`
}

// EntryThresholds son las bandas de precio de entrada por lado.
type EntryThresholds struct {
	Yes *PriceThreshold `yaml:"yes"`
	No  *PriceThreshold `yaml:"no"`
}

// ForSide devuelve el threshold configurado para el lado dado (o nil).
func (t EntryThresholds) ForSide(side Side) *PriceThreshold {
	if side == SideNo {
		return t.No
	}
	return t.Yes
}

// PriceThreshold es una banda [min, max] opcional sobre el precio de entrada.
// Un límite ausente simplemente no se comprueba — no se asume 0 ni 1.
type PriceThreshold struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Allows devuelve true si el precio pasa la banda. Un threshold nil o sin
// límites permite cualquier precio. Con min > max (bandas invertidas) todos
// los precios quedan rechazados; se preserva tal cual, no se corrige.
func (t *PriceThreshold) Allows(price float64) bool {
	if t == nil {
		return true
	}
	if t.Min != nil && price < *t.Min {
		return false
	}
	if t.Max != nil && price > *t.Max {
		return false
	}
	return true
}

// EntryWindow restringe los timestamps en los que se permite abrir posiciones.
type EntryWindow struct {
	EarliestEntry *time.Time `yaml:"earliest_entry"`
	LatestEntry   *time.Time `yaml:"latest_entry"`
}

// Allows devuelve true si el timestamp cae dentro de la ventana.
func (w EntryWindow) Allows(ts time.Time) bool {
	if w.EarliestEntry != nil && ts.Before(*w.EarliestEntry) {
		return false
	}
	if w.LatestEntry != nil && ts.After(*w.LatestEntry) {
		return false
	}
	return true
}

// TradeFrequency limita el ritmo de entradas, global entre mercados.
type TradeFrequency struct {
	CooldownHours   *float64 `yaml:"cooldown_hours"`
	MaxTradesPerDay *int     `yaml:"max_trades_per_day"`
}

// PositionSizing define el tamaño de cada posición nueva.
type PositionSizing struct {
	Type               SizingType `yaml:"type"`
	FixedAmount        *float64   `yaml:"fixed_amount"`
	PercentOfBankroll  *float64   `yaml:"percent_of_bankroll"`
	MaxExposurePercent *float64   `yaml:"max_exposure_percent"`
}

// Amount calcula el tamaño de la siguiente posición. PERCENTAGE usa el capital
// cash actual (no el inicial), así el tamaño escala con el P&L realizado.
func (p PositionSizing) Amount(cashCapital float64) float64 {
	if p.Type == SizingPercentage {
		pct := defaultPercentOfBankroll
		if p.PercentOfBankroll != nil {
			pct = *p.PercentOfBankroll
		}
		return cashCapital * pct / 100
	}
	if p.FixedAmount != nil {
		return *p.FixedAmount
	}
	return defaultFixedAmount
}

// ExitRules define las reglas de salida, evaluadas en orden fijo.
type ExitRules struct {
	StopLoss        *float64      `yaml:"stop_loss"`
	TakeProfit      *float64      `yaml:"take_profit"`
	MaxHoldHours    *float64      `yaml:"max_hold_hours"`
	Trailing        *TrailingStop `yaml:"trailing_stop"`
	Partials        *PartialExits `yaml:"partial_exits"`
	ResolveOnExpiry bool          `yaml:"resolve_on_expiry"`
}

// PartialsEnabled devuelve true si hay salidas parciales configuradas y activas.
func (e ExitRules) PartialsEnabled() bool {
	return e.Partials != nil && e.Partials.Enabled
}

// TrailingStop es un stop cuyo nivel sube con el pico de P&L no realizado.
type TrailingStop struct {
	Enabled           bool    `yaml:"enabled"`
	ActivationPercent float64 `yaml:"activation_percent"`
	TrailPercent      float64 `yaml:"trail_percent"`
}

// PartialExits define hasta dos tomas de ganancia parciales escalonadas.
type PartialExits struct {
	Enabled     bool              `yaml:"enabled"`
	TakeProfit1 *PartialExitLevel `yaml:"take_profit_1"`
	TakeProfit2 *PartialExitLevel `yaml:"take_profit_2"`
}

// PartialExitLevel es un nivel de toma parcial: a qué % de P&L dispara y
// qué % de los shares actuales vende.
type PartialExitLevel struct {
	Percent     float64 `yaml:"percent"`
	SellPercent float64 `yaml:"sell_percent"`
}

// Validate comprueba la configuración antes de mutar ningún estado.
// Una configuración malformada es el único error que aborta un backtest.
func (c *StrategyConfig) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return errors.New("strategy: start_date and end_date are required")
	}
	if !c.StartDate.Before(c.EndDate) {
		return fmt.Errorf("strategy: start_date %s must be before end_date %s",
			c.StartDate.Format(time.RFC3339), c.EndDate.Format(time.RFC3339))
	}
	if c.InitialBankroll <= 0 {
		return fmt.Errorf("strategy: initial_bankroll must be > 0, got %.2f", c.InitialBankroll)
	}
	switch c.EntryType {
	case EntryYes, EntryNo, EntryBoth:
	case "":
		c.EntryType = EntryBoth
	default:
		return fmt.Errorf("strategy: unknown entry_type %q", c.EntryType)
	}
	switch c.Sizing.Type {
	case SizingFixed, SizingPercentage:
	case "":
		c.Sizing.Type = SizingFixed
	default:
		return fmt.Errorf("strategy: unknown position_sizing.type %q", c.Sizing.Type)
	}
	if p := c.Sizing.PercentOfBankroll; p != nil && (*p <= 0 || *p > 100) {
		return fmt.Errorf("strategy: percent_of_bankroll must be in (0, 100], got %.2f", *p)
	}
	return nil
}

// EntersYes devuelve true si la estrategia puede abrir posiciones YES.
func (c *StrategyConfig) EntersYes() bool {
	return c.EntryType == EntryYes || c.EntryType == EntryBoth
}

// EntersNo devuelve true si la estrategia puede abrir posiciones NO.
func (c *StrategyConfig) EntersNo() bool {
	return c.EntryType == EntryNo || c.EntryType == EntryBoth
}

// LoadStrategy carga y valida una StrategyConfig desde un archivo YAML.
func LoadStrategy(path string) (*StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("domain.LoadStrategy: read %q: %w", path, err)
	}

	var cfg StrategyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("domain.LoadStrategy: parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("domain.LoadStrategy: %w", err)
	}
	return &cfg, nil
}
