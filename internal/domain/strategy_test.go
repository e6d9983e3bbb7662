package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func validStrategy() StrategyConfig {
	return StrategyConfig{
		Name:            "test",
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		InitialBankroll: 10000,
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validStrategy()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, EntryBoth, cfg.EntryType, "empty entry_type defaults to BOTH")
	assert.Equal(t, SizingFixed, cfg.Sizing.Type, "empty sizing defaults to FIXED")
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*StrategyConfig)
	}{
		{"missing dates", func(c *StrategyConfig) { c.StartDate = time.Time{} }},
		{"start after end", func(c *StrategyConfig) { c.StartDate = c.EndDate.AddDate(0, 1, 0) }},
		{"start equals end", func(c *StrategyConfig) { c.StartDate = c.EndDate }},
		{"zero bankroll", func(c *StrategyConfig) { c.InitialBankroll = 0 }},
		{"negative bankroll", func(c *StrategyConfig) { c.InitialBankroll = -100 }},
		{"bad entry type", func(c *StrategyConfig) { c.EntryType = "MAYBE" }},
		{"bad sizing type", func(c *StrategyConfig) { c.Sizing.Type = "KELLY" }},
		{"percent over 100", func(c *StrategyConfig) {
			c.Sizing.Type = SizingPercentage
			c.Sizing.PercentOfBankroll = fptr(150)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validStrategy()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPriceThreshold_Allows(t *testing.T) {
	var nilThreshold *PriceThreshold
	assert.True(t, nilThreshold.Allows(0.5), "nil threshold allows everything")

	band := &PriceThreshold{Min: fptr(0.10), Max: fptr(0.30)}
	assert.False(t, band.Allows(0.05))
	assert.True(t, band.Allows(0.10))
	assert.True(t, band.Allows(0.30))
	assert.False(t, band.Allows(0.35))

	onlyMax := &PriceThreshold{Max: fptr(0.30)}
	assert.True(t, onlyMax.Allows(0.0001), "absent bound is not checked")
}

func TestPriceThreshold_InvertedBoundsRejectAll(t *testing.T) {
	inverted := &PriceThreshold{Min: fptr(0.60), Max: fptr(0.20)}
	for _, px := range []float64{0.10, 0.20, 0.40, 0.60, 0.90} {
		assert.False(t, inverted.Allows(px), "price %.2f", px)
	}
}

func TestPositionSizing_Amount(t *testing.T) {
	fixed := PositionSizing{Type: SizingFixed, FixedAmount: fptr(250)}
	assert.InDelta(t, 250.0, fixed.Amount(10000), 1e-9)

	defaulted := PositionSizing{Type: SizingFixed}
	assert.InDelta(t, 100.0, defaulted.Amount(10000), 1e-9)

	// PERCENTAGE escala con el capital cash actual, no con el inicial.
	pct := PositionSizing{Type: SizingPercentage, PercentOfBankroll: fptr(10)}
	assert.InDelta(t, 1000.0, pct.Amount(10000), 1e-9)
	assert.InDelta(t, 500.0, pct.Amount(5000), 1e-9)

	pctDefault := PositionSizing{Type: SizingPercentage}
	assert.InDelta(t, 500.0, pctDefault.Amount(10000), 1e-9) // 5% por defecto
}

func TestEntryWindow_Allows(t *testing.T) {
	at := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	var open EntryWindow
	assert.True(t, open.Allows(at), "empty window allows everything")

	earliest := at.Add(-time.Hour)
	latest := at.Add(time.Hour)
	w := EntryWindow{EarliestEntry: &earliest, LatestEntry: &latest}
	assert.True(t, w.Allows(at))
	assert.True(t, w.Allows(earliest))
	assert.True(t, w.Allows(latest))
	assert.False(t, w.Allows(earliest.Add(-time.Second)))
	assert.False(t, w.Allows(latest.Add(time.Second)))
}

func TestEntryType_Sides(t *testing.T) {
	both := validStrategy()
	require.NoError(t, both.Validate())
	assert.True(t, both.EntersYes())
	assert.True(t, both.EntersNo())

	yes := validStrategy()
	yes.EntryType = EntryYes
	assert.True(t, yes.EntersYes())
	assert.False(t, yes.EntersNo())
}

func TestLoadStrategy_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	yaml := `
name: "yaml-strategy"
start_date: 2024-01-01T00:00:00Z
end_date: 2024-02-01T00:00:00Z
initial_bankroll: 5000
entry_type: NO
entry_thresholds:
  "no":
    min: 0.05
    max: 0.35
position_sizing:
  type: PERCENTAGE
  percent_of_bankroll: 5
exit_rules:
  stop_loss: 30
  resolve_on_expiry: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadStrategy(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-strategy", cfg.Name)
	assert.Equal(t, EntryNo, cfg.EntryType)
	assert.InDelta(t, 5000.0, cfg.InitialBankroll, 1e-9)
	require.NotNil(t, cfg.Thresholds.No)
	assert.InDelta(t, 0.05, *cfg.Thresholds.No.Min, 1e-9)
	assert.Equal(t, SizingPercentage, cfg.Sizing.Type)
	require.NotNil(t, cfg.Exits.StopLoss)
	assert.InDelta(t, 30.0, *cfg.Exits.StopLoss, 1e-9)
	assert.True(t, cfg.Exits.ResolveOnExpiry)
}

func TestLoadStrategy_InvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: incomplete\n"), 0o644))

	_, err := LoadStrategy(path)
	assert.Error(t, err)
}

func TestSettlementPrice(t *testing.T) {
	yes := MarketDescriptor{Outcome: OutcomeYes}
	assert.Equal(t, 1.0, yes.SettlementPrice(SideYes, 0.40))
	assert.Equal(t, 0.0, yes.SettlementPrice(SideNo, 0.40))

	invalid := MarketDescriptor{Outcome: OutcomeInvalid}
	assert.Equal(t, 0.40, invalid.SettlementPrice(SideYes, 0.40), "invalid refunds entry price")

	unknown := MarketDescriptor{}
	assert.False(t, unknown.Resolved())
}

func TestCandlestick_ValidAndPrices(t *testing.T) {
	assert.True(t, Candlestick{Close: 0.5}.Valid())
	assert.True(t, Candlestick{Close: 1.0}.Valid(), "1.0 is a legal close")
	assert.False(t, Candlestick{Close: 0}.Valid())
	assert.False(t, Candlestick{Close: 1.2}.Valid())
	assert.False(t, Candlestick{Close: -0.1}.Valid())

	c := Candlestick{Close: 0.30}
	assert.InDelta(t, 0.70, c.NoPrice(), 1e-9)
	assert.InDelta(t, 0.30, c.PriceFor(SideYes), 1e-9)
	assert.InDelta(t, 0.70, c.PriceFor(SideNo), 1e-9)
}

func TestMarketRecord_EffectiveLiquidity(t *testing.T) {
	assert.Equal(t, 500.0, MarketRecord{Liquidity: 500, VolumeTotal: 900}.EffectiveLiquidity())
	assert.Equal(t, 900.0, MarketRecord{VolumeTotal: 900, Volume: 100}.EffectiveLiquidity())
	assert.Equal(t, 100.0, MarketRecord{Volume: 100}.EffectiveLiquidity())
	assert.Equal(t, 0.0, MarketRecord{}.EffectiveLiquidity())
}
