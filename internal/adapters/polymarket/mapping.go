package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// mapGammaMarkets convierte los DTOs de Gamma a domain.MarketRecord.
func mapGammaMarkets(raw []gammaMarket) []domain.MarketRecord {
	records := make([]domain.MarketRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, mapGammaMarket(r))
	}
	return records
}

// mapGammaMarket convierte un gammaMarket DTO a domain.MarketRecord.
func mapGammaMarket(r gammaMarket) domain.MarketRecord {
	rec := domain.MarketRecord{
		MarketID:    r.ID,
		ConditionID: r.ConditionID,
		Slug:        r.Slug,
		Question:    r.Question,
		Category:    r.Category,
		Closed:      r.Closed,
		Outcome:     mapOutcome(r),
	}

	if v, err := r.Liquidity.Float64(); err == nil {
		rec.Liquidity = v
	}
	if v, err := r.VolumeTotal.Float64(); err == nil {
		rec.VolumeTotal = v
	}
	if v, err := r.Volume.Float64(); err == nil {
		rec.Volume = v
	}

	if r.EndDateISO != "" {
		// Polymarket usa varios formatos; intentamos los más comunes
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, r.EndDateISO); err == nil {
				rec.ResolutionTime = t.UTC()
				break
			}
		}
	}

	return rec
}

// mapOutcome infiere la resolución del mercado desde outcomePrices.
// Gamma lo devuelve como string JSON con los precios finales [YES, NO]:
// un YES a ~1 resolvió YES, a ~0 resolvió NO, y cualquier precio intermedio
// en un mercado cerrado indica resolución INVALID (reembolso).
func mapOutcome(r gammaMarket) domain.Outcome {
	if !r.Closed || r.OutcomePrices == "" {
		return domain.OutcomeUnknown
	}

	var prices []string
	if err := json.Unmarshal([]byte(r.OutcomePrices), &prices); err != nil || len(prices) == 0 {
		return domain.OutcomeUnknown
	}

	yesFinal, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return domain.OutcomeUnknown
	}

	switch {
	case yesFinal >= 0.99:
		return domain.OutcomeYes
	case yesFinal <= 0.01:
		return domain.OutcomeNo
	}
	return domain.OutcomeInvalid
}

// mapPricePoints convierte la serie de precios del CLOB a velas.
// El endpoint ya bucketiza server-side según fidelity, así que cada punto es
// el precio del bucket: OHLC colapsan al mismo valor y el volumen no viene
// en esta serie.
func mapPricePoints(points []pricePoint) []domain.Candlestick {
	candles := make([]domain.Candlestick, 0, len(points))
	for _, p := range points {
		candles = append(candles, domain.Candlestick{
			Timestamp: time.Unix(p.Timestamp, 0).UTC(),
			Open:      p.Price,
			High:      p.Price,
			Low:       p.Price,
			Close:     p.Price,
		})
	}
	return candles
}
