package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado del listado de Gamma.
// Gamma devuelve algunos campos numéricos como strings JSON, usamos json.Number.
type gammaMarket struct {
	ID            string      `json:"id"`
	ConditionID   string      `json:"conditionId"`
	Slug          string      `json:"slug"`
	Question      string      `json:"question"`
	Category      string      `json:"category"`
	Liquidity     json.Number `json:"liquidity"`
	Volume        json.Number `json:"volume"`
	VolumeTotal   json.Number `json:"volumeNum"`
	EndDateISO    string      `json:"endDateIso"`
	Closed        bool        `json:"closed"`
	OutcomePrices string      `json:"outcomePrices"` // JSON string: `["1", "0"]`
}

// --- CLOB API ---

// pricesHistoryResponse es la respuesta de GET /prices-history.
type pricesHistoryResponse struct {
	History []pricePoint `json:"history"`
}

// pricePoint es un punto de la serie de precios: epoch segundos y precio YES.
type pricePoint struct {
	Timestamp int64   `json:"t"`
	Price     float64 `json:"p"`
}
