package domain

import "time"

// Outcome es la resolución conocida de un mercado binario.
// OutcomeUnknown significa que el mercado aún no resolvió (o no tenemos el dato).
type Outcome string

const (
	OutcomeUnknown Outcome = ""
	OutcomeYes     Outcome = "YES"
	OutcomeNo      Outcome = "NO"
	OutcomeInvalid Outcome = "INVALID"
)

// MarketDescriptor identifica un mercado seleccionado para el replay.
type MarketDescriptor struct {
	MarketID    string
	ConditionID string
	Title       string
	EndTime     time.Time
	Outcome     Outcome // solo conocido para mercados resueltos
}

// Resolved devuelve true si el descriptor lleva una resolución conocida.
func (m MarketDescriptor) Resolved() bool {
	return m.Outcome != OutcomeUnknown
}

// SettlementPrice devuelve el precio de liquidación para el lado dado:
// 1.0 si el outcome coincide con el lado, 0.0 si no coincide, y el precio
// de entrada (reembolso) si el mercado resolvió INVALID.
func (m MarketDescriptor) SettlementPrice(side Side, entryPrice float64) float64 {
	switch m.Outcome {
	case OutcomeInvalid:
		return entryPrice
	case OutcomeYes:
		if side == SideYes {
			return 1.0
		}
		return 0.0
	case OutcomeNo:
		if side == SideNo {
			return 1.0
		}
		return 0.0
	}
	return entryPrice
}

// MarketRecord es una fila del listado de mercados del proveedor de datos.
// Es la materia prima del selector; no participa en el replay.
type MarketRecord struct {
	MarketID       string
	ConditionID    string
	Slug           string
	Question       string
	Category       string
	Liquidity      float64
	VolumeTotal    float64
	Volume         float64
	ResolutionTime time.Time
	Outcome        Outcome
	Closed         bool
}

// EffectiveLiquidity devuelve la primera métrica de liquidez disponible:
// liquidity, volumen total, volumen, o 0 si ninguna está poblada.
func (r MarketRecord) EffectiveLiquidity() float64 {
	switch {
	case r.Liquidity > 0:
		return r.Liquidity
	case r.VolumeTotal > 0:
		return r.VolumeTotal
	case r.Volume > 0:
		return r.Volume
	}
	return 0
}

// Descriptor construye el MarketDescriptor a partir del record del listado.
func (r MarketRecord) Descriptor() MarketDescriptor {
	return MarketDescriptor{
		MarketID:    r.MarketID,
		ConditionID: r.ConditionID,
		Title:       r.Question,
		EndTime:     r.ResolutionTime,
		Outcome:     r.Outcome,
	}
}
