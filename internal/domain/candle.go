package domain

import "time"

// Granularity es el tamaño del bucket temporal de las velas.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// Fidelity devuelve el tamaño del bucket en minutos, el formato
// que espera el endpoint prices-history del CLOB.
func (g Granularity) Fidelity() int {
	switch g {
	case GranularityMinute:
		return 1
	case GranularityHour:
		return 60
	case GranularityDay:
		return 1440
	default:
		return 60
	}
}

// Candlestick es un agregado OHLCV del precio YES de un mercado binario.
// Close es la probabilidad implícita de YES; el precio NO es siempre 1-Close.
type Candlestick struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Valid devuelve true si la vela es admisible para el replay: close en (0, 1].
// Precios 0 o fuera de rango indican datos degenerados y se descartan.
func (c Candlestick) Valid() bool {
	return c.Close > 0 && c.Close <= 1
}

// NoPrice devuelve el precio del lado NO.
func (c Candlestick) NoPrice() float64 {
	return 1 - c.Close
}

// PriceFor devuelve el precio del lado dado.
func (c Candlestick) PriceFor(side Side) float64 {
	if side == SideNo {
		return c.NoPrice()
	}
	return c.Close
}
