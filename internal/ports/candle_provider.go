package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// CandleProvider suministra el listado histórico de mercados y sus velas.
//
// Contrato de fallos: un fallo de datos (HTTP, decode, rango fuera de
// cobertura) se degrada a slice vacío con error nil — el tratamiento
// "sin datos" del engine es una decisión explícita, no un error tragado
// por accidente. El error solo es no-nil por cancelación de contexto.
type CandleProvider interface {
	// ListMarkets devuelve una página del listado de mercados cerrados,
	// ordenados por fecha de resolución descendente.
	ListMarkets(ctx context.Context, limit, offset int) ([]domain.MarketRecord, error)

	// GetCandles devuelve las velas del mercado en [start, end] con la
	// granularidad pedida, ordenadas por timestamp ascendente. El caller es
	// responsable del fallback de granularidad si la respuesta viene vacía.
	GetCandles(ctx context.Context, marketKey string, g domain.Granularity, start, end time.Time) ([]domain.Candlestick, error)
}
