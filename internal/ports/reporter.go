package ports

import (
	"context"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Reporter presenta el resultado de un backtest al usuario.
type Reporter interface {
	// Report muestra el resumen del run. En la implementación de consola,
	// imprime las métricas y la tabla de trades formateadas.
	Report(ctx context.Context, result *domain.BacktestResult) error
}
