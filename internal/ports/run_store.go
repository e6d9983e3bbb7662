package ports

import (
	"context"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// RunStore persiste los resultados de cada backtest.
type RunStore interface {
	// SaveRun persiste el resultado completo: fila de run + trades cerrados.
	SaveRun(ctx context.Context, result *domain.BacktestResult) error

	// GetRuns devuelve los últimos runs, el más reciente primero.
	GetRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
