package polymarket

// candles.go — histórico de precios vía CLOB /prices-history.
//
// Implementa la mitad de velas de ports.CandleProvider. La granularidad se
// traduce a fidelity (minutos por bucket); el fallback hora→día lo decide el
// caller, aquí solo se ejecuta la request pedida.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

const pricesHistoryPath = "/prices-history"

// GetCandles devuelve las velas del mercado en [start, end] con la
// granularidad dada, ordenadas ascendentes por timestamp (orden que ya
// garantiza el endpoint). Devuelve slice vacío (no error) ante fallos de
// datos o rangos fuera de cobertura.
func (c *Client) GetCandles(
	ctx context.Context,
	marketKey string,
	g domain.Granularity,
	start, end time.Time,
) ([]domain.Candlestick, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s?market=%s&fidelity=%d&startTs=%d&endTs=%d",
		c.clobBase, pricesHistoryPath,
		marketKey,
		g.Fidelity(),
		start.Unix(), end.Unix(),
	)

	var resp pricesHistoryResponse
	if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
		slog.Warn("prices-history fetch failed, returning no candles",
			"market", marketKey,
			"granularity", g,
			"err", err,
		)
		return nil, nil
	}

	candles := mapPricePoints(resp.History)
	slog.Debug("fetched candles",
		"market", marketKey,
		"granularity", g,
		"count", len(candles),
	)
	return candles, nil
}
