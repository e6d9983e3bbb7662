package polymarket

// markets.go — listado histórico de mercados vía Gamma.
//
// Implementa la mitad de listado de ports.CandleProvider: páginas de mercados
// cerrados ordenados por fecha de resolución. Los fallos de datos se degradan
// a slice vacío — el selector los trata como fin de resultados.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polysim/internal/domain"
)

const gammaMarketsPath = "/markets"

// ListMarkets devuelve una página del listado de mercados cerrados de Gamma.
// Devuelve slice vacío (no error) ante fallos HTTP o de decode.
func (c *Client) ListMarkets(ctx context.Context, limit, offset int) ([]domain.MarketRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%s?closed=true&order=endDate&ascending=false&limit=%d&offset=%d",
		c.gammaBase, gammaMarketsPath, limit, offset)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		slog.Warn("gamma market listing failed, returning empty page",
			"offset", offset,
			"err", err,
		)
		return nil, nil
	}

	records := mapGammaMarkets(resp)
	slog.Debug("fetched gamma markets page",
		"offset", offset,
		"count", len(records),
	)
	return records, nil
}
