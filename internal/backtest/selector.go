package backtest

// selector.go — resuelve qué mercados reproduce el backtest.
//
// Tres caminos: condition_id directo (descriptor sintético, sin fetch de
// metadata — las velas, no el listado, son la fuente de verdad), búsqueda por
// slug sobre el listado paginado, o universo filtrado por categoría, liquidez
// y horas hasta resolución. Un fallo del proveedor termina la paginación en
// vez de propagarse: el backtest siempre produce un resultado, aunque sea con
// cero mercados.

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
)

const (
	defaultListPageSize   = 100
	defaultMaxListRecords = 500
)

// Selector pagina el listado del proveedor y aplica la selección de mercados.
type Selector struct {
	provider ports.CandleProvider
	pageSize int
	maxFetch int
}

// NewSelector crea un Selector con los topes de paginación dados.
// Con valores <= 0 usa los defaults (páginas de 100, tope de 500 records).
func NewSelector(provider ports.CandleProvider, pageSize, maxFetch int) *Selector {
	if pageSize <= 0 {
		pageSize = defaultListPageSize
	}
	if maxFetch <= 0 {
		maxFetch = defaultMaxListRecords
	}
	return &Selector{provider: provider, pageSize: pageSize, maxFetch: maxFetch}
}

// Select resuelve la lista ordenada de mercados a reproducir.
func (s *Selector) Select(ctx context.Context, cfg *domain.StrategyConfig) []domain.MarketDescriptor {
	switch {
	case cfg.Market.ConditionID != "":
		return []domain.MarketDescriptor{syntheticDescriptor(cfg)}
	case cfg.Market.Slug != "":
		return s.selectBySlug(ctx, cfg.Market.Slug)
	default:
		return s.selectByFilter(ctx, cfg)
	}
}

// syntheticDescriptor construye el descriptor solo desde la config — el paso
// de replay es el único responsable de la existencia del mercado.
func syntheticDescriptor(cfg *domain.StrategyConfig) domain.MarketDescriptor {
	title := cfg.Name
	if title == "" {
		title = cfg.Market.ConditionID
	}
	return domain.MarketDescriptor{
		MarketID:    cfg.Market.ConditionID,
		ConditionID: cfg.Market.ConditionID,
		Title:       title,
		EndTime:     cfg.EndDate,
	}
}

// selectBySlug recorre el listado de mercados cerrados hasta el primer match.
func (s *Selector) selectBySlug(ctx context.Context, slug string) []domain.MarketDescriptor {
	var found []domain.MarketDescriptor
	s.paginate(ctx, func(r domain.MarketRecord) bool {
		if !r.Closed || r.Slug != slug {
			return true
		}
		found = append(found, r.Descriptor())
		return false // primer match gana
	})

	if len(found) == 0 {
		slog.Warn("market slug not found in listing", "slug", slug)
	}
	return found
}

// selectByFilter aplica, en orden: inclusión por categoría, cotas de liquidez
// y cotas de horas hasta resolución medidas desde el inicio del backtest.
func (s *Selector) selectByFilter(ctx context.Context, cfg *domain.StrategyConfig) []domain.MarketDescriptor {
	filter := cfg.Market.Filter
	var selected []domain.MarketDescriptor

	s.paginate(ctx, func(r domain.MarketRecord) bool {
		if filter != nil && !matchesFilter(r, filter, cfg) {
			return true
		}
		selected = append(selected, r.Descriptor())
		return true
	})

	slog.Info("markets selected by filter", "count", len(selected))
	return selected
}

func matchesFilter(r domain.MarketRecord, f *domain.MarketFilter, cfg *domain.StrategyConfig) bool {
	if len(f.Categories) > 0 && !containsFold(f.Categories, r.Category) {
		return false
	}

	liq := r.EffectiveLiquidity()
	if f.MinLiquidity != nil && liq < *f.MinLiquidity {
		return false
	}
	if f.MaxLiquidity != nil && liq > *f.MaxLiquidity {
		return false
	}

	hours := r.ResolutionTime.Sub(cfg.StartDate).Hours()
	if f.MinHoursToResolution != nil && hours < *f.MinHoursToResolution {
		return false
	}
	if f.MaxHoursToResolution != nil && hours > *f.MaxHoursToResolution {
		return false
	}
	return true
}

// paginate recorre el listado llamando a visit por record hasta que visit
// devuelva false, el listado se agote o se alcance el tope de records.
// Un batch vacío o con error termina el recorrido — nunca aborta el run.
func (s *Selector) paginate(ctx context.Context, visit func(domain.MarketRecord) bool) {
	fetched := 0
	for offset := 0; fetched < s.maxFetch; offset += s.pageSize {
		limit := s.pageSize
		if remaining := s.maxFetch - fetched; remaining < limit {
			limit = remaining
		}

		batch, err := s.provider.ListMarkets(ctx, limit, offset)
		if err != nil {
			slog.Warn("market listing failed, treating as end of results", "err", err, "offset", offset)
			return
		}
		if len(batch) == 0 {
			return
		}
		fetched += len(batch)

		for _, r := range batch {
			if !visit(r) {
				return
			}
		}
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
