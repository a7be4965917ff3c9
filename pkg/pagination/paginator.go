package pagination

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
	"github.com/Sternrassler/catalog-audit/pkg/logging"
	"github.com/Sternrassler/catalog-audit/pkg/progress"
)

// ErrPaginationFailure marks errors that aborted the listing enumeration.
var ErrPaginationFailure = errors.New("pagination failure")

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_audit_pages_fetched_total",
		Help: "Total number of non-empty listing pages fetched",
	})

	listingSKUsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_audit_listing_skus_total",
		Help: "Total number of SKU identifiers read from the listing",
	})
)

// Config holds paginator configuration
type Config struct {
	// PageSize is sent as the pageSize query parameter.
	PageSize int
}

// DefaultConfig returns the default paginator configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 500,
	}
}

// PageFetcher is implemented by the catalog client for single-page fetching.
type PageFetcher interface {
	// ListSKUIDs returns the identifiers of one page; empty means no more pages.
	ListSKUIDs(ctx context.Context, page, pageSize int) ([]catalog.SKUID, error)
}

// Paginator walks the listing endpoint page by page.
type Paginator struct {
	fetcher  PageFetcher
	config   Config
	observer progress.Observer
}

// NewPaginator creates a new paginator.
func NewPaginator(fetcher PageFetcher, config Config, observer progress.Observer) *Paginator {
	if config.PageSize <= 0 {
		config.PageSize = 500
	}
	if observer == nil {
		observer = progress.Nop{}
	}

	return &Paginator{
		fetcher:  fetcher,
		config:   config,
		observer: observer,
	}
}

// FetchAll returns every identifier of the listing in response order.
// It stops at the first empty page and nowhere else.
func (p *Paginator) FetchAll(ctx context.Context) ([]catalog.SKUID, error) {
	start := time.Now()
	logger := logging.FromContext(ctx, "paginator")

	var all []catalog.SKUID
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "listing cancelled at page %d", page), ErrPaginationFailure)
		}

		// each attempt is bounded by the client's request timeout
		ids, err := p.fetcher.ListSKUIDs(ctx, page, p.config.PageSize)

		if err != nil {
			logger.Error().
				Err(err).
				Int("page", page).
				Int("fetched", len(all)).
				Msg("Listing page failed")
			return nil, errors.Mark(errors.Wrapf(err, "fetch listing page %d", page), ErrPaginationFailure)
		}

		if len(ids) == 0 {
			break
		}

		all = append(all, ids...)
		pagesFetchedTotal.Inc()
		listingSKUsTotal.Add(float64(len(ids)))
		p.observer.PageFetched(page, len(ids), len(all))
	}

	logger.Info().
		Int("skus", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Listing enumeration complete")
	p.observer.PaginationDone(len(all))

	return all, nil
}
