package progress

import (
	"github.com/rs/zerolog"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// LogObserver writes progress as structured log events.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates an observer logging through logger.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) PageFetched(page, count, total int) {
	o.logger.Info().
		Int("page", page).
		Int("skus", count).
		Int("total", total).
		Msg("Listing page fetched")
}

func (o *LogObserver) PaginationDone(total int) {
	o.logger.Info().Int("total", total).Msg("Listing complete")
}

func (o *LogObserver) BatchStarted(batch, size int) {
	o.logger.Debug().Int("batch", batch).Int("size", size).Msg("Batch started")
}

func (o *LogObserver) SKUProcessed(id catalog.SKUID, outcome Outcome) {
	o.logger.Debug().Str("sku", string(id)).Str("outcome", string(outcome)).Msg("SKU processed")
}

func (o *LogObserver) BatchDone(batch, processed, total int) {
	o.logger.Info().
		Int("batch", batch).
		Int("processed", processed).
		Int("total", total).
		Float64("progress_pct", pct(processed, total)).
		Msg("Batch complete")
}

func pct(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(n) / float64(total) * 100
}
