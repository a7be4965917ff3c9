package audit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// Lister enumerates every SKU identifier of the catalog.
type Lister interface {
	FetchAll(ctx context.Context) ([]catalog.SKUID, error)
}

// Auditor runs the full pipeline: enumerate, resolve, reduce.
type Auditor struct {
	lister       Lister
	orchestrator *Orchestrator
}

// NewAuditor creates an auditor from a listing source and an orchestrator.
func NewAuditor(lister Lister, orchestrator *Orchestrator) *Auditor {
	return &Auditor{
		lister:       lister,
		orchestrator: orchestrator,
	}
}

// Run performs one audit. Every log line written during the run carries
// the run ID.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()

	logger := log.With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Msg("Audit started")

	ids, err := a.lister.FetchAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Audit failed during enumeration")
		return nil, errors.Wrap(err, "enumerate SKUs")
	}

	report, err := a.orchestrator.Resolve(ctx, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Audit failed while resolving SKUs")
		return nil, errors.Wrap(err, "resolve SKUs")
	}

	report.RunID = runID
	report.StartedAt = start
	report.Duration = time.Since(start)

	logger.Info().
		Int("skus", report.SKUsTotal).
		Int("invalid_products", len(report.InvalidProductIDs)).
		Int("failed_skus", len(report.FailedSKUs)).
		Dur("duration", report.Duration).
		Msg("Audit complete")

	return report, nil
}
