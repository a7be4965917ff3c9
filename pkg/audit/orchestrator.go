// Package audit resolves the set of products whose SKUs lack a product
// reference code: batched, bounded-concurrency detail fetching folded into
// a deduplicated result set.
package audit

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
	"github.com/Sternrassler/catalog-audit/pkg/logging"
	"github.com/Sternrassler/catalog-audit/pkg/progress"
)

var (
	skusProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_audit_skus_processed_total",
		Help: "Total SKUs processed by outcome",
	}, []string{"outcome"})

	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_audit_batches_total",
		Help: "Total number of completed batches",
	})

	invalidProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_audit_invalid_products",
		Help: "Number of distinct products without a reference code in the last run",
	})
)

// FailurePolicy decides what a per-SKU fetch failure does to the run.
type FailurePolicy string

const (
	// FailureSkip records the SKU in Report.FailedSKUs and carries on.
	FailureSkip FailurePolicy = "skip"

	// FailureAbort cancels the batch and fails the run.
	FailureAbort FailurePolicy = "abort"
)

// ParseFailurePolicy parses "skip" or "abort".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case FailureSkip, FailureAbort:
		return p, nil
	case "":
		return FailureSkip, nil
	default:
		return "", errors.Newf("unknown failure policy %q (want skip or abort)", s)
	}
}

// Config holds orchestrator configuration.
type Config struct {
	// BatchSize is the number of SKUs per batch. Batches run strictly in sequence.
	BatchSize int

	// Concurrency caps in-flight fetches within a batch.
	Concurrency int

	// OnFailure is the per-SKU failure policy.
	OnFailure FailurePolicy
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:   1000,
		Concurrency: 50,
		OnFailure:   FailureSkip,
	}
}

// DetailFetcher fetches one SKU detail record, retries included.
type DetailFetcher interface {
	FetchSKU(ctx context.Context, id catalog.SKUID) (*catalog.SKUDetail, error)
}

// Orchestrator fans detail fetches out batch by batch.
type Orchestrator struct {
	fetcher  DetailFetcher
	config   Config
	observer progress.Observer
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(fetcher DetailFetcher, config Config, observer progress.Observer) *Orchestrator {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 50
	}
	if config.OnFailure == "" {
		config.OnFailure = FailureSkip
	}
	if observer == nil {
		observer = progress.Nop{}
	}

	return &Orchestrator{
		fetcher:  fetcher,
		config:   config,
		observer: observer,
	}
}

// Resolve fetches every SKU in ids and returns the products missing a
// reference code.
//
// Each batch settles completely before the next one starts. A SKU whose
// fetch fails never contributes to the result; under FailureSkip it is
// listed in Report.FailedSKUs, under FailureAbort the run fails.
func (o *Orchestrator) Resolve(ctx context.Context, ids []catalog.SKUID) (*Report, error) {
	start := time.Now()
	logger := logging.FromContext(ctx, "orchestrator")

	results := NewResultSet()
	failures := &failureLog{}
	report := &Report{
		SKUsTotal: len(ids),
		StartedAt: start,
	}

	logger.Info().
		Int("skus", len(ids)).
		Int("batch_size", o.config.BatchSize).
		Int("concurrency", o.config.Concurrency).
		Str("on_failure", string(o.config.OnFailure)).
		Msg("Resolving SKU details")

	for batchNum, lo := 1, 0; lo < len(ids); batchNum, lo = batchNum+1, lo+o.config.BatchSize {
		hi := min(lo+o.config.BatchSize, len(ids))
		batch := ids[lo:hi]

		o.observer.BatchStarted(batchNum, len(batch))
		if err := o.runBatch(ctx, logger, lo, batch, results, failures); err != nil {
			logger.Error().
				Err(err).
				Int("batch", batchNum).
				Int("processed", report.SKUsProcessed).
				Msg("Batch aborted")
			return nil, errors.Wrapf(err, "batch %d", batchNum)
		}

		report.SKUsProcessed += len(batch)
		report.Batches++
		batchesTotal.Inc()
		o.observer.BatchDone(batchNum, report.SKUsProcessed, len(ids))
	}

	report.InvalidProductIDs = results.Sorted()
	report.FailedSKUs = failures.sorted()
	report.Duration = time.Since(start)
	invalidProducts.Set(float64(len(report.InvalidProductIDs)))

	logger.Info().
		Int("skus", report.SKUsProcessed).
		Int("batches", report.Batches).
		Int("invalid_products", len(report.InvalidProductIDs)).
		Int("failed_skus", len(report.FailedSKUs)).
		Dur("duration", report.Duration).
		Msg("SKU details resolved")

	return report, nil
}

// runBatch fetches one batch and waits for every fetch to settle.
func (o *Orchestrator) runBatch(ctx context.Context, logger zerolog.Logger, offset int, batch []catalog.SKUID, results *ResultSet, failures *failureLog) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Concurrency)

	for i, id := range batch {
		i, id := i, id
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			detail, err := o.fetcher.FetchSKU(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					// cancelled by the parent or by an aborting sibling
					return nil
				}
				skusProcessedTotal.WithLabelValues(string(progress.OutcomeFailed)).Inc()
				o.observer.SKUProcessed(id, progress.OutcomeFailed)

				if o.config.OnFailure == FailureAbort {
					return errors.Wrapf(err, "sku %s", id)
				}
				failures.add(offset+i, id, err)
				logger.Warn().Err(err).Str("sku", string(id)).Msg("Skipping SKU")
				return nil
			}

			outcome := progress.OutcomeValid
			if productID, invalid := Reduce(detail); invalid {
				outcome = progress.OutcomeInvalid
				results.Add(productID)
				logger.Debug().
					Str("sku", string(id)).
					Str("product", string(productID)).
					Msg("SKU has no ProductRefId")
			}
			skusProcessedTotal.WithLabelValues(string(outcome)).Inc()
			o.observer.SKUProcessed(id, outcome)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "run cancelled")
	}
	return nil
}

// failureLog collects skipped SKUs from concurrent workers.
type failureLog struct {
	mu      sync.Mutex
	entries []indexedFailure
}

type indexedFailure struct {
	index int
	FailedSKU
}

func (l *failureLog) add(index int, id catalog.SKUID, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, indexedFailure{index: index, FailedSKU: FailedSKU{ID: id, Err: err}})
}

func (l *failureLog) sorted() []FailedSKU {
	l.mu.Lock()
	defer l.mu.Unlock()

	slices.SortFunc(l.entries, func(a, b indexedFailure) int { return a.index - b.index })
	out := make([]FailedSKU, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.FailedSKU
	}
	return out
}
