package audit

import (
	"time"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// FailedSKU is a SKU whose detail record could not be fetched.
type FailedSKU struct {
	ID  catalog.SKUID
	Err error
}

// Report is the outcome of one audit run.
type Report struct {
	RunID string

	// InvalidProductIDs is sorted and free of duplicates.
	InvalidProductIDs []catalog.ProductID

	// FailedSKUs is ordered by position in the listing.
	FailedSKUs []FailedSKU

	SKUsTotal     int
	SKUsProcessed int
	Batches       int

	StartedAt time.Time
	Duration  time.Duration
}
