// Package progress defines the observer hooks the audit engine reports
// progress through, plus log and terminal renderings of them.
//
// The engine only calls hooks; it never renders. SKUProcessed is called
// from concurrent workers, so implementations must be safe for concurrent use.
package progress

import (
	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// Outcome is the result of processing one SKU.
type Outcome string

const (
	// OutcomeValid means the SKU's product has a reference code.
	OutcomeValid Outcome = "valid"

	// OutcomeInvalid means the SKU's product is missing its reference code.
	OutcomeInvalid Outcome = "invalid"

	// OutcomeFailed means the detail record could not be fetched.
	OutcomeFailed Outcome = "failed"
)

// Observer receives progress ticks from the paginator and the orchestrator.
type Observer interface {
	// PageFetched is called for each non-empty listing page.
	PageFetched(page, count, total int)

	// PaginationDone is called once the listing is exhausted.
	PaginationDone(total int)

	// BatchStarted is called before a batch's fetches are launched.
	BatchStarted(batch, size int)

	// SKUProcessed is called once per SKU, from worker goroutines.
	SKUProcessed(id catalog.SKUID, outcome Outcome)

	// BatchDone is called after every fetch of a batch settled.
	BatchDone(batch, processed, total int)
}

// Nop is an Observer that ignores every tick.
type Nop struct{}

func (Nop) PageFetched(int, int, int) {}
func (Nop) PaginationDone(int) {}
func (Nop) BatchStarted(int, int) {}
func (Nop) SKUProcessed(catalog.SKUID, Outcome) {}
func (Nop) BatchDone(int, int, int) {}

// Multi fans every tick out to several observers.
type Multi []Observer

func (m Multi) PageFetched(page, count, total int) {
	for _, o := range m {
		o.PageFetched(page, count, total)
	}
}

func (m Multi) PaginationDone(total int) {
	for _, o := range m {
		o.PaginationDone(total)
	}
}

func (m Multi) BatchStarted(batch, size int) {
	for _, o := range m {
		o.BatchStarted(batch, size)
	}
}

func (m Multi) SKUProcessed(id catalog.SKUID, outcome Outcome) {
	for _, o := range m {
		o.SKUProcessed(id, outcome)
	}
}

func (m Multi) BatchDone(batch, processed, total int) {
	for _, o := range m {
		o.BatchDone(batch, processed, total)
	}
}
