package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// BarObserver renders progress on a terminal: one line per listing page,
// then a progress bar over the detail phase.
type BarObserver struct {
	mu      sync.Mutex
	out     io.Writer
	bar     *pterm.ProgressbarPrinter
	invalid int
	failed  int
}

// NewBarObserver creates a terminal observer writing to out.
func NewBarObserver(out io.Writer) *BarObserver {
	return &BarObserver{out: out}
}

func (o *BarObserver) PageFetched(page, count, total int) {
	pterm.Fprintln(o.out, fmt.Sprintf("🔄 %s %d: %s SKUs (%d so far)",
		pterm.LightCyan("page"), page, pterm.Green(count), total))
}

func (o *BarObserver) PaginationDone(total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if total == 0 {
		return
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Fetching SKU details").
		WithWriter(o.out).
		Start()
	if err != nil {
		// rendering is best effort
		return
	}
	o.bar = bar
}

func (o *BarObserver) BatchStarted(batch, size int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil {
		o.bar.UpdateTitle(fmt.Sprintf("Batch %d (%d SKUs)", batch, size))
	}
}

func (o *BarObserver) SKUProcessed(_ catalog.SKUID, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch outcome {
	case OutcomeInvalid:
		o.invalid++
	case OutcomeFailed:
		o.failed++
	}
	if o.bar != nil {
		o.bar.Increment()
	}
}

func (o *BarObserver) BatchDone(_, processed, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil && processed >= total {
		_, _ = o.bar.Stop()
		o.bar = nil
		pterm.Fprintln(o.out, fmt.Sprintf("✅ Processed %s SKUs: %d without ProductRefId, %d failed",
			pterm.Green(processed), o.invalid, o.failed))
	}
}

// Stop tears the progress bar down if it is still rendering, e.g. after
// an aborted or cancelled run. Calling it again is a no-op.
func (o *BarObserver) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.bar != nil {
		_, _ = o.bar.Stop()
		o.bar = nil
	}
}
