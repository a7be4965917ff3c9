package sink

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
)

// ConsoleSink prints the invalid product ids and a run summary.
type ConsoleSink struct {
	out io.Writer

	// MaxFailed limits how many failed SKUs are listed; 0 lists none.
	MaxFailed int
}

// NewConsoleSink creates a console sink writing to out (default os.Stdout).
func NewConsoleSink(out io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSink{out: out, MaxFailed: 20}
}

func (s *ConsoleSink) Write(_ context.Context, report *audit.Report) error {
	for _, id := range report.InvalidProductIDs {
		pterm.Fprintln(s.out, string(id))
	}

	pterm.Success.WithWriter(s.out).Printfln("%d products without ProductRefId (%d SKUs checked in %s)",
		len(report.InvalidProductIDs), report.SKUsProcessed, report.Duration.Round(time.Millisecond))

	if n := len(report.FailedSKUs); n > 0 {
		pterm.Warning.WithWriter(s.out).Printfln("%d SKUs could not be fetched and were skipped", n)
		for i, f := range report.FailedSKUs {
			if i >= s.MaxFailed {
				pterm.Fprintln(s.out, pterm.Gray("  ..."))
				break
			}
			pterm.Fprintln(s.out, pterm.Gray("  "+string(f.ID)+": "+f.Err.Error()))
		}
	}

	return observe("console", nil)
}
