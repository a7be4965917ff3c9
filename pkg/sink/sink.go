// Package sink writes the result of an audit run to its destinations:
// the output file, the terminal and optionally Redis.
package sink

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sternrassler/catalog-audit/pkg/audit"
)

var (
	writesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_audit_sink_writes_total",
			Help: "Total number of report writes by sink",
		},
		[]string{"sink"}, // "file", "console", "redis"
	)

	writeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_audit_sink_errors_total",
			Help: "Total number of failed report writes by sink",
		},
		[]string{"sink"},
	)
)

// Sink receives the report of a successful run.
type Sink interface {
	Write(ctx context.Context, report *audit.Report) error
}

// Multi writes to every sink in order and returns the first error.
// Sinks after a failing one are still written.
type Multi []Sink

func (m Multi) Write(ctx context.Context, report *audit.Report) error {
	var first error
	for _, s := range m {
		if err := s.Write(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func observe(sink string, err error) error {
	if err != nil {
		writeErrors.WithLabelValues(sink).Inc()
		return errors.Wrapf(err, "%s sink", sink)
	}
	writesTotal.WithLabelValues(sink).Inc()
	return nil
}
