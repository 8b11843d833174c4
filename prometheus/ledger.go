package prometheus

import (
	"context"

	"github.com/fwojciec/lawdoc"
)

// Ensure MetricsLedger implements lawdoc.Ledger.
var _ lawdoc.Ledger = (*MetricsLedger)(nil)

// MetricsLedger counts document outcomes as they are recorded.
type MetricsLedger struct {
	lawdoc.Ledger
	metrics *Metrics
}

// NewMetricsLedger creates a new MetricsLedger.
func NewMetricsLedger(next lawdoc.Ledger, metrics *Metrics) *MetricsLedger {
	return &MetricsLedger{Ledger: next, metrics: metrics}
}

// MarkDone delegates to the wrapped ledger and counts the completion.
func (l *MetricsLedger) MarkDone(ctx context.Context, c *lawdoc.Completion) error {
	if err := l.Ledger.MarkDone(ctx, c); err != nil {
		return err
	}
	out := "done"
	if len(c.FailedFormats) > 0 {
		out = "done_partial"
	}
	l.metrics.DocumentsTotal.WithLabelValues(c.SourceID, out).Inc()
	return nil
}

// MarkFailed delegates to the wrapped ledger and counts the failure.
func (l *MetricsLedger) MarkFailed(ctx context.Context, f *lawdoc.Failure) error {
	if err := l.Ledger.MarkFailed(ctx, f); err != nil {
		return err
	}
	out := "retry"
	if f.Terminal {
		out = "failed"
	}
	l.metrics.DocumentsTotal.WithLabelValues(f.Stub.SourceID, out).Inc()
	return nil
}
