package prometheus

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Ensure MetricsSession implements lawdoc.Session.
var _ lawdoc.Session = (*MetricsSession)(nil)

// MetricsSession records request counts, latency and response sizes for
// one source.
type MetricsSession struct {
	next    lawdoc.Session
	metrics *Metrics
	source  string
}

// NewMetricsSession creates a new MetricsSession.
func NewMetricsSession(next lawdoc.Session, metrics *Metrics, source string) *MetricsSession {
	return &MetricsSession{next: next, metrics: metrics, source: source}
}

// Fetch delegates to the wrapped session and records the request.
func (s *MetricsSession) Fetch(ctx context.Context, req *lawdoc.Request) (body []byte, err error) {
	defer func(begin time.Time) {
		s.observe("fetch", begin, int64(len(body)), err)
	}(time.Now())
	return s.next.Fetch(ctx, req)
}

// Download delegates to the wrapped session and records the transfer.
func (s *MetricsSession) Download(ctx context.Context, url string, w io.Writer) (n int64, err error) {
	defer func(begin time.Time) {
		s.observe("download", begin, n, err)
	}(time.Now())
	return s.next.Download(ctx, url, w)
}

// Close delegates to the wrapped session.
func (s *MetricsSession) Close() error {
	return s.next.Close()
}

func (s *MetricsSession) observe(kind string, begin time.Time, n int64, err error) {
	s.metrics.RequestsTotal.WithLabelValues(s.source, kind, outcome(err)).Inc()
	s.metrics.RequestDuration.WithLabelValues(s.source, kind).Observe(time.Since(begin).Seconds())
	s.metrics.BytesTotal.WithLabelValues(s.source, kind).Add(float64(n))
}

// Ensure MetricsSessionFactory implements lawdoc.SessionFactory.
var _ lawdoc.SessionFactory = (*MetricsSessionFactory)(nil)

// MetricsSessionFactory wraps every session it opens in a MetricsSession.
type MetricsSessionFactory struct {
	next    lawdoc.SessionFactory
	metrics *Metrics
}

// NewMetricsSessionFactory creates a new MetricsSessionFactory.
func NewMetricsSessionFactory(next lawdoc.SessionFactory, metrics *Metrics) *MetricsSessionFactory {
	return &MetricsSessionFactory{next: next, metrics: metrics}
}

// NewSession implements lawdoc.SessionFactory.
func (f *MetricsSessionFactory) NewSession(src *lawdoc.SourceConfig) (lawdoc.Session, error) {
	session, err := f.next.NewSession(src)
	if err != nil {
		return nil, err
	}
	return NewMetricsSession(session, f.metrics, src.Name), nil
}
