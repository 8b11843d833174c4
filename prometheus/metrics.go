// Package prometheus exposes pipeline metrics with the Prometheus client.
package prometheus

import (
	"context"
	"errors"
	"net/http"

	"github.com/fwojciec/lawdoc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BytesTotal      *prometheus.CounterVec
	DocumentsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lawdoc_requests_total",
				Help: "Total number of portal requests",
			},
			[]string{"source", "kind", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lawdoc_request_duration_seconds",
				Help:    "Duration of portal requests in seconds, including the politeness delay",
				Buckets: []float64{.1, .25, .5, 1, 2, 3, 5, 10, 30, 60},
			},
			[]string{"source", "kind"},
		),
		BytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lawdoc_response_bytes_total",
				Help: "Total bytes received from the portals",
			},
			[]string{"source", "kind"},
		),
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lawdoc_documents_total",
				Help: "Total number of document outcomes recorded in the ledger",
			},
			[]string{"source", "outcome"},
		),
		registry: reg,
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// outcome labels an operation result by its error code.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return lawdoc.ErrorCode(err)
}
