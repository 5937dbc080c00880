package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vectorscan"

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	indexSize      prometheus.Gauge
}

// NewMetrics creates collectors on a private registry, together with Go and process metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_operations_total",
				Help:      "Index operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		indexSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_size",
				Help:      "Number of vectors in the index, deleted ones included",
			},
		),
	}
	m.registry.MustRegister(m.operations, m.searchDuration, m.indexSize)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(op, status).Inc()
}
