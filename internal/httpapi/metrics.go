package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the admission controller's Prometheus instrumentation
// (SPEC_FULL.md §11's domain-stack commitment to client_golang). Each
// Server owns its own registry so tests can construct independent Servers
// without colliding on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	AdmissionDecisions *prometheus.CounterVec
	BatchDuration       prometheus.Histogram
	RegistrySize        *prometheus.GaugeVec
}

// NewMetrics builds and registers a fresh metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		AdmissionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Count of add_clients batch decisions by result.",
		}, []string{"result"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "admission_batch_duration_seconds",
			Help:    "Wall-clock time spent inside one AddClients call.",
			Buckets: prometheus.DefBuckets,
		}),
		RegistrySize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "admission_registry_size",
			Help: "Current count of registry objects by kind (queue, flow, client).",
		}, []string{"kind"}),
	}

	reg.MustRegister(m.AdmissionDecisions, m.BatchDuration, m.RegistrySize)
	m.AdmissionDecisions.WithLabelValues("admitted")
	m.AdmissionDecisions.WithLabelValues("rejected")
	return m
}

// Handler exposes the metric set for scraping at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe updates RegistrySize from a live snapshot of queue/flow/client
// counts, called after every AddClients decision and after every successful
// DelClient/AddQueue/DelQueue.
func (m *Metrics) Observe(queues, flows, clients int) {
	m.RegistrySize.WithLabelValues("queue").Set(float64(queues))
	m.RegistrySize.WithLabelValues("flow").Set(float64(flows))
	m.RegistrySize.WithLabelValues("client").Set(float64(clients))
}
