// Package metrics exposes Prometheus metrics and a health endpoint for the
// catalog service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for ingestion and search.
// Every method is safe on a nil *Metrics, which records nothing.
type Metrics struct {
	// Ingestion
	IngestPassesTotal *prometheus.CounterVec // labels: outcome=completed|fetch_failed|skipped
	IngestItemsTotal  *prometheus.CounterVec // labels: result=inserted|updated|failed
	IngestPassDur     prometheus.Histogram
	IngestInFlight    prometheus.Gauge
	ProviderFetchDur  prometheus.Histogram
	PlansFetched      prometheus.Counter

	// Search
	SearchTotal *prometheus.CounterVec // labels: outcome=ok|error
	SearchDur   prometheus.Histogram
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IngestPassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_ingest_passes_total",
			Help: "Ingestion passes by outcome",
		}, []string{"outcome"}),
		IngestItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_ingest_items_total",
			Help: "Provider events reconciled, by result",
		}, []string{"result"}),
		IngestPassDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_ingest_pass_duration_seconds",
			Help:    "Wall time of one ingestion pass",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		IngestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_ingest_in_flight",
			Help: "Ingestion passes currently running",
		}),
		ProviderFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_provider_fetch_duration_seconds",
			Help:    "Provider feed fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		PlansFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_provider_events_fetched_total",
			Help: "Provider events returned by successful fetches",
		}),
		SearchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_search_total",
			Help: "Search requests by outcome",
		}, []string{"outcome"}),
		SearchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Search latency at the service layer",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.IngestPassesTotal,
		m.IngestItemsTotal,
		m.IngestPassDur,
		m.IngestInFlight,
		m.ProviderFetchDur,
		m.PlansFetched,
		m.SearchTotal,
		m.SearchDur,
	)
	return m
}

// PassStarted marks a pass as running.
func (m *Metrics) PassStarted() {
	if m == nil {
		return
	}
	m.IngestInFlight.Inc()
}

// PassFinished records the outcome of a pass that was started.
func (m *Metrics) PassFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.IngestInFlight.Dec()
	m.IngestPassesTotal.WithLabelValues(outcome).Inc()
	m.IngestPassDur.Observe(d.Seconds())
}

// PassSkipped records a trigger refused by the pass guard.
func (m *Metrics) PassSkipped() {
	if m == nil {
		return
	}
	m.IngestPassesTotal.WithLabelValues("skipped").Inc()
}

// Fetched records a provider fetch.
func (m *Metrics) Fetched(n int, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderFetchDur.Observe(d.Seconds())
	m.PlansFetched.Add(float64(n))
}

// Item records the reconciliation result of one provider event.
func (m *Metrics) Item(result string) {
	if m == nil {
		return
	}
	m.IngestItemsTotal.WithLabelValues(result).Inc()
}

// Searched records one search call.
func (m *Metrics) Searched(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SearchTotal.WithLabelValues(outcome).Inc()
	m.SearchDur.Observe(d.Seconds())
}
