package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains all Prometheus metrics related to content ingestion.
type IngestMetrics struct {
	EventsIngested *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	registry       *prometheus.Registry
}

// NewIngestMetrics creates a new instance of IngestMetrics.
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ingest metrics: %w", err)
	}
	return m, nil
}

func (m *IngestMetrics) initMetrics() {
	m.EventsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_events_total",
		Help: "Total number of content events ingested per connector",
	}, []string{"connector"})

	m.FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_fetch_errors_total",
		Help: "Total number of connector fetch errors per connector",
	}, []string{"connector"})
}

// Describe implements the prometheus.Collector interface.
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EventsIngested.Describe(ch)
	m.FetchErrors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EventsIngested.Collect(ch)
	m.FetchErrors.Collect(ch)
}
