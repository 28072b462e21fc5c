package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics contains all Prometheus metrics related to threat exchange operations.
type ExchangeMetrics struct {
	EnvelopesExported  prometheus.Counter
	IndicatorsExported prometheus.Counter
	EnvelopesImported  prometheus.Counter
	IndicatorsImported prometheus.Counter
	ImportsRejected    prometheus.Counter
	registry           *prometheus.Registry
}

// NewExchangeMetrics creates a new instance of ExchangeMetrics.
func NewExchangeMetrics(registry *prometheus.Registry) (*ExchangeMetrics, error) {
	m := &ExchangeMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register exchange metrics: %w", err)
	}
	return m, nil
}

func (m *ExchangeMetrics) initMetrics() {
	m.EnvelopesExported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_envelopes_exported_total",
		Help: "Total number of threat exchange envelopes exported",
	})

	m.IndicatorsExported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_indicators_exported_total",
		Help: "Total number of threat indicators exported",
	})

	m.EnvelopesImported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_envelopes_imported_total",
		Help: "Total number of threat exchange envelopes imported",
	})

	m.IndicatorsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_indicators_imported_total",
		Help: "Total number of threat indicators imported",
	})

	m.ImportsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exchange_imports_rejected_total",
		Help: "Total number of envelope imports rejected for schema version mismatch",
	})
}

// Describe implements the prometheus.Collector interface.
func (m *ExchangeMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EnvelopesExported.Describe(ch)
	m.IndicatorsExported.Describe(ch)
	m.EnvelopesImported.Describe(ch)
	m.IndicatorsImported.Describe(ch)
	m.ImportsRejected.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *ExchangeMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EnvelopesExported.Collect(ch)
	m.IndicatorsExported.Collect(ch)
	m.EnvelopesImported.Collect(ch)
	m.IndicatorsImported.Collect(ch)
	m.ImportsRejected.Collect(ch)
}
