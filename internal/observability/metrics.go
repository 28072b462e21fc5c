// Package observability provides Prometheus metrics for the ASTRA pipeline.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/astralabs/astra-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Detection *metrics.DetectionMetrics
	Exchange  *metrics.ExchangeMetrics
	Ingest    *metrics.IngestMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	detectionMetrics, err := metrics.NewDetectionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection metrics: %w", err)
	}

	exchangeMetrics, err := metrics.NewExchangeMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange metrics: %w", err)
	}

	ingestMetrics, err := metrics.NewIngestMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Detection: detectionMetrics,
		Exchange:  exchangeMetrics,
		Ingest:    ingestMetrics,
	}, nil
}

// Handler returns an HTTP handler exposing the registered metrics in
// Prometheus format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
