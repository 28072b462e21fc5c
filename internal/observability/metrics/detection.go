// Package metrics provides custom Prometheus metrics for the ASTRA pipeline components.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DetectionMetrics contains all Prometheus metrics related to detection orchestration.
type DetectionMetrics struct {
	EventsFetched     prometheus.Counter
	EventsProcessed   prometheus.Counter
	EventsFailed      prometheus.Counter
	DetectionDuration prometheus.Histogram
	ActiveDetector    *prometheus.GaugeVec
	registry          *prometheus.Registry
}

// NewDetectionMetrics creates a new instance of DetectionMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewDetectionMetrics(registry *prometheus.Registry) (*DetectionMetrics, error) {
	m := &DetectionMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for DetectionMetrics.
func (m *DetectionMetrics) initMetrics() {
	m.EventsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_events_fetched_total",
		Help: "Total number of content events fetched for processing",
	})

	m.EventsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_events_processed_total",
		Help: "Total number of content events successfully detected",
	})

	m.EventsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_events_failed_total",
		Help: "Total number of content events that failed detection",
	})

	m.DetectionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "detection_call_duration_seconds",
		Help:    "Duration of individual detection calls",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	m.ActiveDetector = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "detection_active_detector",
		Help: "Currently active detector (1 for the active one)",
	}, []string{"detector"})
}

// RecordDetection records the outcome and duration of one detection call.
func (m *DetectionMetrics) RecordDetection(success bool, duration time.Duration) {
	if success {
		m.EventsProcessed.Inc()
	} else {
		m.EventsFailed.Inc()
	}
	m.DetectionDuration.Observe(duration.Seconds())
}

// Describe implements the prometheus.Collector interface.
func (m *DetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EventsFetched.Describe(ch)
	m.EventsProcessed.Describe(ch)
	m.EventsFailed.Describe(ch)
	m.DetectionDuration.Describe(ch)
	m.ActiveDetector.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *DetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EventsFetched.Collect(ch)
	m.EventsProcessed.Collect(ch)
	m.EventsFailed.Collect(ch)
	m.DetectionDuration.Collect(ch)
	m.ActiveDetector.Collect(ch)
}
