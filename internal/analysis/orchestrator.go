// Package analysis implements the detection orchestrator: it fans detection
// out concurrently over pending content events, records analytics for
// successful detections and isolates per-event failures.
package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/detector"
	"github.com/astralabs/astra-go/internal/logging"
	"github.com/astralabs/astra-go/internal/observability"
)

// previewLength bounds the text preview stored on analytics records.
const previewLength = 200

// Summary reports the outcome of one ProcessPending run.
type Summary struct {
	Fetched   int `json:"fetched"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Orchestrator coordinates detection over pending content events.
type Orchestrator struct {
	ds        datastore.Interface
	detectors *detector.Manager
	settings  *conf.Settings
	metrics   *observability.Metrics
	log       *slog.Logger
}

// NewOrchestrator creates a detection orchestrator. metrics may be nil.
func NewOrchestrator(ds datastore.Interface, detectors *detector.Manager, settings *conf.Settings, metrics *observability.Metrics) *Orchestrator {
	log := logging.ForService("analysis")
	if log == nil {
		log = slog.Default().With("service", "analysis")
	}
	return &Orchestrator{
		ds:        ds,
		detectors: detectors,
		settings:  settings,
		metrics:   metrics,
		log:       log,
	}
}

type eventOutcome int

const (
	outcomeProcessed eventOutcome = iota
	outcomeFailed
	outcomeSkipped // run aborted before this event's detection completed, stays NEW
)

// ProcessPending fetches all events, selects the NEW subset and runs
// detection over it concurrently. Events move NEW -> DETECTED on success and
// NEW -> FAILED on any per-event failure; failure of one event never aborts
// its siblings. A run with no pending events returns a zero-processed summary
// without error.
func (o *Orchestrator) ProcessPending(ctx context.Context) (Summary, error) {
	events, err := o.ds.GetAllEvents(0)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Fetched: len(events)}
	if o.metrics != nil {
		o.metrics.Detection.EventsFetched.Add(float64(len(events)))
	}

	pending := make([]datastore.ContentEvent, 0, len(events))
	for i := range events {
		if isPending(events[i].ProcessingStatus) {
			pending = append(pending, events[i])
		}
	}
	if len(pending) == 0 {
		return summary, nil
	}

	// Resolve the active detector once per batch so every call in the batch
	// observes the same fully constructed instance even if a swap lands
	// mid-run. A construction failure is a configuration problem, it is
	// surfaced to the caller and no event status is touched.
	active, err := o.detectors.Active()
	if err != nil {
		return summary, err
	}
	if o.metrics != nil {
		o.metrics.Detection.ActiveDetector.Reset()
		o.metrics.Detection.ActiveDetector.WithLabelValues(active.Identify()).Set(1)
	}

	var sem chan struct{}
	if o.settings.Detection.MaxConcurrency > 0 {
		sem = make(chan struct{}, o.settings.Detection.MaxConcurrency)
	}

	results := make(chan eventOutcome, len(pending))
	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(event datastore.ContentEvent) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			// An aborted run leaves unstarted events NEW, eligible for
			// the next run.
			select {
			case <-ctx.Done():
				results <- outcomeSkipped
				return
			default:
			}
			results <- o.processEvent(ctx, active, &event)
		}(pending[i])
	}
	wg.Wait()
	close(results)

	for outcome := range results {
		switch outcome {
		case outcomeProcessed:
			summary.Processed++
		case outcomeFailed:
			summary.Failed++
		case outcomeSkipped:
		}
	}

	o.log.Info("processed pending events",
		"fetched", summary.Fetched,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"detector", active.Identify())
	return summary, nil
}

// processEvent runs detection for a single event and applies the resulting
// status transition. All failure paths are absorbed here.
func (o *Orchestrator) processEvent(ctx context.Context, active detector.Detector, event *datastore.ContentEvent) eventOutcome {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if o.settings.Detection.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.settings.Detection.Timeout)
	}
	defer cancel()

	start := time.Now()
	result, err := active.Detect(callCtx, event.Text, decodeMetadata(event.MetadataJSON))
	duration := time.Since(start)
	if o.metrics != nil {
		o.metrics.Detection.RecordDetection(err == nil, duration)
	}

	if err != nil {
		// A cancelled parent context means the run was aborted, the event
		// stays NEW. A per-call timeout with a live parent is an ordinary
		// detection failure.
		if ctx.Err() != nil {
			return outcomeSkipped
		}
		o.log.Warn("detection failed",
			"event_id", event.ID,
			"source", event.Source,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		o.markFailed(event.ID)
		return outcomeFailed
	}

	record := datastore.AnalyticsRecord{
		EventID:        event.ID,
		Source:         event.Source,
		TextPreview:    truncatePreview(event.Text),
		DetectionLabel: result.Label,
		Confidence:     result.Confidence,
		Timestamp:      result.Timestamp,
	}
	if err := o.ds.SaveAnalyticsRecord(&record); err != nil {
		o.log.Error("failed to save analytics record",
			"event_id", event.ID,
			"error", err)
		o.markFailed(event.ID)
		return outcomeFailed
	}

	if err := o.ds.UpdateEventStatus(event.ID, datastore.StatusDetected); err != nil {
		o.log.Error("failed to update event status",
			"event_id", event.ID,
			"error", err)
		return outcomeFailed
	}
	return outcomeProcessed
}

func (o *Orchestrator) markFailed(eventID string) {
	if err := o.ds.UpdateEventStatus(eventID, datastore.StatusFailed); err != nil {
		o.log.Error("failed to mark event as failed",
			"event_id", eventID,
			"error", err)
	}
}

// isPending reports whether an event should be processed. Status matching is
// case-insensitive and an unset status defaults to NEW.
func isPending(status string) bool {
	return status == "" || strings.EqualFold(status, datastore.StatusNew)
}

// truncatePreview bounds the stored preview to previewLength runes.
func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength])
}

// decodeMetadata parses the event metadata JSON, returning nil for empty or
// malformed payloads.
func decodeMetadata(metadataJSON string) map[string]any {
	if metadataJSON == "" {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return nil
	}
	return metadata
}
