// Package ingest collects content from external sources and persists it as
// content events awaiting detection. Connectors normalize source-specific
// payloads into events; the publisher batches and stores them.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/logging"
	"github.com/astralabs/astra-go/internal/observability"
)

// Connector fetches content from one external source and normalizes it into
// content events. Fetch must honor ctx cancellation.
type Connector interface {
	SourceName() string
	Fetch(ctx context.Context) ([]datastore.ContentEvent, error)
}

// Publisher persists events produced by connectors.
type Publisher struct {
	ds      datastore.Interface
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewPublisher creates an event publisher. metrics may be nil.
func NewPublisher(ds datastore.Interface, metrics *observability.Metrics) *Publisher {
	log := logging.ForService("ingest")
	if log == nil {
		log = slog.Default().With("service", "ingest")
	}
	return &Publisher{
		ds:      ds,
		metrics: metrics,
		log:     log,
	}
}

// Run fetches from every connector in order and stores the results. A
// connector failure is logged and counted but does not abort the remaining
// connectors. Returns the total number of events stored.
func (p *Publisher) Run(ctx context.Context, connectors []Connector) (int, error) {
	total := 0
	for _, connector := range connectors {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		events, err := connector.Fetch(ctx)
		if err != nil {
			if p.metrics != nil {
				p.metrics.Ingest.FetchErrors.WithLabelValues(connector.SourceName()).Inc()
			}
			p.log.Error("connector fetch failed",
				"connector", connector.SourceName(),
				"error", err)
			continue
		}
		if len(events) == 0 {
			continue
		}

		if err := p.ds.SaveEvents(events); err != nil {
			return total, fmt.Errorf("storing events from %s: %w", connector.SourceName(), err)
		}
		if p.metrics != nil {
			p.metrics.Ingest.EventsIngested.WithLabelValues(connector.SourceName()).Add(float64(len(events)))
		}
		p.log.Info("ingested content events",
			"connector", connector.SourceName(),
			"events", len(events))
		total += len(events)
	}
	return total, nil
}

// Connectors builds the connector set enabled in settings, in registry order.
func Connectors(settings *conf.Settings) []Connector {
	var connectors []Connector
	for _, name := range Default().ListNames() {
		if !connectorEnabled(name, settings) {
			continue
		}
		connector, err := Default().Get(name, settings)
		if err != nil {
			continue
		}
		connectors = append(connectors, connector)
	}
	return connectors
}

func connectorEnabled(name string, settings *conf.Settings) bool {
	switch name {
	case "file":
		return settings.Ingest.File.Enabled
	case "http":
		return settings.Ingest.HTTP.Enabled
	}
	return false
}

// newEvent assembles a content event with a fresh id and a fingerprint over
// the source and payload.
func newEvent(source, actorID, text string, metadata map[string]any) datastore.ContentEvent {
	hash := Fingerprint(source, text)
	event := datastore.ContentEvent{
		ID:               uuid.NewString(),
		Source:           source,
		SourceHash:       &hash,
		Text:             text,
		ProcessingStatus: datastore.StatusNew,
		Timestamp:        time.Now(),
	}
	if actorID != "" {
		event.ActorID = &actorID
	}
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			event.MetadataJSON = string(data)
		}
	}
	return event
}

// Fingerprint hashes the source name together with the payload so identical
// text from different sources yields distinct fingerprints.
func Fingerprint(source, text string) string {
	sum := sha256.Sum256([]byte(source + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
