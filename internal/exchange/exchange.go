// Package exchange implements the versioned threat exchange protocol for
// exporting local aggregated indicators and importing envelopes produced by
// other ASTRA instances.
//
// The wire format is explicit, versioned JSON designed for REST pull/push
// between two running instances, no broker required. Imports are strictly
// additive: indicators are appended tagged with the producing instance id and
// repeated imports of the same envelope create duplicate rows. That is a
// known limitation of the MVP protocol, not a bug.
package exchange

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/errors"
	"github.com/astralabs/astra-go/internal/logging"
	"github.com/astralabs/astra-go/internal/observability"
)

const (
	// SchemaVersion is the version stamped on exported envelopes.
	SchemaVersion = "astra-threat-exchange-1.0"
	// compatiblePrefix accepts forward-compatible minor versions and
	// rejects incompatible majors.
	compatiblePrefix = "astra-threat-exchange-1."
	// serviceName identifies the producing service in envelopes.
	serviceName = "risk-analytics"
)

// ErrUnsupportedSchemaVersion is returned when an imported envelope carries a
// schema version outside the supported major version.
var ErrUnsupportedSchemaVersion = errors.NewStd("unsupported schema version")

// Producer describes the instance that generated an envelope.
type Producer struct {
	InstanceID  string    `json:"instance_id"`
	Service     string    `json:"service"`
	GeneratedAt time.Time `json:"generated_at"`
	BaseURL     *string   `json:"base_url"`
}

// Indicator is one aggregated, exchange-ready summary of detection activity
// grouped by actor, fingerprint and label.
type Indicator struct {
	ActorID        *string   `json:"actor_id"`
	SourceHash     *string   `json:"source_hash"`
	DetectionLabel string    `json:"detection_label"`
	MaxConfidence  float64   `json:"max_confidence"`
	EventCount     int       `json:"event_count"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// Summary aggregates event counts per label across an envelope's indicators.
type Summary struct {
	IndicatorCount int            `json:"indicator_count"`
	EventsByLabel  map[string]int `json:"events_by_label"`
}

// Envelope is the versioned wire-level container for exchanged indicators.
// Immutable once constructed.
type Envelope struct {
	SchemaVersion string      `json:"schema_version"`
	Producer      Producer    `json:"producer"`
	Indicators    []Indicator `json:"indicators"`
	Summary       Summary     `json:"summary"`
}

// Service implements export, import and listing of threat indicators.
type Service struct {
	ds       datastore.Interface
	settings *conf.Settings
	metrics  *observability.Metrics
	log      *slog.Logger
}

// NewService creates a threat exchange service. metrics may be nil.
func NewService(ds datastore.Interface, settings *conf.Settings, metrics *observability.Metrics) *Service {
	log := logging.ForService("exchange")
	if log == nil {
		log = slog.Default().With("service", "exchange")
	}
	return &Service{
		ds:       ds,
		settings: settings,
		metrics:  metrics,
		log:      log,
	}
}

// BuildSummary accumulates event counts per label across indicators.
func BuildSummary(indicators []Indicator) Summary {
	byLabel := make(map[string]int)
	for i := range indicators {
		byLabel[indicators[i].DetectionLabel] += indicators[i].EventCount
	}
	return Summary{
		IndicatorCount: len(indicators),
		EventsByLabel:  byLabel,
	}
}

// Export aggregates local analytics records into the top limit indicator
// groups and wraps them in a stamped envelope. Export never mutates local
// state. An empty baseURL omits the producer base URL from the envelope.
func (s *Service) Export(limit int, baseURL string) (*Envelope, error) {
	if limit <= 0 {
		limit = s.settings.Exchange.Limit
	}

	groups, err := s.ds.IndicatorGroups(limit)
	if err != nil {
		return nil, fmt.Errorf("exporting threat indicators: %w", err)
	}

	indicators := make([]Indicator, 0, len(groups))
	for _, g := range groups {
		indicators = append(indicators, Indicator{
			ActorID:        g.ActorID,
			SourceHash:     g.SourceHash,
			DetectionLabel: g.DetectionLabel,
			MaxConfidence:  g.MaxConfidence,
			EventCount:     g.EventCount,
			FirstSeen:      g.FirstSeen,
			LastSeen:       g.LastSeen,
		})
	}

	var baseURLPtr *string
	if baseURL != "" {
		baseURLPtr = &baseURL
	}

	envelope := &Envelope{
		SchemaVersion: SchemaVersion,
		Producer: Producer{
			InstanceID:  s.settings.Main.InstanceID,
			Service:     serviceName,
			GeneratedAt: time.Now().UTC(),
			BaseURL:     baseURLPtr,
		},
		Indicators: indicators,
		Summary:    BuildSummary(indicators),
	}

	if s.metrics != nil {
		s.metrics.Exchange.EnvelopesExported.Inc()
		s.metrics.Exchange.IndicatorsExported.Add(float64(len(indicators)))
	}
	s.log.Info("exported threat exchange envelope",
		"indicators", len(indicators),
		"limit", limit)
	return envelope, nil
}

// Import persists the envelope's indicators, each tagged with the envelope
// producer's instance id. The schema version must match the supported
// prefix, otherwise the import is rejected outright and the store is left
// unchanged. Returns the number of indicators inserted.
func (s *Service) Import(envelope *Envelope) (int, error) {
	if !strings.HasPrefix(envelope.SchemaVersion, compatiblePrefix) {
		if s.metrics != nil {
			s.metrics.Exchange.ImportsRejected.Inc()
		}
		return 0, errors.New(fmt.Errorf("%w: got %q, want prefix %q",
			ErrUnsupportedSchemaVersion, envelope.SchemaVersion, compatiblePrefix)).
			Component("exchange").
			Category(errors.CategoryExchange).
			Context("schema_version", envelope.SchemaVersion).
			Build()
	}

	inserted := 0
	for i := range envelope.Indicators {
		ind := &envelope.Indicators[i]
		if ind.EventCount < 1 {
			continue
		}
		row := datastore.ThreatIndicator{
			ProducerInstanceID: envelope.Producer.InstanceID,
			ActorID:            ind.ActorID,
			SourceHash:         ind.SourceHash,
			DetectionLabel:     ind.DetectionLabel,
			MaxConfidence:      ind.MaxConfidence,
			EventCount:         ind.EventCount,
			FirstSeen:          ind.FirstSeen,
			LastSeen:           ind.LastSeen,
		}
		if err := s.ds.InsertIndicator(&row); err != nil {
			return inserted, fmt.Errorf("importing indicator %d: %w", i, err)
		}
		inserted++
	}

	if s.metrics != nil {
		s.metrics.Exchange.EnvelopesImported.Inc()
		s.metrics.Exchange.IndicatorsImported.Add(float64(inserted))
	}
	s.log.Info("imported threat exchange envelope",
		"producer", envelope.Producer.InstanceID,
		"inserted", inserted)
	return inserted, nil
}

// List returns stored indicators, most recently received first, optionally
// filtered by producer instance id.
func (s *Service) List(limit int, producerInstanceID string) ([]datastore.ThreatIndicator, error) {
	return s.ds.ListIndicators(limit, producerInstanceID)
}
