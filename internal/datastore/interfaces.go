// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"strings"
	"time"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/errors"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// operations available to the orchestrator, graph builder and threat exchange.
type Interface interface {
	Open() error
	Close() error
	// content events
	SaveEvent(event *ContentEvent) error
	SaveEvents(events []ContentEvent) error
	GetEvent(id string) (ContentEvent, error)
	GetAllEvents(limit int) ([]ContentEvent, error)
	CountEvents() (int64, error)
	UpdateEventStatus(id, status string) error
	// analytics records
	SaveAnalyticsRecord(record *AnalyticsRecord) error
	GetRecentRecords(limit int) ([]AnalyticsRecord, error)
	GetRecordsByLabel(label string, limit int) ([]AnalyticsRecord, error)
	GetAnalyticsStats() (AnalyticsStats, error)
	// derived aggregations
	CooccurrenceCounts(maxEdges int) ([]CooccurrenceRow, error)
	IndicatorGroups(limit int) ([]IndicatorGroup, error)
	// threat indicators
	InsertIndicator(indicator *ThreatIndicator) error
	ListIndicators(limit int, producerInstanceID string) ([]ThreatIndicator, error)
	CountIndicators() (int64, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// SaveEvent stores a single content event.
func (ds *DataStore) SaveEvent(event *ContentEvent) error {
	if event.ProcessingStatus == "" {
		event.ProcessingStatus = StatusNew
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := ds.DB.Create(event).Error; err != nil {
		return errors.New(fmt.Errorf("saving event %s: %w", event.ID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// SaveEvents stores a batch of content events in a single transaction.
func (ds *DataStore) SaveEvents(events []ContentEvent) error {
	if len(events) == 0 {
		return nil
	}
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for i := range events {
			if events[i].ProcessingStatus == "" {
				events[i].ProcessingStatus = StatusNew
			}
			if events[i].Timestamp.IsZero() {
				events[i].Timestamp = time.Now()
			}
			if err := tx.Create(&events[i]).Error; err != nil {
				return fmt.Errorf("saving event %s: %w", events[i].ID, err)
			}
		}
		return nil
	})
}

// GetEvent retrieves a content event by its id.
func (ds *DataStore) GetEvent(id string) (ContentEvent, error) {
	var event ContentEvent
	if err := ds.DB.Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ContentEvent{}, errors.Newf("event %s not found", id).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return ContentEvent{}, fmt.Errorf("getting event %s: %w", id, err)
	}
	return event, nil
}

// GetAllEvents retrieves stored content events, newest first. A limit of 0
// returns all events. Secondary ordering by id keeps results deterministic
// for equal timestamps.
func (ds *DataStore) GetAllEvents(limit int) ([]ContentEvent, error) {
	var events []ContentEvent
	query := ds.DB.Order("timestamp DESC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("getting events: %w", err)
	}
	return events, nil
}

// CountEvents returns the total number of stored content events.
func (ds *DataStore) CountEvents() (int64, error) {
	var count int64
	if err := ds.DB.Model(&ContentEvent{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// UpdateEventStatus performs a single-row status write keyed by event id.
// Writes for distinct events touch disjoint rows and are safe to interleave.
func (ds *DataStore) UpdateEventStatus(id, status string) error {
	status = strings.ToUpper(status)
	switch status {
	case StatusNew, StatusDetected, StatusFailed:
	default:
		return errors.Newf("invalid processing status %q", status).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	result := ds.DB.Model(&ContentEvent{}).
		Where("id = ?", id).
		Update("processing_status", status)
	if result.Error != nil {
		return errors.New(fmt.Errorf("updating status of event %s: %w", id, result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("event %s not found", id).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// SaveAnalyticsRecord appends a new analytics record.
func (ds *DataStore) SaveAnalyticsRecord(record *AnalyticsRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := ds.DB.Create(record).Error; err != nil {
		return errors.New(fmt.Errorf("saving analytics record for event %s: %w", record.EventID, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// GetRecentRecords returns analytics records, newest first.
func (ds *DataStore) GetRecentRecords(limit int) ([]AnalyticsRecord, error) {
	var records []AnalyticsRecord
	query := ds.DB.Order("timestamp DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting analytics records: %w", err)
	}
	return records, nil
}

// GetRecordsByLabel returns analytics records with the given detection label.
func (ds *DataStore) GetRecordsByLabel(label string, limit int) ([]AnalyticsRecord, error) {
	var records []AnalyticsRecord
	query := ds.DB.Where("detection_label = ?", label).Order("timestamp DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("getting analytics records for label %s: %w", label, err)
	}
	return records, nil
}

// InsertIndicator appends a threat indicator row. Imports are strictly
// additive, there is no deduplication against earlier rows from the same
// producer.
func (ds *DataStore) InsertIndicator(indicator *ThreatIndicator) error {
	if indicator.ReceivedAt.IsZero() {
		indicator.ReceivedAt = time.Now()
	}
	if err := ds.DB.Create(indicator).Error; err != nil {
		return errors.New(fmt.Errorf("inserting threat indicator: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// ListIndicators returns threat indicators, most recently received first,
// optionally filtered by producer instance id.
func (ds *DataStore) ListIndicators(limit int, producerInstanceID string) ([]ThreatIndicator, error) {
	var indicators []ThreatIndicator
	query := ds.DB.Order("received_at DESC, id DESC")
	if producerInstanceID != "" {
		query = query.Where("producer_instance_id = ?", producerInstanceID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&indicators).Error; err != nil {
		return nil, fmt.Errorf("listing threat indicators: %w", err)
	}
	return indicators, nil
}

// CountIndicators returns the total number of stored threat indicators.
func (ds *DataStore) CountIndicators() (int64, error) {
	var count int64
	if err := ds.DB.Model(&ThreatIndicator{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting threat indicators: %w", err)
	}
	return count, nil
}
