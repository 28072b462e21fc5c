// model.go this code defines the data model for the application
package datastore

import "time"

// Processing status values for content events. The orchestrator only moves
// events NEW -> DETECTED or NEW -> FAILED, terminal states are never re-entered.
const (
	StatusNew      = "NEW"
	StatusDetected = "DETECTED"
	StatusFailed   = "FAILED"
)

// ContentEvent represents a normalized content event produced by an ingestion connector
type ContentEvent struct {
	ID               string  `gorm:"primaryKey;size:36"`
	Source           string  `gorm:"size:100;not null;index:idx_events_source"`
	ActorID          *string `gorm:"size:100;index:idx_events_actor"`
	SourceHash       *string `gorm:"size:128;index:idx_events_hash"`
	Text             string  `gorm:"type:text;not null"`
	MetadataJSON     string  `gorm:"type:text"`
	ProcessingStatus string  `gorm:"size:20;not null;default:NEW;index:idx_events_status"`
	Timestamp        time.Time `gorm:"index:idx_events_timestamp"`
}

// AnalyticsRecord is an append-only record of one successful detection,
// folded from the detector result. Multiple records may reference the
// same event id.
type AnalyticsRecord struct {
	ID             uint   `gorm:"primaryKey"`
	EventID        string `gorm:"size:36;index:idx_records_event"`
	Source         string `gorm:"size:100;index:idx_records_source"`
	TextPreview    string `gorm:"size:500"`
	DetectionLabel string `gorm:"size:50;index:idx_records_label"`
	Confidence     float64
	Timestamp      time.Time `gorm:"index:idx_records_timestamp"`
}

// ThreatIndicator is an imported or locally derived aggregate of detection
// activity, tagged with the instance id of the producer that exported it.
// Rows are append-only, repeated imports from the same producer create
// duplicate rows.
type ThreatIndicator struct {
	ID                 uint    `gorm:"primaryKey"`
	ProducerInstanceID string  `gorm:"size:100;not null;index:idx_indicators_producer"`
	ActorID            *string `gorm:"size:100;index:idx_indicators_actor"`
	SourceHash         *string `gorm:"size:128;index:idx_indicators_hash"`
	DetectionLabel     string  `gorm:"size:50;not null;index:idx_indicators_label"`
	MaxConfidence      float64 `gorm:"not null"`
	EventCount         int     `gorm:"not null"`
	FirstSeen          time.Time `gorm:"not null"`
	LastSeen           time.Time `gorm:"not null"`
	ReceivedAt         time.Time `gorm:"index:idx_indicators_received"`
}
