// internal/datastore/analytics.go
package datastore

import (
	"fmt"
	"time"
)

// AnalyticsStats contains aggregate statistics over stored analytics records
type AnalyticsStats struct {
	TotalEvents   int64
	AvgConfidence float64
	ByLabel       map[string]int64
	BySource      map[string]int64
}

// CooccurrenceRow is one (actor, fingerprint) group with its event count
type CooccurrenceRow struct {
	ActorID    string
	SourceHash string
	Count      int
}

// IndicatorGroup is one (actor, fingerprint, label) aggregation over
// analytics records joined to their content events
type IndicatorGroup struct {
	ActorID        *string
	SourceHash     *string
	DetectionLabel string
	MaxConfidence  float64
	EventCount     int
	FirstSeen      time.Time
	LastSeen       time.Time
}

// GetAnalyticsStats retrieves aggregate statistics for stored analytics records
func (ds *DataStore) GetAnalyticsStats() (AnalyticsStats, error) {
	stats := AnalyticsStats{
		ByLabel:  make(map[string]int64),
		BySource: make(map[string]int64),
	}

	if err := ds.DB.Model(&AnalyticsRecord{}).Count(&stats.TotalEvents).Error; err != nil {
		return stats, fmt.Errorf("error counting analytics records: %w", err)
	}
	if stats.TotalEvents == 0 {
		return stats, nil
	}

	var avg *float64
	if err := ds.DB.Model(&AnalyticsRecord{}).
		Select("AVG(confidence)").
		Scan(&avg).Error; err != nil {
		return stats, fmt.Errorf("error getting average confidence: %w", err)
	}
	if avg != nil {
		stats.AvgConfidence = *avg
	}

	type labelCount struct {
		Label string
		Count int64
	}

	var byLabel []labelCount
	if err := ds.DB.Model(&AnalyticsRecord{}).
		Select("detection_label as label, COUNT(*) as count").
		Group("detection_label").
		Scan(&byLabel).Error; err != nil {
		return stats, fmt.Errorf("error counting records by label: %w", err)
	}
	for _, lc := range byLabel {
		stats.ByLabel[lc.Label] = lc.Count
	}

	var bySource []labelCount
	if err := ds.DB.Model(&AnalyticsRecord{}).
		Select("source as label, COUNT(*) as count").
		Group("source").
		Scan(&bySource).Error; err != nil {
		return stats, fmt.Errorf("error counting records by source: %w", err)
	}
	for _, sc := range bySource {
		stats.BySource[sc.Label] = sc.Count
	}

	return stats, nil
}

// CooccurrenceCounts groups content events having both an actor id and a
// source fingerprint by the (actor, fingerprint) pair and returns the top
// maxEdges groups by event count. Ties are broken by actor id then fingerprint
// so capped results are reproducible.
func (ds *DataStore) CooccurrenceCounts(maxEdges int) ([]CooccurrenceRow, error) {
	var rows []CooccurrenceRow

	query := ds.DB.Model(&ContentEvent{}).
		Select("actor_id, source_hash, COUNT(*) as count").
		Where("actor_id IS NOT NULL AND actor_id != ''").
		Where("source_hash IS NOT NULL AND source_hash != ''").
		Group("actor_id, source_hash").
		Order("count DESC, actor_id ASC, source_hash ASC")
	if maxEdges > 0 {
		query = query.Limit(maxEdges)
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error getting co-occurrence counts: %w", err)
	}
	return rows, nil
}

// IndicatorGroups aggregates analytics records joined to their content events
// by (actor, fingerprint, label), computing max confidence, event count and
// the first/last seen timestamps per group, ordered by event count descending.
// Ties are broken by label, actor id and fingerprint so capped results are
// reproducible.
func (ds *DataStore) IndicatorGroups(limit int) ([]IndicatorGroup, error) {
	// Aggregate timestamps are scanned as strings because MIN/MAX over a
	// datetime column loses the declared column type on SQLite.
	type groupRow struct {
		ActorID        *string
		SourceHash     *string
		DetectionLabel string
		MaxConfidence  float64
		EventCount     int
		FirstSeen      string
		LastSeen       string
	}

	var raw []groupRow
	query := ds.DB.Table("analytics_records").
		Select(`content_events.actor_id as actor_id,
			content_events.source_hash as source_hash,
			analytics_records.detection_label as detection_label,
			MAX(analytics_records.confidence) as max_confidence,
			COUNT(*) as event_count,
			MIN(analytics_records.timestamp) as first_seen,
			MAX(analytics_records.timestamp) as last_seen`).
		Joins("JOIN content_events ON content_events.id = analytics_records.event_id").
		Group("content_events.actor_id, content_events.source_hash, analytics_records.detection_label").
		Order("event_count DESC, detection_label ASC, actor_id ASC, source_hash ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&raw).Error; err != nil {
		return nil, fmt.Errorf("error getting indicator groups: %w", err)
	}

	groups := make([]IndicatorGroup, 0, len(raw))
	for _, r := range raw {
		groups = append(groups, IndicatorGroup{
			ActorID:        r.ActorID,
			SourceHash:     r.SourceHash,
			DetectionLabel: r.DetectionLabel,
			MaxConfidence:  r.MaxConfidence,
			EventCount:     r.EventCount,
			FirstSeen:      parseStoredTime(r.FirstSeen),
			LastSeen:       parseStoredTime(r.LastSeen),
		})
	}
	return groups, nil
}

// storedTimeLayouts covers the formats the SQLite and MySQL drivers use for
// datetime columns surfaced through aggregate expressions.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseStoredTime(value string) time.Time {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
