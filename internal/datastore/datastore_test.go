package datastore

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/errors"
)

// setupTestDB creates an in-memory SQLite datastore for testing.
func setupTestDB(t *testing.T) Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"

	ds := New(settings)
	require.NotNil(t, ds, "expected a datastore for enabled SQLite output")
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func ptr(s string) *string { return &s }

func testEvent(id, actorID, sourceHash string) ContentEvent {
	event := ContentEvent{
		ID:        id,
		Source:    "test",
		Text:      "sample text for " + id,
		Timestamp: time.Now(),
	}
	if actorID != "" {
		event.ActorID = ptr(actorID)
	}
	if sourceHash != "" {
		event.SourceHash = ptr(sourceHash)
	}
	return event
}

func TestSaveAndGetEvent(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	event := testEvent("evt-1", "actor-1", "hash-1")
	require.NoError(t, ds.SaveEvent(&event))

	got, err := ds.GetEvent("evt-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, StatusNew, got.ProcessingStatus, "unset status should default to NEW")
	require.NotNil(t, got.ActorID)
	assert.Equal(t, "actor-1", *got.ActorID)
}

func TestGetEventNotFound(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	_, err := ds.GetEvent("missing")
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, string(errors.CategoryNotFound), enhanced.GetCategory())
}

func TestSaveEventsBatch(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	events := []ContentEvent{
		testEvent("evt-1", "", ""),
		testEvent("evt-2", "", ""),
		testEvent("evt-3", "", ""),
	}
	require.NoError(t, ds.SaveEvents(events))

	count, err := ds.CountEvents()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestUpdateEventStatus(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	event := testEvent("evt-1", "", "")
	require.NoError(t, ds.SaveEvent(&event))

	require.NoError(t, ds.UpdateEventStatus("evt-1", StatusDetected))

	got, err := ds.GetEvent("evt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDetected, got.ProcessingStatus)
}

func TestUpdateEventStatusLowercaseNormalized(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	event := testEvent("evt-1", "", "")
	require.NoError(t, ds.SaveEvent(&event))

	require.NoError(t, ds.UpdateEventStatus("evt-1", "failed"))

	got, err := ds.GetEvent("evt-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.ProcessingStatus)
}

func TestUpdateEventStatusInvalid(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	event := testEvent("evt-1", "", "")
	require.NoError(t, ds.SaveEvent(&event))

	err := ds.UpdateEventStatus("evt-1", "BOGUS")
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, string(errors.CategoryValidation), enhanced.GetCategory())
}

func TestUpdateEventStatusUnknownEvent(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	err := ds.UpdateEventStatus("missing", StatusDetected)
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, string(errors.CategoryNotFound), enhanced.GetCategory())
}

func TestGetAnalyticsStats(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	records := []AnalyticsRecord{
		{EventID: "evt-1", Source: "file", DetectionLabel: "AI-generated", Confidence: 0.9},
		{EventID: "evt-2", Source: "file", DetectionLabel: "human-written", Confidence: 0.5},
		{EventID: "evt-3", Source: "http", DetectionLabel: "AI-generated", Confidence: 0.7},
	}
	for i := range records {
		require.NoError(t, ds.SaveAnalyticsRecord(&records[i]))
	}

	stats, err := ds.GetAnalyticsStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalEvents)
	assert.InDelta(t, 0.7, stats.AvgConfidence, 0.001)
	assert.Equal(t, int64(2), stats.ByLabel["AI-generated"])
	assert.Equal(t, int64(1), stats.ByLabel["human-written"])
	assert.Equal(t, int64(2), stats.BySource["file"])
}

func TestGetAnalyticsStatsEmpty(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	stats, err := ds.GetAnalyticsStats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalEvents)
	assert.Empty(t, stats.ByLabel)
}

func TestGetRecordsByLabel(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	records := []AnalyticsRecord{
		{EventID: "evt-1", DetectionLabel: "AI-generated", Confidence: 0.9},
		{EventID: "evt-2", DetectionLabel: "human-written", Confidence: 0.5},
		{EventID: "evt-3", DetectionLabel: "AI-generated", Confidence: 0.7},
	}
	for i := range records {
		require.NoError(t, ds.SaveAnalyticsRecord(&records[i]))
	}

	got, err := ds.GetRecordsByLabel("AI-generated", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, record := range got {
		assert.Equal(t, "AI-generated", record.DetectionLabel)
	}
}

func TestCooccurrenceCounts(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	// Five events on (actor-1, hash-1), two on (actor-1, hash-2), one on
	// (actor-2, hash-1). Events missing either side never form a pair.
	pairs := []struct {
		actor string
		hash  string
		n     int
	}{
		{"actor-1", "hash-1", 5},
		{"actor-1", "hash-2", 2},
		{"actor-2", "hash-1", 1},
	}
	id := 0
	for _, p := range pairs {
		for i := 0; i < p.n; i++ {
			id++
			event := testEvent(eventID(id), p.actor, p.hash)
			require.NoError(t, ds.SaveEvent(&event))
		}
	}
	id++
	orphan := testEvent(eventID(id), "actor-3", "")
	require.NoError(t, ds.SaveEvent(&orphan))

	rows, err := ds.CooccurrenceCounts(0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "actor-1", rows[0].ActorID)
	assert.Equal(t, "hash-1", rows[0].SourceHash)
	assert.Equal(t, 5, rows[0].Count)
	assert.Equal(t, 2, rows[1].Count)
	assert.Equal(t, 1, rows[2].Count)
}

func TestCooccurrenceCountsLimit(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	for i := 1; i <= 4; i++ {
		event := testEvent(eventID(i), "actor-1", "hash-"+eventID(i))
		require.NoError(t, ds.SaveEvent(&event))
	}

	rows, err := ds.CooccurrenceCounts(2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestIndicatorGroups(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	events := []ContentEvent{
		testEvent("evt-1", "actor-1", "hash-1"),
		testEvent("evt-2", "actor-1", "hash-1"),
		testEvent("evt-3", "actor-2", "hash-2"),
	}
	require.NoError(t, ds.SaveEvents(events))

	records := []AnalyticsRecord{
		{EventID: "evt-1", Source: "test", DetectionLabel: "AI-generated", Confidence: 0.7},
		{EventID: "evt-2", Source: "test", DetectionLabel: "AI-generated", Confidence: 0.9},
		{EventID: "evt-3", Source: "test", DetectionLabel: "human-written", Confidence: 0.5},
	}
	for i := range records {
		require.NoError(t, ds.SaveAnalyticsRecord(&records[i]))
	}

	groups, err := ds.IndicatorGroups(0)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	top := groups[0]
	require.NotNil(t, top.ActorID)
	assert.Equal(t, "actor-1", *top.ActorID)
	assert.Equal(t, "AI-generated", top.DetectionLabel)
	assert.Equal(t, 2, top.EventCount)
	assert.InDelta(t, 0.9, top.MaxConfidence, 0.001)
	assert.False(t, top.FirstSeen.IsZero(), "aggregate timestamps should parse")
	assert.False(t, top.LastSeen.Before(top.FirstSeen))
}

func TestIndicatorGroupsTieOrder(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	// Four single-record groups sharing count and label differ only by actor
	// and fingerprint; a limited query must cut them deterministically.
	events := []ContentEvent{
		testEvent("evt-1", "actor-b", "hash-1"),
		testEvent("evt-2", "actor-a", "hash-2"),
		testEvent("evt-3", "actor-a", "hash-1"),
		testEvent("evt-4", "actor-c", "hash-3"),
	}
	require.NoError(t, ds.SaveEvents(events))
	for i := 1; i <= 4; i++ {
		record := AnalyticsRecord{EventID: eventID(i), Source: "test", DetectionLabel: "AI-generated", Confidence: 0.5}
		require.NoError(t, ds.SaveAnalyticsRecord(&record))
	}

	groups, err := ds.IndicatorGroups(3)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "actor-a", *groups[0].ActorID)
	assert.Equal(t, "hash-1", *groups[0].SourceHash)
	assert.Equal(t, "actor-a", *groups[1].ActorID)
	assert.Equal(t, "hash-2", *groups[1].SourceHash)
	assert.Equal(t, "actor-b", *groups[2].ActorID)
}

func TestConcurrentWritesShareSchema(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	const workers = 16
	events := make([]ContentEvent, 0, workers)
	for i := 0; i < workers; i++ {
		events = append(events, testEvent(eventID(i), "actor-1", "hash-1"))
	}
	require.NoError(t, ds.SaveEvents(events))

	// Concurrent record saves and status updates must all land on the same
	// in-memory database even when the pool is pushed past one connection.
	errs := make(chan error, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			record := AnalyticsRecord{EventID: id, Source: "test", DetectionLabel: "AI-generated", Confidence: 0.5}
			errs <- ds.SaveAnalyticsRecord(&record)
			errs <- ds.UpdateEventStatus(id, StatusDetected)
		}(eventID(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := ds.GetAnalyticsStats()
	require.NoError(t, err)
	assert.Equal(t, int64(workers), stats.TotalEvents)
}

func TestInsertAndListIndicators(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	now := time.Now()
	indicators := []ThreatIndicator{
		{ProducerInstanceID: "peer-a", DetectionLabel: "AI-generated", MaxConfidence: 0.8, EventCount: 3, FirstSeen: now, LastSeen: now},
		{ProducerInstanceID: "peer-b", DetectionLabel: "suspicious", MaxConfidence: 0.6, EventCount: 1, FirstSeen: now, LastSeen: now},
		{ProducerInstanceID: "peer-a", DetectionLabel: "AI-generated", MaxConfidence: 0.8, EventCount: 3, FirstSeen: now, LastSeen: now},
	}
	for i := range indicators {
		require.NoError(t, ds.InsertIndicator(&indicators[i]))
	}

	all, err := ds.ListIndicators(0, "")
	require.NoError(t, err)
	assert.Len(t, all, 3, "inserts are append-only, duplicates are kept")

	peerA, err := ds.ListIndicators(0, "peer-a")
	require.NoError(t, err)
	assert.Len(t, peerA, 2)

	count, err := ds.CountIndicators()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func eventID(i int) string {
	return "evt-" + strconv.Itoa(i)
}
