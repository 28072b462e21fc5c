package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/errors"
)

func testSettings(instanceID string) *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.InstanceID = instanceID
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	settings.Exchange.Limit = 100
	return settings
}

func setupService(t *testing.T, instanceID string) (*Service, datastore.Interface) {
	t.Helper()

	settings := testSettings(instanceID)
	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	return NewService(ds, settings, nil), ds
}

// seedDetections stores events with matching analytics records so the export
// aggregation has something to fold.
func seedDetections(t *testing.T, ds datastore.Interface) {
	t.Helper()

	actor1, actor2 := "actor-1", "actor-2"
	hash1, hash2 := "hash-1", "hash-2"
	events := []datastore.ContentEvent{
		{ID: "evt-1", Source: "test", ActorID: &actor1, SourceHash: &hash1, Text: "a", Timestamp: time.Now()},
		{ID: "evt-2", Source: "test", ActorID: &actor1, SourceHash: &hash1, Text: "b", Timestamp: time.Now()},
		{ID: "evt-3", Source: "test", ActorID: &actor2, SourceHash: &hash2, Text: "c", Timestamp: time.Now()},
	}
	require.NoError(t, ds.SaveEvents(events))

	records := []datastore.AnalyticsRecord{
		{EventID: "evt-1", Source: "test", DetectionLabel: "AI-generated", Confidence: 0.7},
		{EventID: "evt-2", Source: "test", DetectionLabel: "AI-generated", Confidence: 0.9},
		{EventID: "evt-3", Source: "test", DetectionLabel: "suspicious", Confidence: 0.6},
	}
	for i := range records {
		require.NoError(t, ds.SaveAnalyticsRecord(&records[i]))
	}
}

func TestExportEnvelope(t *testing.T) {
	t.Parallel()
	service, ds := setupService(t, "instance-a")
	seedDetections(t, ds)

	envelope, err := service.Export(0, "http://localhost:8003")
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, envelope.SchemaVersion)
	assert.Equal(t, "instance-a", envelope.Producer.InstanceID)
	assert.Equal(t, "risk-analytics", envelope.Producer.Service)
	require.NotNil(t, envelope.Producer.BaseURL)
	assert.Equal(t, "http://localhost:8003", *envelope.Producer.BaseURL)
	assert.False(t, envelope.Producer.GeneratedAt.IsZero())

	require.Len(t, envelope.Indicators, 2)
	top := envelope.Indicators[0]
	require.NotNil(t, top.ActorID)
	assert.Equal(t, "actor-1", *top.ActorID)
	assert.Equal(t, 2, top.EventCount)
	assert.InDelta(t, 0.9, top.MaxConfidence, 0.001)

	assert.Equal(t, 2, envelope.Summary.IndicatorCount)
	assert.Equal(t, 2, envelope.Summary.EventsByLabel["AI-generated"])
	assert.Equal(t, 1, envelope.Summary.EventsByLabel["suspicious"])
}

func TestExportEmptyBaseURLOmitted(t *testing.T) {
	t.Parallel()
	service, _ := setupService(t, "instance-a")

	envelope, err := service.Export(0, "")
	require.NoError(t, err)
	assert.Nil(t, envelope.Producer.BaseURL)
	assert.Empty(t, envelope.Indicators)
	assert.Equal(t, 0, envelope.Summary.IndicatorCount)
}

func TestExportDoesNotMutateState(t *testing.T) {
	t.Parallel()
	service, ds := setupService(t, "instance-a")
	seedDetections(t, ds)

	_, err := service.Export(0, "")
	require.NoError(t, err)
	_, err = service.Export(0, "")
	require.NoError(t, err)

	count, err := ds.CountIndicators()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "export must not write indicators locally")
}

func TestRoundTripBetweenInstances(t *testing.T) {
	t.Parallel()
	producer, producerDS := setupService(t, "instance-a")
	seedDetections(t, producerDS)

	consumer, consumerDS := setupService(t, "instance-b")

	envelope, err := producer.Export(0, "")
	require.NoError(t, err)

	inserted, err := consumer.Import(envelope)
	require.NoError(t, err)
	assert.Equal(t, len(envelope.Indicators), inserted)

	stored, err := consumerDS.ListIndicators(0, "")
	require.NoError(t, err)
	require.Len(t, stored, inserted)
	for _, indicator := range stored {
		assert.Equal(t, "instance-a", indicator.ProducerInstanceID,
			"imported rows carry the producing instance id")
	}
}

func TestImportRejectsUnsupportedSchemaVersion(t *testing.T) {
	t.Parallel()
	service, ds := setupService(t, "instance-b")

	actor := "actor-1"
	envelope := &Envelope{
		SchemaVersion: "astra-threat-exchange-2.0",
		Producer:      Producer{InstanceID: "instance-a"},
		Indicators: []Indicator{
			{ActorID: &actor, DetectionLabel: "AI-generated", MaxConfidence: 0.9, EventCount: 3},
		},
	}

	_, err := service.Import(envelope)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSchemaVersion)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, string(errors.CategoryExchange), enhanced.GetCategory())

	count, err := ds.CountIndicators()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "rejected imports leave the store unchanged")
}

func TestImportAcceptsCompatibleMinorVersion(t *testing.T) {
	t.Parallel()
	service, _ := setupService(t, "instance-b")

	actor := "actor-1"
	envelope := &Envelope{
		SchemaVersion: "astra-threat-exchange-1.1",
		Producer:      Producer{InstanceID: "instance-a"},
		Indicators: []Indicator{
			{ActorID: &actor, DetectionLabel: "AI-generated", MaxConfidence: 0.9, EventCount: 3, FirstSeen: time.Now(), LastSeen: time.Now()},
		},
	}

	inserted, err := service.Import(envelope)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestImportSkipsEmptyGroups(t *testing.T) {
	t.Parallel()
	service, _ := setupService(t, "instance-b")

	actor := "actor-1"
	envelope := &Envelope{
		SchemaVersion: SchemaVersion,
		Producer:      Producer{InstanceID: "instance-a"},
		Indicators: []Indicator{
			{ActorID: &actor, DetectionLabel: "AI-generated", MaxConfidence: 0.9, EventCount: 0},
			{ActorID: &actor, DetectionLabel: "suspicious", MaxConfidence: 0.5, EventCount: 2, FirstSeen: time.Now(), LastSeen: time.Now()},
		},
	}

	inserted, err := service.Import(envelope)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestImportIsAppendOnly(t *testing.T) {
	t.Parallel()
	producer, producerDS := setupService(t, "instance-a")
	seedDetections(t, producerDS)
	consumer, consumerDS := setupService(t, "instance-b")

	envelope, err := producer.Export(0, "")
	require.NoError(t, err)

	first, err := consumer.Import(envelope)
	require.NoError(t, err)
	second, err := consumer.Import(envelope)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	count, err := consumerDS.CountIndicators()
	require.NoError(t, err)
	assert.Equal(t, int64(first+second), count, "repeated imports append duplicate rows")
}

func TestBuildSummary(t *testing.T) {
	t.Parallel()

	indicators := []Indicator{
		{DetectionLabel: "AI-generated", EventCount: 3},
		{DetectionLabel: "AI-generated", EventCount: 2},
		{DetectionLabel: "suspicious", EventCount: 1},
	}
	summary := BuildSummary(indicators)
	assert.Equal(t, 3, summary.IndicatorCount)
	assert.Equal(t, 5, summary.EventsByLabel["AI-generated"])
	assert.Equal(t, 1, summary.EventsByLabel["suspicious"])
}
