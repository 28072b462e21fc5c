package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
	"github.com/astralabs/astra-go/internal/detector"
)

// stubDetector classifies by text markers so tests can steer outcomes per
// event: texts containing "FAIL" error out, texts containing "WAIT" block
// until the call context is done.
type stubDetector struct{}

func (d *stubDetector) Identify() string { return "stub-v1" }

func (d *stubDetector) Detect(ctx context.Context, text string, metadata map[string]any) (detector.Result, error) {
	if strings.Contains(text, "WAIT") {
		<-ctx.Done()
		return detector.Result{}, ctx.Err()
	}
	if strings.Contains(text, "FAIL") {
		return detector.Result{}, detector.ErrDetectionFailed
	}
	return detector.Result{
		Label:      "AI-generated",
		Confidence: 0.8,
		Detector:   d.Identify(),
		Timestamp:  time.Now(),
	}, nil
}

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	settings.Detection.Timeout = 5 * time.Second
	return settings
}

func setupOrchestrator(t *testing.T, settings *conf.Settings) (*Orchestrator, datastore.Interface) {
	t.Helper()

	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	registry := detector.NewRegistry()
	registry.Register("stub", func(config map[string]any) (detector.Detector, error) {
		return &stubDetector{}, nil
	})
	manager := detector.NewManager(registry, "stub", nil)

	return NewOrchestrator(ds, manager, settings, nil), ds
}

func saveEvent(t *testing.T, ds datastore.Interface, id, text, status string) {
	t.Helper()
	event := datastore.ContentEvent{
		ID:               id,
		Source:           "test",
		Text:             text,
		ProcessingStatus: status,
		Timestamp:        time.Now(),
	}
	require.NoError(t, ds.SaveEvent(&event))
}

func TestProcessPendingNoEvents(t *testing.T) {
	t.Parallel()
	orchestrator, _ := setupOrchestrator(t, testSettings())

	summary, err := orchestrator.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestProcessPendingOnlyNewEvents(t *testing.T) {
	t.Parallel()
	orchestrator, ds := setupOrchestrator(t, testSettings())

	saveEvent(t, ds, "evt-new", "some text", datastore.StatusNew)
	saveEvent(t, ds, "evt-done", "already done", datastore.StatusDetected)
	saveEvent(t, ds, "evt-bad", "already failed", datastore.StatusFailed)

	summary, err := orchestrator.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	got, err := ds.GetEvent("evt-new")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusDetected, got.ProcessingStatus)

	// Terminal events are never re-entered.
	done, err := ds.GetEvent("evt-done")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusDetected, done.ProcessingStatus)
	bad, err := ds.GetEvent("evt-bad")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusFailed, bad.ProcessingStatus)

	records, err := ds.GetRecentRecords(0)
	require.NoError(t, err)
	require.Len(t, records, 1, "exactly one analytics record per processed event")
	assert.Equal(t, "evt-new", records[0].EventID)
	assert.Equal(t, "AI-generated", records[0].DetectionLabel)
}

func TestProcessPendingStatusMatchingIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	orchestrator, ds := setupOrchestrator(t, testSettings())

	event := datastore.ContentEvent{ID: "evt-1", Source: "test", Text: "text", ProcessingStatus: "new"}
	require.NoError(t, ds.SaveEvent(&event))

	summary, err := orchestrator.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
}

func TestProcessPendingFailureIsolation(t *testing.T) {
	t.Parallel()
	orchestrator, ds := setupOrchestrator(t, testSettings())

	saveEvent(t, ds, "evt-1", "fine text", datastore.StatusNew)
	saveEvent(t, ds, "evt-2", "FAIL this one", datastore.StatusNew)
	saveEvent(t, ds, "evt-3", "also fine", datastore.StatusNew)
	saveEvent(t, ds, "evt-4", "FAIL this too", datastore.StatusNew)
	saveEvent(t, ds, "evt-5", "fine again", datastore.StatusNew)

	summary, err := orchestrator.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Fetched)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Failed)

	for id, want := range map[string]string{
		"evt-1": datastore.StatusDetected,
		"evt-2": datastore.StatusFailed,
		"evt-3": datastore.StatusDetected,
		"evt-4": datastore.StatusFailed,
		"evt-5": datastore.StatusDetected,
	} {
		got, err := ds.GetEvent(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.ProcessingStatus, "event %s", id)
	}

	records, err := ds.GetRecentRecords(0)
	require.NoError(t, err)
	assert.Len(t, records, 3, "failed events produce no analytics records")
}

func TestProcessPendingBoundedConcurrency(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.Detection.MaxConcurrency = 2
	orchestrator, ds := setupOrchestrator(t, settings)

	for _, id := range []string{"evt-1", "evt-2", "evt-3", "evt-4", "evt-5"} {
		saveEvent(t, ds, id, "text for "+id, datastore.StatusNew)
	}

	summary, err := orchestrator.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Processed)
}

func TestProcessPendingDetectorInitFailure(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	ds := datastore.New(settings)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })

	saveEvent(t, ds, "evt-1", "text", datastore.StatusNew)

	registry := detector.NewRegistry()
	manager := detector.NewManager(registry, "missing", nil)
	orchestrator := NewOrchestrator(ds, manager, settings, nil)

	_, err := orchestrator.ProcessPending(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, detector.ErrUnknownDetector)

	// A configuration failure must not touch event statuses.
	got, err := ds.GetEvent("evt-1")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusNew, got.ProcessingStatus)
}

func TestProcessPendingCancelledRunLeavesEventsNew(t *testing.T) {
	t.Parallel()
	orchestrator, ds := setupOrchestrator(t, testSettings())

	saveEvent(t, ds, "evt-1", "text", datastore.StatusNew)
	saveEvent(t, ds, "evt-2", "text", datastore.StatusNew)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := orchestrator.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Failed)

	for _, id := range []string{"evt-1", "evt-2"} {
		got, err := ds.GetEvent(id)
		require.NoError(t, err)
		assert.Equal(t, datastore.StatusNew, got.ProcessingStatus, "aborted run must leave events pending")
	}
}

func TestProcessPendingPerCallTimeoutFailsEvent(t *testing.T) {
	t.Parallel()
	settings := testSettings()
	settings.Detection.Timeout = 20 * time.Millisecond
	orchestrator, ds := setupOrchestrator(t, settings)

	saveEvent(t, ds, "evt-slow", "WAIT forever", datastore.StatusNew)
	saveEvent(t, ds, "evt-fast", "quick", datastore.StatusNew)

	summary, err := orchestrator.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	slow, err := ds.GetEvent("evt-slow")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusFailed, slow.ProcessingStatus,
		"per-call timeout with a live parent is an ordinary failure")
}

func TestTruncatePreview(t *testing.T) {
	t.Parallel()

	short := "short"
	assert.Equal(t, short, truncatePreview(short))

	long := strings.Repeat("ä", previewLength+50)
	truncated := truncatePreview(long)
	assert.Equal(t, previewLength, len([]rune(truncated)))
}
