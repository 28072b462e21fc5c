package graph

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralabs/astra-go/internal/conf"
	"github.com/astralabs/astra-go/internal/datastore"
)

func setupTestDB(t *testing.T) datastore.Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"

	ds := datastore.New(settings)
	require.NotNil(t, ds)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// seedPairs stores n events per (actor, fingerprint) pair.
func seedPairs(t *testing.T, ds datastore.Interface, pairs []struct {
	actor string
	hash  string
	n     int
}) {
	t.Helper()

	id := 0
	for _, p := range pairs {
		for i := 0; i < p.n; i++ {
			id++
			actor, hash := p.actor, p.hash
			event := datastore.ContentEvent{
				ID:         "evt-" + strconv.Itoa(id),
				Source:     "test",
				ActorID:    &actor,
				SourceHash: &hash,
				Text:       "text",
				Timestamp:  time.Now(),
			}
			require.NoError(t, ds.SaveEvent(&event))
		}
	}
}

func defaultPairs() []struct {
	actor string
	hash  string
	n     int
} {
	return []struct {
		actor string
		hash  string
		n     int
	}{
		{"file:a1", "hash-one", 5},
		{"file:a1", "hash-two", 2},
		{"http:a2", "hash-one", 1},
	}
}

func TestBuildFullGraph(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	seedPairs(t, ds, defaultPairs())

	g, err := Build(ds, 100, 100)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 4)
	require.Len(t, g.Edges, 3)
	assert.Equal(t, 4, g.Meta.NodeCount)
	assert.Equal(t, 3, g.Meta.EdgeCount)

	// Edges arrive weight-descending.
	assert.Equal(t, 5, g.Edges[0].Weight)
	assert.Equal(t, "actor:file:a1", g.Edges[0].Source)
	assert.Equal(t, "hash:hash-one", g.Edges[0].Target)
	assert.Equal(t, 2, g.Edges[1].Weight)
	assert.Equal(t, 1, g.Edges[2].Weight)
}

func TestBuildNodeCounts(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	seedPairs(t, ds, defaultPairs())

	g, err := Build(ds, 100, 100)
	require.NoError(t, err)

	counts := make(map[string]int, len(g.Nodes))
	for _, node := range g.Nodes {
		counts[node.ID] = node.Count
	}
	assert.Equal(t, 7, counts["actor:file:a1"], "actor count sums over all its pairs")
	assert.Equal(t, 6, counts["hash:hash-one"])
	assert.Equal(t, 2, counts["hash:hash-two"])
	assert.Equal(t, 1, counts["actor:http:a2"])
}

func TestBuildEdgeCapKeepsHeaviest(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	seedPairs(t, ds, defaultPairs())

	g, err := Build(ds, 2, 100)
	require.NoError(t, err)

	require.Len(t, g.Edges, 2)
	assert.Equal(t, 5, g.Edges[0].Weight)
	assert.Equal(t, 2, g.Edges[1].Weight)
	assert.Len(t, g.Nodes, 3)
}

func TestBuildNodeCapStopsWalkEntirely(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	seedPairs(t, ds, defaultPairs())

	// Three nodes fit the first two groups; the third group would need a
	// fourth node, so the walk stops there instead of skipping ahead.
	g, err := Build(ds, 100, 3)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, 3, g.Meta.MaxNodes)
}

func TestBuildEmptyStore(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)

	g, err := Build(ds, 100, 100)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestNodeTypesAndNamespaces(t *testing.T) {
	t.Parallel()
	ds := setupTestDB(t)
	seedPairs(t, ds, defaultPairs())

	g, err := Build(ds, 100, 100)
	require.NoError(t, err)

	byID := make(map[string]Node, len(g.Nodes))
	for _, node := range g.Nodes {
		byID[node.ID] = node
	}

	actor := byID["actor:file:a1"]
	assert.Equal(t, NodeTypeActor, actor.Type)
	assert.Equal(t, "file", actor.Namespace)
	assert.Equal(t, "file:a1", actor.Label)

	hash := byID["hash:hash-one"]
	assert.Equal(t, NodeTypeSourceHash, hash.Type)
	assert.Empty(t, hash.Namespace)
}

func TestHashLabelTruncation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", hashLabel("short"))

	long := "0123456789abcdef0123456789abcdef"
	label := hashLabel(long)
	assert.Equal(t, "0123456789ab…", label)
}

func TestActorNamespace(t *testing.T) {
	t.Parallel()

	tests := []struct {
		actorID string
		want    string
	}{
		{"file:report.txt", "file"},
		{"http:example.com", "http"},
		{"cluster:42", "cluster"},
		{"user-123", "other"},
		{"", "other"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, actorNamespace(tc.actorID), "actor id %q", tc.actorID)
	}
}
