// Package graph builds a bipartite co-occurrence graph between actor ids and
// source fingerprints from historical content events. The graph is a
// read-only projection recomputed fully on every call.
package graph

import (
	"strings"

	"github.com/astralabs/astra-go/internal/datastore"
)

// Node kind values.
const (
	NodeTypeActor      = "actor"
	NodeTypeSourceHash = "source_hash"
)

// hashLabelLength is the number of fingerprint characters shown in node labels.
const hashLabelLength = 12

// Node is one vertex of the co-occurrence graph. Node ids are namespaced by
// kind: "actor:<actor_id>" vs "hash:<source_hash>".
type Node struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	RawLabel  string `json:"raw_label"`
	Type      string `json:"type"`
	Namespace string `json:"namespace,omitempty"`
	Count     int    `json:"count"`
}

// Edge connects an actor node to a fingerprint node, weighted by the number
// of events sharing that (actor, fingerprint) pair.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Meta describes the caps applied to a build.
type Meta struct {
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
	MaxEdges  int `json:"max_edges"`
	MaxNodes  int `json:"max_nodes"`
}

// Graph is the result of one build.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Meta  Meta   `json:"meta"`
}

func actorNodeID(actorID string) string {
	return "actor:" + actorID
}

func hashNodeID(sourceHash string) string {
	return "hash:" + sourceHash
}

// actorNamespace returns a namespace bucket derived from the actor id prefix.
func actorNamespace(actorID string) string {
	if actorID == "" {
		return "other"
	}
	ns := strings.ToLower(strings.SplitN(actorID, ":", 2)[0])
	switch ns {
	case "file", "http", "cluster":
		return ns
	}
	return "other"
}

// hashLabel truncates a fingerprint to hashLabelLength characters, marking
// longer values with an ellipsis.
func hashLabel(sourceHash string) string {
	if len(sourceHash) > hashLabelLength {
		return sourceHash[:hashLabelLength] + "…"
	}
	return sourceHash
}

// Build derives the co-occurrence graph from stored content events. Groups
// arrive ordered by weight descending, so the edge cap keeps the heaviest
// edges. Node creation is lazy and stops the walk entirely once the node cap
// is reached, which keeps capped results deterministic for a given cap.
func Build(ds datastore.Interface, maxEdges, maxNodes int) (*Graph, error) {
	rows, err := ds.CooccurrenceCounts(maxEdges)
	if err != nil {
		return nil, err
	}

	// Aggregate per-node counts over the full row set first so node counts
	// do not depend on where the node cap cuts off the walk.
	nodeCounts := make(map[string]int, len(rows)*2)
	for _, row := range rows {
		nodeCounts[actorNodeID(row.ActorID)] += row.Count
		nodeCounts[hashNodeID(row.SourceHash)] += row.Count
	}

	nodeIndex := make(map[string]struct{}, maxNodes)
	nodes := make([]Node, 0, maxNodes)
	edges := make([]Edge, 0, len(rows))

	addActorNode := func(actorID string) bool {
		id := actorNodeID(actorID)
		if _, ok := nodeIndex[id]; ok {
			return true
		}
		if len(nodes) >= maxNodes {
			return false
		}
		nodeIndex[id] = struct{}{}
		nodes = append(nodes, Node{
			ID:        id,
			Label:     actorID,
			RawLabel:  actorID,
			Type:      NodeTypeActor,
			Namespace: actorNamespace(actorID),
			Count:     nodeCounts[id],
		})
		return true
	}

	addHashNode := func(sourceHash string) bool {
		id := hashNodeID(sourceHash)
		if _, ok := nodeIndex[id]; ok {
			return true
		}
		if len(nodes) >= maxNodes {
			return false
		}
		nodeIndex[id] = struct{}{}
		nodes = append(nodes, Node{
			ID:       id,
			Label:    hashLabel(sourceHash),
			RawLabel: sourceHash,
			Type:     NodeTypeSourceHash,
			Count:    nodeCounts[id],
		})
		return true
	}

	for _, row := range rows {
		if !addActorNode(row.ActorID) {
			break
		}
		if !addHashNode(row.SourceHash) {
			break
		}
		edges = append(edges, Edge{
			Source: actorNodeID(row.ActorID),
			Target: hashNodeID(row.SourceHash),
			Weight: row.Count,
		})
	}

	return &Graph{
		Nodes: nodes,
		Edges: edges,
		Meta: Meta{
			NodeCount: len(nodes),
			EdgeCount: len(edges),
			MaxEdges:  maxEdges,
			MaxNodes:  maxNodes,
		},
	}, nil
}
