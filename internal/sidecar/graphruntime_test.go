package sidecar_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

func inlineGraph() *sidecar.Graph {
	return &sidecar.Graph{
		Name: "g",
		Edges: []sidecar.GraphEdge{
			{Type: "follows", From: "a", To: "b"},
			{Type: "follows", From: "b", To: "c"},
			{Type: "follows", From: "a", To: "d"},
		},
	}
}

func TestGraphNeighborsBFS(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewStore(root)
	require.NoError(t, err)

	out, err := sidecar.GraphNeighbors(store, ident.DefaultDefaults(), inlineGraph(), "a", 2)
	require.NoError(t, err)

	keys := map[string]int{}
	for _, n := range out {
		keys[n.NodeKey] = n.Hops
	}
	require.Equal(t, 1, keys["b"])
	require.Equal(t, 1, keys["d"])
	require.Equal(t, 2, keys["c"])
}

func TestGraphNeighborsRespectsMaxHops(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewStore(root)
	require.NoError(t, err)

	out, err := sidecar.GraphNeighbors(store, ident.DefaultDefaults(), inlineGraph(), "a", 1)
	require.NoError(t, err)

	for _, n := range out {
		require.NotEqual(t, "c", n.NodeKey, "c is two hops from a, should not appear with maxHops=1")
	}
}

func TestGraphPathsFindsShortestRoute(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewStore(root)
	require.NoError(t, err)

	hops, found, err := sidecar.GraphPaths(store, ident.DefaultDefaults(), inlineGraph(), "a", "c", 0)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, hops, 2)
	require.Equal(t, "b", hops[0].NodeKey)
	require.Equal(t, "c", hops[1].NodeKey)
}

func TestGraphPathsReportsUnreachable(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewStore(root)
	require.NoError(t, err)

	_, found, err := sidecar.GraphPaths(store, ident.DefaultDefaults(), inlineGraph(), "c", "a", 0)
	require.NoError(t, err)
	require.False(t, found)
}
