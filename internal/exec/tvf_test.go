package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/ident"
)

func TestSearchVectorIndexIsReachableFromSelect(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE embeddings (id INT8, vec VECTOR)")
	mustExec(t, ex, "INSERT INTO embeddings (id, vec) VALUES (1, '[1,0]')")
	mustExec(t, ex, "INSERT INTO embeddings (id, vec) VALUES (2, '[0,1]')")
	mustExec(t, ex, "CREATE VECTOR INDEX idx ON embeddings(vec) METRIC l2 DIM 2")
	mustExec(t, ex, "BUILD VECTOR INDEX idx")

	res := mustExec(t, ex, "SELECT * FROM search_vector_index('idx', '[1,0]', 1) AS m")
	require.Equal(t, 1, res.Rows.Height())
	require.InDelta(t, 0, res.Rows.Row(0)["score"], 1e-9)
}

func TestGraphNeighborsIsReachableFromSelect(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, `CREATE GRAPH g AS '{"edges":[{"type":"follows","from":"a","to":"b"},{"type":"follows","from":"b","to":"c"}]}'`)

	res := mustExec(t, ex, "SELECT node_id FROM graph_neighbors('g', 'a', 2) AS n ORDER BY node_id")
	require.Equal(t, 2, res.Rows.Height())
	require.Equal(t, "b", res.Rows.Row(0)["node_id"])
	require.Equal(t, "c", res.Rows.Row(1)["node_id"])
}

func TestGraphPathsIsReachableFromSelect(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, `CREATE GRAPH g AS '{"edges":[{"type":"follows","from":"a","to":"b"},{"type":"follows","from":"b","to":"c"}]}'`)

	res := mustExec(t, ex, "SELECT node_id, ord FROM graph_paths('g', 'a', 'c', 5) AS p ORDER BY ord")
	require.Equal(t, 3, res.Rows.Height())
	require.Equal(t, "a", res.Rows.Row(0)["node_id"])
	require.Equal(t, "b", res.Rows.Row(1)["node_id"])
	require.Equal(t, "c", res.Rows.Row(2)["node_id"])
}

func TestBuildVectorIndexRejectsUnknownIndex(t *testing.T) {
	ex := newTestExecutor(t)
	_, err := ex.Execute("BUILD VECTOR INDEX missing", ident.DefaultDefaults())
	require.Error(t, err)
}
