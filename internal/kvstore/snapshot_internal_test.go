package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteLoadSnapshotRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := newStore(dir, Settings{Name: "snaps"})
	s.Set("greeting", KvValue{Kind: KindStr, Str: "hello"}, nil, nil)
	s.Set("count", KvValue{Kind: KindInt, Int: 42}, nil, nil)

	require.NoError(t, writeSnapshot(s))

	reloaded := newStore(dir, Settings{Name: "snaps"})
	require.NoError(t, loadSnapshot(reloaded))

	v, ok := reloaded.Get("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", v.Str)

	v, ok = reloaded.Get("count")
	require.True(t, ok)
	require.EqualValues(t, 42, v.Int)
}

func TestParquetBlobRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cols := []string{"id", "name"}
	rows := []map[string]any{
		{"id": int64(1), "name": "a"},
		{"id": int64(2), "name": "b"},
	}

	relPath, err := writeParquetBlob(dir, "mykey", cols, rows)
	require.NoError(t, err)

	gotCols, gotRows, err := readParquetBlob(dir, relPath)
	require.NoError(t, err)
	require.ElementsMatch(t, cols, gotCols)
	require.Len(t, gotRows, 2)
}
