package storage

import (
	"os"
	"path/filepath"
	"testing"

	"clarium/internal/ident"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestCreateTableWritesSchema(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t"}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	sc, err := s.LoadSchema(p)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if sc.TableType != TableTypeRegular {
		t.Fatalf("got tableType %q", sc.TableType)
	}
}

func TestRewriteTableDFRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t"}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	df := NewDataFrame([]string{"a", "b"}, map[string]ColumnType{"a": TypeInt64, "b": TypeString})
	df.AppendRow(map[string]any{"a": int64(1), "b": "north"})
	df.AppendRow(map[string]any{"a": int64(2), "b": "south"})

	if err := s.RewriteTableDF(p, df); err != nil {
		t.Fatalf("RewriteTableDF: %v", err)
	}

	got, err := s.ReadDF(p)
	if err != nil {
		t.Fatalf("ReadDF: %v", err)
	}
	if got.Height() != 2 {
		t.Fatalf("got height %d", got.Height())
	}
}

func TestRewriteTableDFPartitioned(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t"}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	sc, err := s.LoadSchema(p)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	sc.Partitions = []string{"region"}
	if err := s.SaveSchema(p, sc); err != nil {
		t.Fatalf("SaveSchema: %v", err)
	}

	df := NewDataFrame([]string{"a", "region"}, map[string]ColumnType{"a": TypeInt64, "region": TypeString})
	for i := 0; i < 10; i++ {
		region := "north"
		if i%2 == 1 {
			region = "south"
		}
		df.AppendRow(map[string]any{"a": int64(i), "region": region})
	}
	if err := s.RewriteTableDF(p, df); err != nil {
		t.Fatalf("RewriteTableDF: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(s.Root, "d", "s", "t"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	parquetFiles := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".parquet" {
			parquetFiles++
		}
	}
	if parquetFiles < 2 {
		t.Fatalf("expected >=2 partition files, got %d", parquetFiles)
	}

	got, err := s.ReadDF(p)
	if err != nil {
		t.Fatalf("ReadDF: %v", err)
	}
	if got.Height() != 10 {
		t.Fatalf("got height %d", got.Height())
	}
}

func TestFilterDFPrunesByTimeRange(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t", IsTime: true}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	early := NewDataFrame([]string{"_time", "v"}, map[string]ColumnType{"_time": TypeInt64, "v": TypeInt64})
	early.AppendRow(map[string]any{"_time": int64(100), "v": int64(1)})
	if err := s.WriteChunk(p, early); err != nil {
		t.Fatalf("write early chunk: %v", err)
	}

	late := NewDataFrame([]string{"_time", "v"}, map[string]ColumnType{"_time": TypeInt64, "v": TypeInt64})
	late.AppendRow(map[string]any{"_time": int64(900), "v": int64(9)})
	if err := s.WriteChunk(p, late); err != nil {
		t.Fatalf("write late chunk: %v", err)
	}

	lo, hi := int64(0), int64(200)
	got, err := s.FilterDF(p, nil, &lo, &hi)
	if err != nil {
		t.Fatalf("FilterDF: %v", err)
	}
	if got.Height() != 1 {
		t.Fatalf("expected 1 row after pruning, got %d", got.Height())
	}
}
