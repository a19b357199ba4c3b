package ingest

import (
	"testing"

	"clarium/internal/ident"
	"clarium/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestInsertRowsInfersAndWidens(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t"}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows := []map[string]any{
		{"a": int64(1), "b": "x"},
		{"a": float64(2.5), "b": "y"},
	}
	if err := InsertRows(s, p, rows, []string{"a", "b"}); err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	df, err := s.ReadDF(p)
	if err != nil {
		t.Fatalf("ReadDF: %v", err)
	}
	if df.Height() != 2 {
		t.Fatalf("got height %d", df.Height())
	}
	if typ, _ := df.Type("a"); typ != storage.TypeFloat64 {
		t.Fatalf("expected column a widened to float64, got %v", typ)
	}
}

func TestInsertRowsPrimaryKeyViolation(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t"}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	sc, err := s.LoadSchema(p)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	sc.PrimaryKey = []string{"a", "region"}
	if err := s.SaveSchema(p, sc); err != nil {
		t.Fatalf("SaveSchema: %v", err)
	}

	ok := []map[string]any{
		{"a": int64(1), "region": "north", "v": int64(10)},
		{"a": int64(2), "region": "south", "v": int64(20)},
	}
	if err := InsertRows(s, p, ok, []string{"a", "region", "v"}); err != nil {
		t.Fatalf("InsertRows ok batch: %v", err)
	}

	dup := []map[string]any{
		{"a": int64(1), "region": "north", "v": int64(99)},
	}
	err = InsertRows(s, p, dup, []string{"a", "region", "v"})
	if err == nil {
		t.Fatalf("expected PRIMARY KEY violation, got nil")
	}
	var coded *CodedError
	if !asCoded(err, &coded) || coded.Code != "primary_key_violation" {
		t.Fatalf("expected coded primary_key_violation error, got %v", err)
	}
}

func asCoded(err error, out **CodedError) bool {
	if ce, ok := err.(*CodedError); ok {
		*out = ce
		return true
	}
	return false
}

func TestIngestTimeSeriesOverlapMerge(t *testing.T) {
	s := newTestStore(t)
	p := ident.Path{Database: "d", Schema: "s", Table: "t", IsTime: true}
	if err := s.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	first := []map[string]any{
		{"_time": int64(100), "v": int64(1)},
		{"_time": int64(200), "v": int64(2)},
	}
	if err := InsertRows(s, p, first, []string{"_time", "v"}); err != nil {
		t.Fatalf("InsertRows first: %v", err)
	}

	second := []map[string]any{
		{"_time": int64(200), "v": int64(222)}, // last-writer-wins over the first batch's 200
		{"_time": int64(300), "v": int64(3)},
	}
	if err := InsertRows(s, p, second, []string{"_time", "v"}); err != nil {
		t.Fatalf("InsertRows second: %v", err)
	}

	df, err := s.ReadDF(p)
	if err != nil {
		t.Fatalf("ReadDF: %v", err)
	}
	if df.Height() != 3 {
		t.Fatalf("expected 3 rows after merge, got %d", df.Height())
	}
	vCol := df.Column("v")
	tCol := df.Column("_time")
	for i, tv := range tCol {
		if storage.AsInt64(tv) == 200 && storage.AsInt64(vCol[i]) != 222 {
			t.Fatalf("expected last-writer-wins value 222 at _time=200, got %v", vCol[i])
		}
	}
}
