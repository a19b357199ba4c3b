package sqlast

import (
	"testing"
	"time"
)

func TestParseDurationUnits(t *testing.T) {
	cases := map[string]time.Duration{
		"10s": 10 * time.Second,
		"1m":  time.Minute,
		"3h":  3 * time.Hour,
		"2d":  48 * time.Hour,
	}
	for lit, want := range cases {
		got, err := ParseDuration(lit)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", lit, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", lit, got, want)
		}
	}
}

func TestParseTumblingWindow(t *testing.T) {
	cmd, err := Parse("SELECT SUM(v) AS s FROM t BY 10s ORDER BY _time")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Window.Kind != WindowTumbling || cmd.Window.Duration != 10*time.Second {
		t.Fatalf("got window %+v", cmd.Window)
	}
	if cmd.Kind != KindSelect {
		t.Fatalf("got kind %v", cmd.Kind)
	}
}

func TestParseRollingWindow(t *testing.T) {
	cmd, err := Parse("SELECT AVG(v) FROM t ROLLING BY 3s")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Window.Kind != WindowRolling || cmd.Window.Duration != 3*time.Second {
		t.Fatalf("got window %+v", cmd.Window)
	}
}

func TestParseOrderByNotConfusedWithWindow(t *testing.T) {
	cmd, err := Parse("SELECT * FROM t ORDER BY _time")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Window.Kind != WindowNone {
		t.Fatalf("expected no window, got %+v", cmd.Window)
	}
}

func TestParseRenameTable(t *testing.T) {
	cmd, err := Parse("RENAME TABLE old_t TO new_t")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Kind != KindRenameTable || cmd.RenameTable.From != "old_t" || cmd.RenameTable.To != "new_t" {
		t.Fatalf("got %+v", cmd.RenameTable)
	}
}

func TestParseDeleteColumnsWithWhere(t *testing.T) {
	cmd, err := Parse("DELETE COLUMNS (a, b) FROM t WHERE x = 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Kind != KindDeleteColumns {
		t.Fatalf("got kind %v", cmd.Kind)
	}
	if len(cmd.DeleteColumns.Columns) != 2 || cmd.DeleteColumns.Where != "x = 1" {
		t.Fatalf("got %+v", cmd.DeleteColumns)
	}
}

func TestParseCreateVectorIndex(t *testing.T) {
	cmd, err := Parse("CREATE VECTOR INDEX idx1 ON docs(embedding) METRIC cosine DIM 384 MODE REBUILD_ONLY")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	vi := cmd.VectorIndex
	if vi.Name != "idx1" || vi.Table != "docs" || vi.Column != "embedding" || vi.Metric != "cosine" || vi.Dim != 384 || vi.Mode != "REBUILD_ONLY" {
		t.Fatalf("got %+v", vi)
	}
}
