package syscatalog

import (
	"testing"

	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

func newTestRegistry(t *testing.T) (*Registry, *storage.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	sc := sidecar.NewRegistry(root)
	return NewRegistry(store, sc, nil), store
}

func TestBuildPgClassListsTables(t *testing.T) {
	reg, store := newTestRegistry(t)
	p := ident.Path{Database: "d", Schema: "public", Table: "orders"}
	if err := store.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := store.SchemaAdd(p, []string{"id", "amount"}, []storage.ColumnType{storage.TypeInt64, storage.TypeFloat64}); err != nil {
		t.Fatalf("SchemaAdd: %v", err)
	}

	df, err := reg.Build("d", "pg_catalog", "pg_class")
	if err != nil {
		t.Fatalf("Build pg_class: %v", err)
	}
	if df.Height() != 1 {
		t.Fatalf("expected 1 row, got %d", df.Height())
	}
	if got := df.Column("relname")[0]; got != "orders" {
		t.Fatalf("relname = %v", got)
	}
}

func TestBuildPgAttributeListsColumns(t *testing.T) {
	reg, store := newTestRegistry(t)
	p := ident.Path{Database: "d", Schema: "public", Table: "orders"}
	if err := store.CreateTable(p); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := store.SchemaAdd(p, []string{"id", "amount"}, []storage.ColumnType{storage.TypeInt64, storage.TypeFloat64}); err != nil {
		t.Fatalf("SchemaAdd: %v", err)
	}

	df, err := reg.Build("d", "pg_catalog", "pg_attribute")
	if err != nil {
		t.Fatalf("Build pg_attribute: %v", err)
	}
	if df.Height() != 2 {
		t.Fatalf("expected 2 columns, got %d", df.Height())
	}
}

func TestResolveFallsBackToPgCatalogThenInformationSchema(t *testing.T) {
	if schema, ok := Resolve("", "pg_type"); !ok || schema != "pg_catalog" {
		t.Fatalf("Resolve(pg_type) = %q, %v", schema, ok)
	}
	if schema, ok := Resolve("", "columns"); !ok || schema != "information_schema" {
		t.Fatalf("Resolve(columns) = %q, %v", schema, ok)
	}
	if _, ok := Resolve("", "orders"); ok {
		t.Fatalf("Resolve(orders) unexpectedly matched a catalog table")
	}
}

func TestBuildPgDatabaseListsStoreDatabases(t *testing.T) {
	reg, store := newTestRegistry(t)
	for _, name := range []string{"d1", "d2"} {
		p := ident.Path{Database: name, Schema: "public", Table: "t"}
		if err := store.CreateTable(p); err != nil {
			t.Fatalf("CreateTable(%s): %v", name, err)
		}
	}

	df, err := reg.Build("d1", "pg_catalog", "pg_database")
	if err != nil {
		t.Fatalf("Build pg_database: %v", err)
	}
	if df.Height() != 2 {
		t.Fatalf("expected 2 databases, got %d", df.Height())
	}
}

func TestRefreshPicksUpSidecarView(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sc := reg.sidecar
	if err := sc.Reserve("d", "public", "recent_orders", "view"); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := sc.WriteView("d", "public", sidecar.View{Name: "recent_orders", Query: "select 1", Columns: []string{"x"}}); err != nil {
		t.Fatalf("WriteView: %v", err)
	}

	df, err := reg.Build("d", "pg_catalog", "pg_class")
	if err != nil {
		t.Fatalf("Build pg_class: %v", err)
	}
	found := false
	for i := 0; i < df.Height(); i++ {
		if df.Column("relname")[i] == "recent_orders" && df.Column("relkind")[i] == "v" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected recent_orders view row in pg_class")
	}
}
