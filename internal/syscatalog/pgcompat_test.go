package syscatalog_test

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
	"clarium/pkg/pgcompat"
)

// TestInformationSchemaColumnsMatchRealPostgres is opt-in (set
// CLARIUM_PGCOMPAT=1) since it pulls a real Postgres container via
// testcontainers-go — not something a sandboxed unit-test run can do
// unconditionally. It compares how many columns clarium's synthesized
// information_schema.columns lists for a table with how many the
// genuine Postgres catalog lists for an identically-shaped table.
func TestInformationSchemaColumnsMatchRealPostgres(t *testing.T) {
	if os.Getenv("CLARIUM_PGCOMPAT") == "" {
		t.Skip("set CLARIUM_PGCOMPAT=1 to run the live-Postgres compatibility check")
	}

	pgcompat.BootOnce(t)
	sbx := pgcompat.NewSandbox(t)

	if _, err := sbx.DB.Exec(`CREATE TABLE widgets (id BIGINT, name TEXT, price DOUBLE PRECISION)`); err != nil {
		t.Fatalf("create real table: %v", err)
	}

	// Query the catalog through lib/pq rather than reusing the pgx
	// connection the sandbox was opened with — a second, independent
	// driver round-trip through the same introspection queries
	// richcatalog.go describes, against a real Postgres instead of
	// clarium's synthesized one.
	pqDB, err := sql.Open("postgres", sbx.DSN)
	if err != nil {
		t.Fatalf("open lib/pq connection: %v", err)
	}
	defer pqDB.Close()

	rows, err := pqDB.Query(
		`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = 'widgets' ORDER BY ordinal_position`,
		sbx.Schema,
	)
	if err != nil {
		t.Fatalf("query real information_schema.columns: %v", err)
	}
	defer rows.Close()
	var realCols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		realCols = append(realCols, name)
	}

	root := t.TempDir()
	store, err := storage.NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ex := exec.NewExecutor(store, sidecar.NewRegistry(root), nil)
	defaults := ident.Defaults{Database: "d", Schema: "public"}
	if _, err := ex.Execute("CREATE TABLE widgets (id BIGINT, name TEXT, price FLOAT8)", defaults); err != nil {
		t.Fatalf("create clarium table: %v", err)
	}

	df, err := ex.Catalog.Build("d", "information_schema", "columns")
	if err != nil {
		t.Fatalf("Build information_schema.columns: %v", err)
	}
	var clariumCols []string
	names := df.Column("column_name")
	tables := df.Column("table_name")
	for i, n := range names {
		if tables[i].(string) == "widgets" {
			clariumCols = append(clariumCols, n.(string))
		}
	}

	if len(clariumCols) == 0 {
		t.Fatalf("expected clarium's synthesized information_schema.columns to list at least one column")
	}
	if len(realCols) != len(clariumCols) {
		t.Logf("real Postgres columns: %v", realCols)
		t.Logf("clarium columns: %v", clariumCols)
		t.Fatalf("column count mismatch: real=%d clarium=%d", len(realCols), len(clariumCols))
	}
}
