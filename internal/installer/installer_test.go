package installer

import (
	"os"
	"path/filepath"
	"testing"

	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

func newTestInstaller(t *testing.T, ddl map[string]string) *Installer {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ex := exec.NewExecutor(store, sidecar.NewRegistry(root), nil)
	defaults := ident.Defaults{Database: "d", Schema: "public"}

	ddlRoot := t.TempDir()
	for name, contents := range ddl {
		path := filepath.Join(ddlRoot, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return New(ex, defaults, ddlRoot, nil)
}

func TestEnsureInstalledCreatesRequiredTablesAndAdmin(t *testing.T) {
	ddl := map[string]string{
		"001_roles.sql":             "CREATE TABLE security.roles (role_id TEXT)",
		"002_policies.sql":          "CREATE TABLE security.policies (policy_id TEXT)",
		"003_resources.sql":         "CREATE TABLE security.resources (resource_id TEXT)",
		"004_grants.sql":            "CREATE TABLE security.grants (grant_id TEXT)",
		"005_future_grants.sql":     "CREATE TABLE security.future_grants (grant_id TEXT)",
		"006_fs_overrides.sql":      "CREATE TABLE security.fs_overrides (path TEXT)",
		"007_publications.sql":      "CREATE TABLE security.publications (pub_id TEXT)",
		"008_pub_graph.sql":         "CREATE TABLE security.pub_graph (pub_id TEXT)",
		"009_epochs.sql":            "CREATE TABLE security.epochs (epoch_id TEXT)",
		"010_users.sql":            "CREATE TABLE security.users (user_id TEXT, password_hash TEXT)",
		"011_role_memberships.sql": "CREATE TABLE security.role_memberships (user_id TEXT, role_id TEXT)",
	}
	in := newTestInstaller(t, ddl)
	os.Setenv("CLARIUM_DEV", "1")
	defer os.Unsetenv("CLARIUM_DEV")

	if err := in.EnsureInstalled(); err != nil {
		t.Fatalf("EnsureInstalled: %v", err)
	}

	res, err := in.Ex.Execute("SELECT COUNT(1) AS c FROM security.users", in.Defaults)
	if err != nil {
		t.Fatalf("select users: %v", err)
	}
	if c, ok := toInt64(res.Rows.Row(0)["c"]); !ok || c != 1 {
		t.Fatalf("expected exactly one provisioned admin user, got %v", res.Rows.Row(0)["c"])
	}
}

func TestEnsureInstalledIsIdempotentWithinOneInstaller(t *testing.T) {
	ddl := map[string]string{
		"001_roles.sql":            "CREATE TABLE security.roles (role_id TEXT)",
		"010_users.sql":            "CREATE TABLE security.users (user_id TEXT, password_hash TEXT)",
		"011_role_memberships.sql": "CREATE TABLE security.role_memberships (user_id TEXT, role_id TEXT)",
	}
	in := newTestInstaller(t, ddl)
	os.Setenv("CLARIUM_DEV", "1")
	defer os.Unsetenv("CLARIUM_DEV")

	if err := in.EnsureInstalled(); err != nil {
		t.Fatalf("first EnsureInstalled: %v", err)
	}
	if err := in.EnsureInstalled(); err != nil {
		t.Fatalf("second EnsureInstalled: %v", err)
	}

	res, err := in.Ex.Execute("SELECT COUNT(1) AS c FROM security.install_log", in.Defaults)
	if err != nil {
		t.Fatalf("select install_log: %v", err)
	}
	first, _ := toInt64(res.Rows.Row(0)["c"])

	if err := in.EnsureInstalled(); err != nil {
		t.Fatalf("third EnsureInstalled: %v", err)
	}
	res2, err := in.Ex.Execute("SELECT COUNT(1) AS c FROM security.install_log", in.Defaults)
	if err != nil {
		t.Fatalf("select install_log again: %v", err)
	}
	second, _ := toInt64(res2.Rows.Row(0)["c"])
	if first != second {
		t.Fatalf("expected sync.Once to make repeat calls no-ops, got %d then %d rows", first, second)
	}
}

func TestCollectSQLFilesSortsByPath(t *testing.T) {
	ddl := map[string]string{
		"b.sql":       "SELECT 1",
		"a.sql":       "SELECT 1",
		"sub/c.sql":   "SELECT 1",
		"ignored.txt": "not sql",
	}
	ddlRoot := t.TempDir()
	for name, contents := range ddl {
		path := filepath.Join(ddlRoot, name)
		os.MkdirAll(filepath.Dir(path), 0o755)
		os.WriteFile(path, []byte(contents), 0o644)
	}
	files := collectSQLFiles(ddlRoot)
	if len(files) != 3 {
		t.Fatalf("expected 3 .sql files, got %d: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "a.sql" || filepath.Base(files[1]) != "b.sql" {
		t.Fatalf("expected a.sql, b.sql ordering at top level, got %v", files)
	}
}

func TestSplitStatementsTrimsAndFiltersEmpty(t *testing.T) {
	got := splitStatements("SELECT 1;  ; SELECT 2 ;")
	if len(got) != 2 || got[0] != "SELECT 1" || got[1] != "SELECT 2" {
		t.Fatalf("unexpected split: %v", got)
	}
}

func TestRunInstallChecksReportsMissingTables(t *testing.T) {
	in := newTestInstaller(t, nil)
	ok, failed, err := in.runInstallChecks()
	if err != nil {
		t.Fatalf("runInstallChecks: %v", err)
	}
	if failed == 0 {
		t.Fatalf("expected failures against an empty store, got ok=%d failed=%d", ok, failed)
	}
}
