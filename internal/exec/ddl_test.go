package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/ident"
)

func TestCreateTableThenDropAllowsRecreate(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")

	_, err := ex.Execute("CREATE TABLE widgets (id INT8)", ident.DefaultDefaults())
	require.Error(t, err, "expected relation_exists conflict on re-create")

	mustExec(t, ex, "DROP TABLE widgets")
	mustExec(t, ex, "CREATE TABLE widgets (id INT8)")
}

func TestAlterTableAddColumn(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8)")
	mustExec(t, ex, "ALTER TABLE widgets ADD COLUMN name TEXT")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")

	res := mustExec(t, ex, "SELECT name FROM widgets")
	require.Equal(t, "a", res.Rows.Row(0)["name"])
}

func TestAlterTableRenameColumn(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")
	mustExec(t, ex, "ALTER TABLE widgets RENAME COLUMN name TO label")

	res := mustExec(t, ex, "SELECT label FROM widgets")
	require.Equal(t, "a", res.Rows.Row(0)["label"])
}

func TestAlterTableDropColumn(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")
	mustExec(t, ex, "ALTER TABLE widgets DROP COLUMN name")

	res := mustExec(t, ex, "SELECT * FROM widgets")
	require.NotContains(t, res.Rows.Names(), "name")
}

func TestAlterTableAddAndDropPrimaryKey(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")
	mustExec(t, ex, "ALTER TABLE widgets ADD PRIMARY KEY (id)")
	mustExec(t, ex, "ALTER TABLE widgets DROP CONSTRAINT widgets_pkey")
}

func TestCreateViewProjectsUnderlyingQuery(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")
	mustExec(t, ex, "CREATE VIEW widget_names AS SELECT name FROM widgets")

	res := mustExec(t, ex, "SELECT name FROM widget_names")
	require.Equal(t, 1, res.Rows.Height())
	require.Equal(t, "a", res.Rows.Row(0)["name"])
}
