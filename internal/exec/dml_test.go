package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/ident"
)

func TestInsertRejectsDuplicatePrimaryKey(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT, PRIMARY KEY (id))")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")

	_, err := ex.Execute("INSERT INTO widgets (id, name) VALUES (1, 'b')", ident.DefaultDefaults())
	require.Error(t, err)
}

func TestUpdateSetsMatchingRowsOnly(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT, PRIMARY KEY (id))")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (2, 'a')")

	res := mustExec(t, ex, "UPDATE widgets SET name = 'z' WHERE id = 1")
	require.Equal(t, 1, res.RowsAffected)

	sel := mustExec(t, ex, "SELECT id, name FROM widgets ORDER BY id")
	require.Equal(t, "z", sel.Rows.Row(0)["name"])
	require.Equal(t, "a", sel.Rows.Row(1)["name"])
}

func TestDeleteRemovesMatchingRows(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8)")
	mustExec(t, ex, "INSERT INTO widgets (id) VALUES (1)")
	mustExec(t, ex, "INSERT INTO widgets (id) VALUES (2)")

	res := mustExec(t, ex, "DELETE FROM widgets WHERE id = 1")
	require.Equal(t, 1, res.RowsAffected)

	sel := mustExec(t, ex, "SELECT id FROM widgets")
	require.Equal(t, 1, sel.Rows.Height())
	require.EqualValues(t, 2, sel.Rows.Row(0)["id"])
}
