package exec_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectProjectionAndAlias(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT, price FLOAT8)")
	mustExec(t, ex, "INSERT INTO widgets (id, name, price) VALUES (1, 'bolt', 1.5)")
	mustExec(t, ex, "INSERT INTO widgets (id, name, price) VALUES (2, 'nut', 0.5)")

	res := mustExec(t, ex, "SELECT name AS n, price FROM widgets ORDER BY price")
	require.Equal(t, 2, res.Rows.Height())
	require.Equal(t, []string{"n", "price"}, res.Rows.Names())
	require.Equal(t, "nut", res.Rows.Row(0)["n"])
	require.Equal(t, "bolt", res.Rows.Row(1)["n"])
}

func TestSelectWhereFiltersRows(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (1, 'a')")
	mustExec(t, ex, "INSERT INTO widgets (id, name) VALUES (2, 'b')")

	res := mustExec(t, ex, "SELECT id FROM widgets WHERE name = 'b'")
	require.Equal(t, 1, res.Rows.Height())
	require.EqualValues(t, 2, res.Rows.Row(0)["id"])
}

func TestSelectLimitOffset(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8)")
	for i := 1; i <= 5; i++ {
		mustExec(t, ex, "INSERT INTO widgets (id) VALUES ("+strconv.Itoa(i)+")")
	}

	res := mustExec(t, ex, "SELECT id FROM widgets ORDER BY id LIMIT 2 OFFSET 1")
	require.Equal(t, 2, res.Rows.Height())
	require.EqualValues(t, 2, res.Rows.Row(0)["id"])
	require.EqualValues(t, 3, res.Rows.Row(1)["id"])
}
