package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateCountStarWithoutGroupBy(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8)")
	mustExec(t, ex, "INSERT INTO widgets (id) VALUES (1)")
	mustExec(t, ex, "INSERT INTO widgets (id) VALUES (2)")

	res := mustExec(t, ex, "SELECT COUNT(1) AS c FROM widgets")
	require.Equal(t, 1, res.Rows.Height())
	require.EqualValues(t, 2, res.Rows.Row(0)["c"])
}

func TestAggregateGroupByWithHaving(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE sales (region TEXT, amount FLOAT8)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 10)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 20)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('west', 5)")

	res := mustExec(t, ex, "SELECT region, SUM(amount) AS total FROM sales GROUP BY region HAVING SUM(amount) > 15 ORDER BY region")
	require.Equal(t, 1, res.Rows.Height())
	require.Equal(t, "east", res.Rows.Row(0)["region"])
	require.EqualValues(t, 30, res.Rows.Row(0)["total"])
}
