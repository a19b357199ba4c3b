package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRollingWindowTrailingSum(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE metrics.time (v INT8)")

	mustExec(t, ex, "INSERT INTO metrics.time (_time, v) VALUES (1000, 1)")
	mustExec(t, ex, "INSERT INTO metrics.time (_time, v) VALUES (2000, 2)")
	mustExec(t, ex, "INSERT INTO metrics.time (_time, v) VALUES (20000, 3)")

	res := mustExec(t, ex, "SELECT SUM(v) AS total FROM metrics.time ROLLING BY 5s")
	require.Equal(t, 3, res.Rows.Height())
	require.EqualValues(t, 1, res.Rows.Row(0)["total"])
	require.EqualValues(t, 3, res.Rows.Row(1)["total"])
	require.EqualValues(t, 3, res.Rows.Row(2)["total"])
}

func TestTumblingWindowBucketsByInterval(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE metrics.time (v INT8)")
	mustExec(t, ex, "INSERT INTO metrics.time (_time, v) VALUES (0, 1)")
	mustExec(t, ex, "INSERT INTO metrics.time (_time, v) VALUES (4000, 2)")
	mustExec(t, ex, "INSERT INTO metrics.time (_time, v) VALUES (5000, 3)")

	res := mustExec(t, ex, "SELECT SUM(v) AS total FROM metrics.time BY 5s")
	require.Equal(t, 2, res.Rows.Height())
	require.EqualValues(t, 3, res.Rows.Row(0)["total"])
	require.EqualValues(t, 3, res.Rows.Row(1)["total"])
}
