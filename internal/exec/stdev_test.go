package exec_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStdevComputesPopulationStandardDeviation(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE samples (v FLOAT8)")
	for _, v := range []string{"2", "4", "4", "4", "5", "5", "7", "9"} {
		mustExec(t, ex, "INSERT INTO samples (v) VALUES ("+v+")")
	}

	res := mustExec(t, ex, "SELECT STDEV(v) AS s FROM samples")
	require.Equal(t, 1, res.Rows.Height())
	require.InDelta(t, 2.0, res.Rows.Row(0)["s"], 1e-9)
}

func TestStdevPerGroup(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE sales (region TEXT, amount FLOAT8)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 1)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 2)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 3)")
	mustExec(t, ex, "INSERT INTO sales (region, amount) VALUES ('east', 4)")

	res := mustExec(t, ex, "SELECT region, STDEV(amount) AS s FROM sales GROUP BY region")
	require.Equal(t, 1, res.Rows.Height())
	require.InDelta(t, math.Sqrt(1.25), res.Rows.Row(0)["s"], 1e-9)
}
