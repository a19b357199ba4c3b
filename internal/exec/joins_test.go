package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinInner(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE orders (id INT8, customer_id INT8)")
	mustExec(t, ex, "CREATE TABLE customers (id INT8, name TEXT)")
	mustExec(t, ex, "INSERT INTO customers (id, name) VALUES (1, 'ann')")
	mustExec(t, ex, "INSERT INTO customers (id, name) VALUES (2, 'bo')")
	mustExec(t, ex, "INSERT INTO orders (id, customer_id) VALUES (100, 1)")
	mustExec(t, ex, "INSERT INTO orders (id, customer_id) VALUES (101, 9)")

	res := mustExec(t, ex, "SELECT orders.id, customers.name FROM orders JOIN customers ON orders.customer_id = customers.id")
	require.Equal(t, 1, res.Rows.Height())
	require.Equal(t, "ann", res.Rows.Row(0)["name"])
}

func TestJoinLeftKeepsUnmatchedLeftRows(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE orders (id INT8, customer_id INT8)")
	mustExec(t, ex, "CREATE TABLE customers (id INT8, name TEXT)")
	mustExec(t, ex, "INSERT INTO customers (id, name) VALUES (1, 'ann')")
	mustExec(t, ex, "INSERT INTO orders (id, customer_id) VALUES (100, 1)")
	mustExec(t, ex, "INSERT INTO orders (id, customer_id) VALUES (101, 9)")

	res := mustExec(t, ex, "SELECT orders.id, customers.name FROM orders LEFT JOIN customers ON orders.customer_id = customers.id")
	require.Equal(t, 2, res.Rows.Height())

	var sawNullMatch bool
	for i := 0; i < res.Rows.Height(); i++ {
		row := res.Rows.Row(i)
		if row["name"] == nil {
			sawNullMatch = true
		}
	}
	require.True(t, sawNullMatch, "expected the unmatched order row to carry a null customer name")
}
