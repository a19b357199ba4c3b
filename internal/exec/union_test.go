package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnionDeduplicates(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE a (id INT8)")
	mustExec(t, ex, "CREATE TABLE b (id INT8)")
	mustExec(t, ex, "INSERT INTO a (id) VALUES (1)")
	mustExec(t, ex, "INSERT INTO b (id) VALUES (1)")
	mustExec(t, ex, "INSERT INTO b (id) VALUES (2)")

	res := mustExec(t, ex, "SELECT id FROM a UNION SELECT id FROM b")
	require.Equal(t, 2, res.Rows.Height())
}

func TestUnionAllKeepsDuplicates(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE a (id INT8)")
	mustExec(t, ex, "CREATE TABLE b (id INT8)")
	mustExec(t, ex, "INSERT INTO a (id) VALUES (1)")
	mustExec(t, ex, "INSERT INTO b (id) VALUES (1)")

	res := mustExec(t, ex, "SELECT id FROM a UNION ALL SELECT id FROM b")
	require.Equal(t, 2, res.Rows.Height())
}
