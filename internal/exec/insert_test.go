package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/ident"
)

func TestInsertValuesRejectsColumnCountMismatch(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")

	_, err := ex.Execute("INSERT INTO widgets (id, name) VALUES (1)", ident.DefaultDefaults())
	require.ErrorContains(t, err, "INSERT value count mismatch: expected 2 columns")
}

func TestInsertSelectRejectsColumnCountMismatch(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE widgets (id INT8, name TEXT)")
	mustExec(t, ex, "CREATE TABLE ids (id INT8)")
	mustExec(t, ex, "INSERT INTO ids (id) VALUES (1)")

	_, err := ex.Execute("INSERT INTO widgets (id, name) SELECT id FROM ids", ident.DefaultDefaults())
	require.ErrorContains(t, err, "INSERT value count mismatch: expected 2 columns")
}
