package exec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

func newTestExecutor(t *testing.T) *exec.Executor {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewStore(root)
	require.NoError(t, err)
	return exec.NewExecutor(store, sidecar.NewRegistry(root), nil)
}

func mustExec(t *testing.T, ex *exec.Executor, sql string) *exec.Result {
	t.Helper()
	res, err := ex.Execute(sql, ident.DefaultDefaults())
	require.NoError(t, err, "SQL: %s", sql)
	return res
}
