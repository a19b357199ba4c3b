package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/identity"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

type recorder struct {
	sent []any
}

func (r *recorder) Send(v any) error {
	r.sent = append(r.sent, v)
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *exec.Executor) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewStore(root)
	require.NoError(t, err)
	ex := exec.NewExecutor(store, sidecar.NewRegistry(root), nil)
	sm := identity.NewSessionManager()
	auth := identity.NewSQLAuthProvider(ex, sm, ident.DefaultDefaults())
	return NewDispatcher(ex, auth, sm, nil), ex
}

func TestDispatchExecuteRunsSQLAndReturnsRows(t *testing.T) {
	d, ex := newTestDispatcher(t)
	_, err := ex.Execute("CREATE TABLE widgets (id INT8, name TEXT)", ident.DefaultDefaults())
	require.NoError(t, err)
	_, err = ex.Execute("INSERT INTO widgets (id, name) VALUES (1, 'a')", ident.DefaultDefaults())
	require.NoError(t, err)

	req := ExecuteRequest{Message: Message{Type: "EXECUTE", ID: "q1"}, SQL: "SELECT id, name FROM widgets"}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, d.Dispatch(rec, raw))
	require.Len(t, rec.sent, 1)

	resp, ok := rec.sent[0].(ExecuteResponse)
	require.True(t, ok, "expected ExecuteResponse, got %T", rec.sent[0])
	require.Equal(t, "EXECUTE_OK", resp.Type)
	require.Equal(t, "q1", resp.ID)
	require.Len(t, resp.Rows, 1)
	require.Equal(t, "a", resp.Rows[0]["name"])
}

func TestDispatchUnknownTypeIsANoop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	rec := &recorder{}
	require.NoError(t, d.Dispatch(rec, []byte(`{"type":"PING"}`)))
	require.Empty(t, rec.sent)
}

func TestDispatchUpdateCellByHandleRoundTrips(t *testing.T) {
	d, ex := newTestDispatcher(t)
	_, err := ex.Execute("CREATE TABLE widgets (id INT8, name TEXT, PRIMARY KEY (id))", ident.DefaultDefaults())
	require.NoError(t, err)
	_, err = ex.Execute("INSERT INTO widgets (id, name) VALUES (1, 'a')", ident.DefaultDefaults())
	require.NoError(t, err)

	handle := MakeHandle("public", "widgets", map[string]any{"id": 1})
	req := UpdateCellRequest{Message: Message{Type: "UPDATE_CELL", ID: "u1"}, Handle: handle, Column: "name", Value: "b"}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, d.Dispatch(rec, raw))
	require.Len(t, rec.sent, 1)

	resp, ok := rec.sent[0].(UpdateCellResponse)
	require.True(t, ok, "expected UpdateCellResponse, got %T", rec.sent[0])
	require.Equal(t, "UPDATE_CELL_OK", resp.Type)
	require.Equal(t, 1, resp.RowsAffected)

	res, err := ex.Execute("SELECT name FROM widgets WHERE id = 1", ident.DefaultDefaults())
	require.NoError(t, err)
	require.Equal(t, "b", res.Rows.Row(0)["name"])
}

func TestDispatchLoginRejectsUnknownUser(t *testing.T) {
	d, _ := newTestDispatcher(t)
	req := LoginRequest{Message: Message{Type: "LOGIN", ID: "l1"}, Username: "ghost", Password: "x"}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, d.Dispatch(rec, raw))
	require.Len(t, rec.sent, 1)

	resp, ok := rec.sent[0].(LoginResponse)
	require.True(t, ok, "expected LoginResponse, got %T", rec.sent[0])
	require.Equal(t, "LOGIN_ERROR", resp.Type)
	require.NotEmpty(t, resp.Error)
}
