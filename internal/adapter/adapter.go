// Package adapter is the thin in-process boundary a wire-protocol
// server would sit behind (spec §1, §6, §9 — concrete socket servers
// are an explicit non-goal). It decodes a typed request, runs it
// through internal/exec, and re-encodes the result, the same
// switch-on-Type shape the teacher's WebSocket dispatcher uses, minus
// the actual socket.
package adapter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"clarium/internal/common"
	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/identity"
)

// Message mirrors the teacher's envelope shape: every request/response
// carries a Type discriminator and an optional correlation ID.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// ExecuteRequest runs a single SQL statement against a session's
// current database/schema defaults.
type ExecuteRequest struct {
	Message
	SQL string `json:"sql"`
}

// ExecuteResponse carries back whatever internal/exec.Result produced,
// JSON-encoded via storage.DataFrame's row-oriented shape.
type ExecuteResponse struct {
	Message
	RowsAffected int              `json:"rows_affected"`
	Status       string           `json:"status"`
	Rows         []map[string]any `json:"rows,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// LoginRequest authenticates and mints a session, the request a
// connection handshake would carry before any SQL flows.
type LoginRequest struct {
	Message
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// LoginResponse carries back the session id a subsequent Sender would
// attach to every ExecuteRequest.
type LoginResponse struct {
	Message
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UpdateCellRequest targets a single column of a single row by an
// opaque row handle (see MakeHandle), rather than asking the caller to
// write an UPDATE statement — the same row-addressing model the
// teacher's spreadsheet-view UI used (internal/common.EncodeHandle).
type UpdateCellRequest struct {
	Message
	Handle string `json:"handle"`
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// UpdateCellResponse reports whether the targeted row existed.
type UpdateCellResponse struct {
	Message
	RowsAffected int    `json:"rows_affected"`
	Error        string `json:"error,omitempty"`
}

// MakeHandle encodes a stable row handle from a schema-qualified table
// and its primary-key values, for callers that need to address a row
// returned from an earlier EXECUTE response in a later UpdateCellRequest.
func MakeHandle(schema, table string, pk map[string]any) string {
	keys := make([]string, 0, len(pk))
	for k := range pk {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = pk[k]
	}
	return common.EncodeHandle(schema, table, keys, vals)
}

// Sender is whatever a concrete wire adapter uses to push a response
// back to its caller — a *websocket.Conn in the teacher, a gRPC
// stream, an HTTP ResponseWriter, or (in tests) a recorder.
type Sender interface {
	Send(v any) error
}

// Dispatcher binds a query executor and an auth provider to a
// Dispatch entry point; it has no knowledge of any transport.
type Dispatcher struct {
	Ex   *exec.Executor
	Auth identity.AuthProvider
	SM   *identity.SessionManager
	Log  *zap.Logger
}

func NewDispatcher(ex *exec.Executor, auth identity.AuthProvider, sm *identity.SessionManager, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{Ex: ex, Auth: auth, SM: sm, Log: log}
}

// Dispatch decodes raw into a typed request by its "type" field,
// executes it, and pushes the response through sender. Unknown
// message types are logged and dropped, matching the teacher
// dispatcher's silent-default switch.
func (d *Dispatcher) Dispatch(sender Sender, raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("adapter: decode envelope: %w", err)
	}

	switch msg.Type {
	case "LOGIN":
		return d.dispatchLogin(sender, raw)
	case "EXECUTE":
		return d.dispatchExecute(sender, raw)
	case "UPDATE_CELL":
		return d.dispatchUpdateCell(sender, raw)
	default:
		d.Log.Warn("adapter: unknown message type", zap.String("type", msg.Type))
		return nil
	}
}

func (d *Dispatcher) dispatchLogin(sender Sender, raw []byte) error {
	var req LoginRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return sender.Send(LoginResponse{Message: Message{Type: "LOGIN_ERROR"}, Error: err.Error()})
	}
	resp, err := d.Auth.Login(identity.LoginRequest{Username: req.Username, Password: req.Password, Db: req.Database})
	if err != nil {
		return sender.Send(LoginResponse{Message: Message{Type: "LOGIN_ERROR", ID: req.ID}, Error: err.Error()})
	}
	return sender.Send(LoginResponse{Message: Message{Type: "LOGIN_OK", ID: req.ID}, SessionID: resp.Session.SessionID})
}

func (d *Dispatcher) dispatchExecute(sender Sender, raw []byte) error {
	var req ExecuteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return sender.Send(ExecuteResponse{Message: Message{Type: "EXECUTE_ERROR"}, Error: err.Error()})
	}

	res, err := d.Ex.Execute(req.SQL, ident.DefaultDefaults())
	if err != nil {
		return sender.Send(ExecuteResponse{Message: Message{Type: "EXECUTE_ERROR", ID: req.ID}, Error: err.Error()})
	}

	out := ExecuteResponse{
		Message:      Message{Type: "EXECUTE_OK", ID: req.ID},
		RowsAffected: res.RowsAffected,
		Status:       res.Status,
	}
	if res.Rows != nil {
		out.Rows = make([]map[string]any, res.Rows.Height())
		for i := range out.Rows {
			out.Rows[i] = res.Rows.Row(i)
		}
	}
	return sender.Send(out)
}

func (d *Dispatcher) dispatchUpdateCell(sender Sender, raw []byte) error {
	var req UpdateCellRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return sender.Send(UpdateCellResponse{Message: Message{Type: "UPDATE_CELL_ERROR"}, Error: err.Error()})
	}

	schema, table, pk, err := common.DecodeHandle(req.Handle)
	if err != nil {
		return sender.Send(UpdateCellResponse{Message: Message{Type: "UPDATE_CELL_ERROR", ID: req.ID}, Error: err.Error()})
	}

	var where []string
	for col, val := range pk {
		where = append(where, fmt.Sprintf("%s = %s", col, sqlLiteral(val)))
	}
	sort.Strings(where)
	sql := fmt.Sprintf("UPDATE %s.%s SET %s = %s WHERE %s", schema, table, req.Column, sqlLiteral(req.Value), strings.Join(where, " AND "))

	res, err := d.Ex.Execute(sql, ident.DefaultDefaults())
	if err != nil {
		return sender.Send(UpdateCellResponse{Message: Message{Type: "UPDATE_CELL_ERROR", ID: req.ID}, Error: err.Error()})
	}
	return sender.Send(UpdateCellResponse{Message: Message{Type: "UPDATE_CELL_OK", ID: req.ID}, RowsAffected: res.RowsAffected})
}

func sqlLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", t)
	}
}
