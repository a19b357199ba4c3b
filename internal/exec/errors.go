package exec

import (
	"errors"
	"fmt"

	"clarium/internal/ingest"
)

// ErrorKind is the executor's stable error taxonomy (spec §4.4.2);
// each kind maps to an HTTP status and a PostgreSQL SQLSTATE.
type ErrorKind string

const (
	KindUserInput ErrorKind = "UserInput"
	KindNotFound  ErrorKind = "NotFound"
	KindConflict  ErrorKind = "Conflict"
	KindAuth      ErrorKind = "Auth"
	KindCsrf      ErrorKind = "Csrf"
	KindDdl       ErrorKind = "Ddl"
	KindExec      ErrorKind = "Exec"
	KindIo        ErrorKind = "Io"
	KindInternal  ErrorKind = "Internal"
)

type kindInfo struct {
	HTTP     int
	SQLState string
	Severity string
}

var kindTable = map[ErrorKind]kindInfo{
	KindUserInput: {400, "22000", "ERROR"},
	KindNotFound:  {404, "42P01", "ERROR"},
	KindConflict:  {409, "23505", "ERROR"},
	KindAuth:      {401, "28000", "FATAL"},
	KindCsrf:      {403, "28000", "FATAL"},
	KindDdl:       {400, "22000", "ERROR"},
	KindExec:      {422, "XX000", "ERROR"},
	KindIo:        {503, "08006", "FATAL"},
	KindInternal:  {500, "XX000", "ERROR"},
}

// AppError is the executor's only error return type once a command
// starts running (spec §4.4.2 propagation policy): lower layers raise
// plain/typed Go errors, and the executor is the single place that
// converts them into one of these.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *AppError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// HTTPStatus and SQLState expose the taxonomy mapping (spec table,
// §4.4.2) for whatever transport layer renders the response.
func (e *AppError) HTTPStatus() int    { return kindTable[e.Kind].HTTP }
func (e *AppError) SQLState() string   { return kindTable[e.Kind].SQLState }
func (e *AppError) Severity() string   { return kindTable[e.Kind].Severity }

func newAppError(kind ErrorKind, code, msg string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg}
}

func userInputErr(format string, args ...any) *AppError {
	return newAppError(KindUserInput, "user_input", fmt.Sprintf(format, args...))
}

func ddlErr(code, format string, args ...any) *AppError {
	return newAppError(KindDdl, code, fmt.Sprintf(format, args...))
}

func notFoundErr(format string, args ...any) *AppError {
	return newAppError(KindNotFound, "not_found", fmt.Sprintf(format, args...))
}

func conflictErr(code, format string, args ...any) *AppError {
	return newAppError(KindConflict, code, fmt.Sprintf(format, args...))
}

func internalErr(err error) *AppError {
	return newAppError(KindInternal, "internal", err.Error())
}

// toAppError converts errors raised below the executor (ingest's
// CodedError, or plain wrapped errors from storage/sidecar) into an
// AppError, per the propagation policy in spec §4.4.2/§8.3.
func toAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var coded *ingest.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case "primary_key_violation":
			return conflictErr(coded.Code, "%s", coded.Msg)
		case "user_input":
			return userInputErr("%s", coded.Msg)
		default:
			return newAppError(KindExec, coded.Code, coded.Msg)
		}
	}
	return internalErr(err)
}
