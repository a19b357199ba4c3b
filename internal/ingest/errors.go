package ingest

// CodedError is a typed error the executor (C4) converts into an
// AppError with the right HTTP/SQLSTATE mapping; storage/ingest never
// construct an AppError themselves (spec §4.4.2 propagation policy:
// "storage and catalog layers raise typed errors that the executor
// converts").
type CodedError struct {
	Code string
	Msg  string
}

func (e *CodedError) Error() string { return e.Msg }

func newCodedError(code, msg string) error {
	return &CodedError{Code: code, Msg: msg}
}
