// Package exec implements clarium's query execution core (spec §4.4):
// SELECT (scan, WHERE, GROUP/window aggregation, projection, HAVING,
// ORDER BY, LIMIT/OFFSET, joins, UNION), INSERT/UPDATE/DELETE, and DDL
// dispatch, all driven by internal/sqlast's parsed Command and
// internal/storage's Store. Deep AST structure is walked through
// pg_query_go's JSON representation (astjson.go), the same idiom the
// teacher's pkg/pg_lineage resolver uses, rather than its typed
// protobuf getters — sqlast keeps the typed getters for the shallow
// classify/deparse step where the exact method names were directly
// confirmed.
package exec

import (
	"fmt"

	"go.uber.org/zap"

	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/sqlast"
	"clarium/internal/storage"
	"clarium/internal/syscatalog"
)

// Executor runs parsed commands against a Store.
type Executor struct {
	Store   *storage.Store
	Sidecar *sidecar.Registry
	Catalog *syscatalog.Registry
	Log     *zap.Logger
}

// NewExecutor wires an Executor to a store and its sidecar object
// registry, defaulting to a no-op logger if none is supplied. The
// system catalog registry is built from the same store/sidecar pair
// so pg_catalog/information_schema queries stay in sync automatically.
func NewExecutor(store *storage.Store, sc *sidecar.Registry, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{Store: store, Sidecar: sc, Catalog: syscatalog.NewRegistry(store, sc, log), Log: log}
}

// Result is what Execute returns for any statement: a DataFrame for
// SELECT, or a row-count/status summary for everything else.
type Result struct {
	Rows         *storage.DataFrame
	RowsAffected int
	Status       string
}

// Execute parses and runs a single SQL statement (spec §4.4.1 entry
// point), converting any error raised below into the AppError taxonomy
// before returning it.
func (ex *Executor) Execute(sql string, defaults ident.Defaults) (*Result, error) {
	cmd, err := sqlast.Parse(sql)
	if err != nil {
		return nil, userInputErr("%s", err.Error())
	}

	var res *Result
	switch cmd.Kind {
	case sqlast.KindSelect:
		df, err := ex.RunSelect(cmd, defaults)
		if err != nil {
			return nil, toAppError(err)
		}
		res = &Result{Rows: df, Status: "SELECT"}
	case sqlast.KindInsert:
		n, err := ex.RunInsert(cmd, defaults)
		if err != nil {
			return nil, toAppError(err)
		}
		res = &Result{RowsAffected: n, Status: "INSERT"}
	case sqlast.KindUpdate:
		n, err := ex.RunUpdate(cmd, defaults)
		if err != nil {
			return nil, toAppError(err)
		}
		res = &Result{RowsAffected: n, Status: "UPDATE"}
	case sqlast.KindDelete:
		n, err := ex.RunDelete(cmd, defaults)
		if err != nil {
			return nil, toAppError(err)
		}
		res = &Result{RowsAffected: n, Status: "DELETE"}
	case sqlast.KindDeleteColumns:
		if err := ex.RunDeleteColumns(cmd, defaults); err != nil {
			return nil, toAppError(err)
		}
		res = &Result{Status: "DELETE COLUMNS"}
	case sqlast.KindCreateTable, sqlast.KindDropTable, sqlast.KindAlterTable,
		sqlast.KindCreateView, sqlast.KindRenameTable,
		sqlast.KindCreateVectorIndex, sqlast.KindBuildVectorIndex, sqlast.KindCreateGraph:
		status, err := ex.RunDDL(cmd, defaults)
		if err != nil {
			return nil, toAppError(err)
		}
		res = &Result{Status: status}
	default:
		return nil, toAppError(userInputErr("unsupported statement"))
	}
	return res, nil
}

func notImplemented(what string) error {
	return internalErr(fmt.Errorf("exec: %s not implemented", what))
}
