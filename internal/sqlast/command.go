// Package sqlast parses clarium SQL text into a Command: a thin
// wrapper around a github.com/pganalyze/pg_query_go/v6 AST for the
// relational core, plus side-channel fields for the clarium-specific
// extensions standard Postgres grammar can't express (tumbling/rolling
// windows, CREATE VECTOR INDEX, CREATE GRAPH, RENAME TABLE, DELETE
// COLUMNS). Grounded on the teacher's pkg/pg_lineage: same
// parse-AST/deparse round-trip idiom, generalized to clarium's
// dialect (spec §4.4.1).
package sqlast

import (
	"fmt"
	"strings"
	"time"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Kind classifies a parsed command for executor dispatch.
type Kind int

const (
	KindUnknown Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindCreateTable
	KindDropTable
	KindRenameTable
	KindAlterTable
	KindCreateView
	KindCreateVectorIndex
	KindBuildVectorIndex
	KindCreateGraph
	KindDeleteColumns
)

// WindowKind distinguishes tumbling from rolling aggregation windows
// (spec §4.4.3).
type WindowKind int

const (
	WindowNone WindowKind = iota
	WindowTumbling
	WindowRolling
)

// Window carries an extracted `BY <duration>` / `ROLLING BY
// <duration>` clause; it is stripped from the text handed to
// pg_query so the remainder stays valid Postgres grammar.
type Window struct {
	Kind     WindowKind
	Duration time.Duration
}

// Command is the parsed form of one clarium SQL statement.
type Command struct {
	Kind Kind
	Raw  string

	// AST is the parsed relational-core tree for Select/Insert/Update/
	// Delete/CreateView (CreateView wraps a Select); nil for the
	// clarium-only DDL forms pg_query_go cannot parse at all.
	AST *pg_query.ParseResult

	Window Window

	// RenameTable holds operands for KindRenameTable.
	RenameTable struct{ From, To string }

	// VectorIndex holds operands for KindCreateVectorIndex.
	VectorIndex VectorIndexDDL

	// Graph holds operands for KindCreateGraph.
	Graph GraphDDL

	// DeleteColumns holds operands for KindDeleteColumns. Where is the
	// raw WHERE expression text (empty if the form had no WHERE); the
	// executor re-parses it by wrapping it in a throwaway SELECT so it
	// can reuse the ordinary WHERE-evaluation path.
	DeleteColumns struct {
		Table   string
		Columns []string
		Where   string
	}
}

// Parse classifies and parses a single SQL statement. clarium-only DDL
// forms that standard Postgres grammar rejects outright are sniffed
// and hand-parsed first; everything else has its window clause (if
// any) extracted, then is handed to pg_query_go.
func Parse(sql string) (*Command, error) {
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "CREATE VECTOR INDEX"):
		return parseCreateVectorIndex(trimmed)
	case strings.HasPrefix(upper, "BUILD VECTOR INDEX"):
		return parseBuildVectorIndex(trimmed)
	case strings.HasPrefix(upper, "CREATE GRAPH"):
		return parseCreateGraph(trimmed)
	case strings.HasPrefix(upper, "RENAME TABLE"):
		return parseRenameTable(trimmed)
	case strings.HasPrefix(upper, "DELETE COLUMNS"):
		return parseDeleteColumns(trimmed)
	}

	stripped, win, err := extractWindow(trimmed)
	if err != nil {
		return nil, err
	}

	tree, err := pg_query.Parse(stripped)
	if err != nil {
		return nil, fmt.Errorf("sqlast: parse %q: %w", sql, err)
	}
	cmd := &Command{Raw: sql, AST: tree, Window: win}
	cmd.Kind = classify(tree)
	return cmd, nil
}

func classify(tree *pg_query.ParseResult) Kind {
	if len(tree.GetStmts()) == 0 {
		return KindUnknown
	}
	stmt := tree.GetStmts()[0].GetStmt()
	switch {
	case stmt.GetSelectStmt() != nil:
		return KindSelect
	case stmt.GetInsertStmt() != nil:
		return KindInsert
	case stmt.GetUpdateStmt() != nil:
		return KindUpdate
	case stmt.GetDeleteStmt() != nil:
		return KindDelete
	case stmt.GetCreateStmt() != nil:
		return KindCreateTable
	case stmt.GetDropStmt() != nil:
		return KindDropTable
	case stmt.GetAlterTableStmt() != nil:
		return KindAlterTable
	case stmt.GetRenameStmt() != nil:
		// Postgres parses both `ALTER TABLE t RENAME TO x` and `ALTER
		// TABLE t RENAME COLUMN a TO b` as a RenameStmt rather than an
		// AlterTableCmd subtype; dispatch both through the same
		// ALTER TABLE path and let it sort out renameType.
		return KindAlterTable
	case stmt.GetViewStmt() != nil:
		return KindCreateView
	default:
		return KindUnknown
	}
}

// Deparse renders cmd.AST back to SQL text (teacher's pg_query.Deparse
// round-trip), for commands that carry a relational-core AST.
func (c *Command) Deparse() (string, error) {
	if c.AST == nil {
		return c.Raw, nil
	}
	return pg_query.Deparse(c.AST)
}
