package exec

import (
	"encoding/json"
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// parseJSON parses sql into pg_query_go's generic JSON AST shape,
// the same representation the teacher's pkg/pg_lineage resolver walks
// (pg_query.ParseToJSON + encoding/json into map[string]any), chosen
// over the typed protobuf getters for node shapes this engine needs to
// reach deeply (value lists, assignments, subselects) without binding
// to a specific struct-field surface per statement kind.
func parseJSON(sql string) (map[string]any, error) {
	raw, err := pg_query.ParseToJSON(sql)
	if err != nil {
		return nil, fmt.Errorf("exec: parse: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("exec: decode ast json: %w", err)
	}
	return tree, nil
}

// firstStmt returns the bare statement node (e.g. {"SelectStmt": {...}})
// of a parsed tree's first statement.
func firstStmt(tree map[string]any) map[string]any {
	stmts := mlist(tree, "stmts")
	if len(stmts) == 0 {
		return nil
	}
	return mget(mmap(stmts[0]), "stmt")
}

// node unwraps a single-key AST node map to (tag, body), e.g.
// {"ColumnRef": {...}} -> ("ColumnRef", {...}).
func node(n map[string]any) (string, map[string]any) {
	for k, v := range n {
		return k, mmap(v)
	}
	return "", nil
}

func mmap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func mlist(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	l, _ := m[key].([]any)
	return l
}

func mget(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	return mmap(m[key])
}

func mstr(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func mnum(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	default:
		return 0
	}
}

func mbool(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}
