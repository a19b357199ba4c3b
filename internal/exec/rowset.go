package exec

import "clarium/internal/storage"

// colRef names one column of a rowSet together with the table alias it
// came from, so a table-qualified `alias.*` expansion and join output
// can both be built without re-deriving provenance later.
type colRef struct {
	alias string
	name  string
}

// rowSet is the executor's working representation of an intermediate
// relation while a SELECT pipeline runs (spec §4.4.3): row-oriented,
// each row keyed by both its bare column name and its `alias.col`
// qualified name so unqualified and qualified ColumnRefs both resolve
// (see lookupColumn in expr.go).
type rowSet struct {
	cols []colRef
	rows []map[string]any
}

func (rs *rowSet) bareNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range rs.cols {
		if !seen[c.name] {
			seen[c.name] = true
			out = append(out, c.name)
		}
	}
	return out
}

func (rs *rowSet) namesForAlias(alias string) []string {
	var out []string
	for _, c := range rs.cols {
		if c.alias == alias {
			out = append(out, c.name)
		}
	}
	return out
}

// dataFrameToRowSet wraps a materialized DataFrame (the result of a
// subquery, or a view's backing data) as a rowSet under the given
// alias.
func dataFrameToRowSet(df *storage.DataFrame, alias string) *rowSet {
	rs := &rowSet{}
	for _, n := range df.Names() {
		rs.cols = append(rs.cols, colRef{alias: alias, name: n})
	}
	for i := 0; i < df.Height(); i++ {
		row := df.Row(i)
		rs.rows = append(rs.rows, qualifyRow(row, alias))
	}
	return rs
}

// qualifyRow returns a copy of row with every entry also present under
// its `alias.col` qualified key.
func qualifyRow(row map[string]any, alias string) map[string]any {
	out := make(map[string]any, len(row)*2)
	for k, v := range row {
		out[k] = v
		if alias != "" {
			out[alias+"."+k] = v
		}
	}
	return out
}

// rowsToDataFrame materializes a final projected row list into a
// DataFrame, inferring each column's type from the values observed
// (the same widening rule as ingestion, spec §4.3) since a SELECT
// result's columns were never declared against a schema.
func rowsToDataFrame(cols []string, rows []map[string]any) *storage.DataFrame {
	types := make(map[string]storage.ColumnType, len(cols))
	for _, c := range cols {
		types[c] = inferResultColumnType(rows, c)
	}
	df := storage.NewDataFrame(cols, types)
	for _, r := range rows {
		df.AppendRow(r)
	}
	return df
}

func inferResultColumnType(rows []map[string]any, col string) storage.ColumnType {
	sawFloat, sawInt, sawBool := false, false, false
	for _, r := range rows {
		v := r[col]
		switch t := v.(type) {
		case nil:
			continue
		case string:
			return storage.TypeString
		case bool:
			sawBool = true
		case int64, int:
			sawInt = true
		case float64, float32:
			if t == float64(int64(toFloat(t))) {
				sawInt = true
			} else {
				sawFloat = true
			}
		case []any:
			return storage.TypeList
		default:
			return storage.TypeString
		}
	}
	switch {
	case sawFloat:
		return storage.TypeFloat64
	case sawInt:
		return storage.TypeInt64
	case sawBool:
		return storage.TypeBool
	default:
		return storage.TypeString
	}
}
