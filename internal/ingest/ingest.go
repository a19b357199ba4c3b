package ingest

import (
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/storage"
)

// InsertRows is the entry point for value-literal INSERT statements
// (and the landing step of INSERT...SELECT once rows are
// materialized): infer types, merge with the stored schema, stage rows
// into a DataFrame, enforce the primary key, then dispatch to the
// time-series or regular write path (spec §4.3).
func InsertRows(store *storage.Store, p ident.Path, rows []map[string]any, colOrder []string) error {
	if len(rows) == 0 {
		return nil
	}
	sc, err := store.LoadSchema(p)
	if err != nil {
		return fmt.Errorf("ingest: load schema: %w", err)
	}

	inferred := InferColumnTypes(rows, colOrder)
	merged := MergeTypes(sc, inferred)

	unionCols := unionColumnOrder(sc.ColumnOrder, colOrder)
	types := make(map[string]storage.ColumnType, len(unionCols))
	for _, c := range unionCols {
		if t, ok := merged[c]; ok {
			types[c] = t
		} else if t, ok := sc.Columns[c]; ok {
			types[c] = t
		} else {
			types[c] = storage.TypeString
		}
	}

	df := storage.NewDataFrame(unionCols, types)
	for _, row := range rows {
		df.AppendRow(row)
	}
	if sc.IsTimeSeries() && df.HasColumn("_time") {
		df.SortByInt64Column("_time")
	}

	if len(sc.PrimaryKey) > 0 {
		if err := enforcePrimaryKey(store, p, sc.PrimaryKey, df); err != nil {
			return err
		}
	}

	switch {
	case sc.IsTimeSeries():
		return ingestTimeSeries(store, p, df)
	case len(sc.Partitions) > 0:
		existing, err := store.ReadDF(p)
		if err != nil {
			return fmt.Errorf("ingest: read existing table: %w", err)
		}
		full := storage.Concat([]*storage.DataFrame{existing, df})
		return store.RewriteTableDF(p, full)
	default:
		return store.WriteChunk(p, df)
	}
}

func unionColumnOrder(existing, incoming []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range existing {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range incoming {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// InsertSelect implements INSERT ... SELECT alignment (spec §4.3): an
// explicit column list must match the source frame's width and
// renames positionally; for time-series targets the source must yield
// `_time` (an `ID` column is accepted as its alias).
func InsertSelect(store *storage.Store, p ident.Path, explicitCols []string, source *storage.DataFrame) error {
	if len(explicitCols) > 0 {
		if len(explicitCols) != len(source.Names()) {
			return newCodedError("user_input", fmt.Sprintf("INSERT value count mismatch: expected %d columns", len(explicitCols)))
		}
		source = renameColumns(source, explicitCols)
	}

	sc, err := store.LoadSchema(p)
	if err != nil {
		return fmt.Errorf("ingest: load schema: %w", err)
	}
	if sc.IsTimeSeries() {
		if source.HasColumn("ID") && !source.HasColumn("_time") {
			source = aliasColumn(source, "ID", "_time")
		}
		if !source.HasColumn("_time") {
			return newCodedError("user_input", "INSERT...SELECT into a time-series table must yield _time (or ID)")
		}
	}

	rows := make([]map[string]any, source.Height())
	for i := 0; i < source.Height(); i++ {
		rows[i] = source.Row(i)
	}
	return InsertRows(store, p, rows, source.Names())
}

// renameColumns positionally renames every column of df to newNames.
func renameColumns(df *storage.DataFrame, newNames []string) *storage.DataFrame {
	old := df.Names()
	types := make(map[string]storage.ColumnType, len(newNames))
	for i, n := range newNames {
		t, _ := df.Type(old[i])
		types[n] = t
	}
	out := storage.NewDataFrame(newNames, types)
	for i := 0; i < df.Height(); i++ {
		row := make(map[string]any, len(newNames))
		for j, srcName := range old {
			row[newNames[j]] = df.Column(srcName)[i]
		}
		out.AppendRow(row)
	}
	return out
}

// aliasColumn renames a single column in place (keeping the rest of
// the frame's shape), used for the `ID` -> `_time` INSERT...SELECT
// alias.
func aliasColumn(df *storage.DataFrame, from, to string) *storage.DataFrame {
	names := make([]string, 0, len(df.Names()))
	types := map[string]storage.ColumnType{}
	for _, n := range df.Names() {
		name := n
		if n == from {
			name = to
		}
		names = append(names, name)
		t, _ := df.Type(n)
		types[name] = t
	}
	out := storage.NewDataFrame(names, types)
	for i := 0; i < df.Height(); i++ {
		row := df.Row(i)
		if v, ok := row[from]; ok {
			row[to] = v
			delete(row, from)
		}
		out.AppendRow(row)
	}
	return out
}
