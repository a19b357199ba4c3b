package sidecar

import "clarium/internal/storage"

// DeriveViewSchema re-derives a view's column schema from the result of
// having already run its definition_sql once (spec §4.5.1: `CREATE VIEW`
// records the column list and types produced by the underlying query at
// creation time, not a parsed projection list). The executor runs the
// query itself and hands back the resulting frame; this just packages the
// frame's shape into the form the `.view` sidecar persists.
func DeriveViewSchema(df *storage.DataFrame) (columns []string, types map[string]string) {
	names := df.Names()
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = string(df.Type(n))
	}
	return names, out
}
