package syscatalog

import "clarium/internal/storage"

// colSpec declares one synthesized catalog column (name, type), used
// by every pg_*/information_schema builder below to seed a DataFrame
// with the right shape before appending rows.
type colSpec struct {
	name string
	typ  storage.ColumnType
}

func newFrame(specs []colSpec) *storage.DataFrame {
	names := make([]string, len(specs))
	types := make(map[string]storage.ColumnType, len(specs))
	for i, s := range specs {
		names[i] = s.name
		types[s.name] = s.typ
	}
	return storage.NewDataFrame(names, types)
}
