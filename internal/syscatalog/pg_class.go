package syscatalog

import "clarium/internal/storage"

var pgClassCols = []colSpec{
	{"oid", storage.TypeInt64},
	{"relname", storage.TypeString},
	{"relnamespace", storage.TypeInt64},
	{"relkind", storage.TypeString},
	{"relnatts", storage.TypeInt64},
}

// buildPgClass lists every base table, view, vector index, and graph
// in database as one relkind-tagged row each ("r" or "v" — clarium has
// no indexes/sequences/composite types of its own to distinguish, spec
// §4.7 pg_class).
func buildPgClass(snap Snapshot, database string) *storage.DataFrame {
	df := newFrame(pgClassCols)
	for _, t := range snap.Tables {
		if t.Database != database {
			continue
		}
		df.AppendRow(map[string]any{
			"oid":          int64(t.OID),
			"relname":      t.Name,
			"relnamespace": namespaceOID(t.Schema),
			"relkind":      t.Relkind,
			"relnatts":     int64(len(t.Columns)),
		})
	}
	return df
}
