package syscatalog

import "clarium/internal/storage"

var pgAttributeCols = []colSpec{
	{"attrelid", storage.TypeInt64},
	{"attname", storage.TypeString},
	{"atttypid", storage.TypeInt64},
	{"attnum", storage.TypeInt64},
	{"attnotnull", storage.TypeBool},
}

// buildPgAttribute emits one row per column of every cataloged
// relation in database, attnum starting at 1 as PostgreSQL does (spec
// §4.7 pg_attribute). The internal "PRIMARY" synthetic marker some
// legacy schemas carry is not itself a column and is skipped.
func buildPgAttribute(snap Snapshot, database string) *storage.DataFrame {
	df := newFrame(pgAttributeCols)
	for _, t := range snap.Tables {
		if t.Database != database {
			continue
		}
		for _, c := range t.Columns {
			if c.Name == "PRIMARY" {
				continue
			}
			notNull := false
			for _, pk := range t.PK {
				if pk == c.Name {
					notNull = true
				}
			}
			df.AppendRow(map[string]any{
				"attrelid":   int64(t.OID),
				"attname":    c.Name,
				"atttypid":   typeFor(c.Type).oid,
				"attnum":     int64(c.Ordinal),
				"attnotnull": notNull,
			})
		}
	}
	return df
}
