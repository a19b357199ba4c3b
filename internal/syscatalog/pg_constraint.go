package syscatalog

import "clarium/internal/storage"

var pgConstraintCols = []colSpec{
	{"oid", storage.TypeInt64},
	{"conname", storage.TypeString},
	{"conrelid", storage.TypeInt64},
	{"contype", storage.TypeString},
}

var pgConstraintColumnsCols = []colSpec{
	{"conrelid", storage.TypeInt64},
	{"conname", storage.TypeString},
	{"attname", storage.TypeString},
	{"ordinal", storage.TypeInt64},
}

// buildPgConstraint synthesizes one "p" (primary key) row per
// cataloged table that declares one (spec §4.7 pg_constraint). Named
// CHECK constraints recorded in a table's schema.json are not reported.
func buildPgConstraint(snap Snapshot, database string) *storage.DataFrame {
	df := newFrame(pgConstraintCols)
	for _, t := range snap.Tables {
		if t.Database != database || len(t.PK) == 0 {
			continue
		}
		df.AppendRow(map[string]any{
			"oid":      int64(t.OID) + 1, // table OID plus one; not checked against other relations' OIDs
			"conname":  t.Name + "_pkey",
			"conrelid": int64(t.OID),
			"contype":  "p",
		})
	}
	return df
}

// buildPgConstraintColumns is clarium's one-to-many expansion of
// pg_constraint's implicit conkey array, since clarium's DataFrame rows
// can't hold PostgreSQL's int2vector type directly.
func buildPgConstraintColumns(snap Snapshot, database string) *storage.DataFrame {
	df := newFrame(pgConstraintColumnsCols)
	for _, t := range snap.Tables {
		if t.Database != database || len(t.PK) == 0 {
			continue
		}
		for i, col := range t.PK {
			df.AppendRow(map[string]any{
				"conrelid": int64(t.OID),
				"conname":  t.Name + "_pkey",
				"attname":  col,
				"ordinal":  int64(i + 1),
			})
		}
	}
	return df
}
