package syscatalog

import "clarium/internal/storage"

var pgDatabaseCols = []colSpec{
	{"oid", storage.TypeInt64},
	{"datname", storage.TypeString},
}

// buildPgDatabase lists every first-level directory under the store
// root as a database (spec §4.7 pg_database), unlike the other
// pg_catalog tables which are scoped to the connection's database.
func buildPgDatabase(snap Snapshot) *storage.DataFrame {
	df := newFrame(pgDatabaseCols)
	for _, name := range snap.Databases {
		df.AppendRow(map[string]any{"oid": int64(databaseOID(name)), "datname": name})
	}
	return df
}

var pgRolesCols = []colSpec{
	{"oid", storage.TypeInt64},
	{"rolname", storage.TypeString},
	{"rolsuper", storage.TypeBool},
}

// buildPgRoles reports clarium's single built-in superuser role (spec
// §4.7 pg_roles; identity/role management is single-tenant-admin only,
// see internal/identity).
func buildPgRoles() *storage.DataFrame {
	df := newFrame(pgRolesCols)
	df.AppendRow(map[string]any{"oid": int64(1), "rolname": "postgres", "rolsuper": true})
	return df
}
