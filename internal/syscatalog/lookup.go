package syscatalog

import (
	"strings"

	"clarium/internal/storage"
)

// known is the set of catalog relation names clarium recognizes,
// keyed "schema.table" with schema defaulted at lookup time (spec
// §4.7: pg_catalog tables resolve unqualified the way a real
// PostgreSQL search_path does).
var known = map[string]bool{
	"pg_catalog.pg_namespace":          true,
	"pg_catalog.pg_class":              true,
	"pg_catalog.pg_attribute":          true,
	"pg_catalog.pg_constraint":         true,
	"pg_catalog.pg_constraint_columns": true,
	"pg_catalog.pg_database":           true,
	"pg_catalog.pg_roles":              true,
	"pg_catalog.pg_type":               true,
	"information_schema.tables":        true,
	"information_schema.columns":       true,
	"information_schema.views":         true,
	"information_schema.schemata":      true,
}

// normalizeRelation strips the decorations a raw SQL identifier can
// carry (quotes, a trailing statement terminator) so lookups work
// whether the parser handed us `pg_class`, `"pg_class"`, or `pg_class;`.
func normalizeRelation(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ";")
	name = strings.Trim(name, `"`)
	return name
}

// Resolve reports whether (schema, table) names a synthesized catalog
// relation, trying an explicit schema first and falling back to
// pg_catalog then information_schema for a bare name (spec §4.7
// lookup order).
func Resolve(schema, table string) (resolvedSchema string, ok bool) {
	table = normalizeRelation(table)
	schema = normalizeRelation(schema)

	if schema != "" {
		if known[schema+"."+table] {
			return schema, true
		}
		return "", false
	}
	if known["pg_catalog."+table] {
		return "pg_catalog", true
	}
	if known["information_schema."+table] {
		return "information_schema", true
	}
	return "", false
}

// Build materializes the named catalog relation for database, using
// the registry's latest snapshot (refreshing lazily on first use).
func (r *Registry) Build(database, schema, table string) (*storage.DataFrame, error) {
	snap, err := r.Snapshot()
	if err != nil {
		return nil, err
	}
	table = normalizeRelation(table)

	switch schema {
	case "pg_catalog":
		switch table {
		case "pg_namespace":
			return buildPgNamespace(), nil
		case "pg_class":
			return buildPgClass(snap, database), nil
		case "pg_attribute":
			return buildPgAttribute(snap, database), nil
		case "pg_constraint":
			return buildPgConstraint(snap, database), nil
		case "pg_constraint_columns":
			return buildPgConstraintColumns(snap, database), nil
		case "pg_database":
			return buildPgDatabase(snap), nil
		case "pg_roles":
			return buildPgRoles(), nil
		case "pg_type":
			return buildPgType(), nil
		}
	case "information_schema":
		switch table {
		case "tables":
			return buildInfoTables(snap, database), nil
		case "columns":
			return buildInfoColumns(snap, database), nil
		case "views":
			return buildInfoViews(snap, database, r.sidecar), nil
		case "schemata":
			return buildInfoSchemata(snap, database), nil
		}
	}
	return nil, nil
}
