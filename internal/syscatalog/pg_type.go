package syscatalog

import "clarium/internal/storage"

var pgTypeCols = []colSpec{
	{"oid", storage.TypeInt64},
	{"typname", storage.TypeString},
}

// pgType fixes a small, stable OID per clarium column type — enough
// for pg_attribute.atttypid joins and `::regtype`-style introspection
// tooling, without chasing PostgreSQL's full builtin OID table.
type pgType struct {
	oid  int64
	name string
}

var (
	pgTypeInt8    = pgType{20, "int8"}
	pgTypeFloat8  = pgType{701, "float8"}
	pgTypeBool    = pgType{16, "bool"}
	pgTypeText    = pgType{25, "text"}
	pgTypeVector  = pgType{50001, "vector"}
	pgTypeHstore  = pgType{50002, "hstore"}
	pgTypeUnknown = pgType{705, "unknown"}
)

func typeFor(t storage.ColumnType) pgType {
	switch t {
	case storage.TypeInt64:
		return pgTypeInt8
	case storage.TypeFloat64:
		return pgTypeFloat8
	case storage.TypeBool:
		return pgTypeBool
	case storage.TypeVector:
		return pgTypeVector
	case storage.TypeString, storage.TypeList, storage.TypeInt64List, storage.TypeStringList:
		return pgTypeText
	default:
		return pgTypeUnknown
	}
}

// buildPgType lists the fixed set of types clarium's columns can take
// on, including the two domain-specific extras (`vector`, `hstore`)
// the spec calls out explicitly (spec §4.7 pg_type).
func buildPgType() *storage.DataFrame {
	df := newFrame(pgTypeCols)
	for _, t := range []pgType{pgTypeInt8, pgTypeFloat8, pgTypeBool, pgTypeText, pgTypeVector, pgTypeHstore} {
		df.AppendRow(map[string]any{"oid": t.oid, "typname": t.name})
	}
	return df
}
