package syscatalog

import (
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

var isTablesCols = []colSpec{
	{"table_catalog", storage.TypeString},
	{"table_schema", storage.TypeString},
	{"table_name", storage.TypeString},
	{"table_type", storage.TypeString},
}

// buildInfoTables is information_schema.tables, synthesized from the
// same catalog snapshot pg_class draws from (spec §4.7).
func buildInfoTables(snap Snapshot, database string) *storage.DataFrame {
	df := newFrame(isTablesCols)
	for _, t := range snap.Tables {
		if t.Database != database {
			continue
		}
		tableType := "BASE TABLE"
		if t.Relkind == "v" {
			tableType = "VIEW"
		}
		df.AppendRow(map[string]any{
			"table_catalog": database,
			"table_schema":  t.Schema,
			"table_name":    t.Name,
			"table_type":    tableType,
		})
	}
	return df
}

var isColumnsCols = []colSpec{
	{"table_catalog", storage.TypeString},
	{"table_schema", storage.TypeString},
	{"table_name", storage.TypeString},
	{"column_name", storage.TypeString},
	{"ordinal_position", storage.TypeInt64},
	{"data_type", storage.TypeString},
	{"is_nullable", storage.TypeString},
}

// buildInfoColumns is information_schema.columns.
func buildInfoColumns(snap Snapshot, database string) *storage.DataFrame {
	df := newFrame(isColumnsCols)
	for _, t := range snap.Tables {
		if t.Database != database {
			continue
		}
		for _, c := range t.Columns {
			if c.Name == "PRIMARY" {
				continue
			}
			nullable := "YES"
			for _, pk := range t.PK {
				if pk == c.Name {
					nullable = "NO"
				}
			}
			df.AppendRow(map[string]any{
				"table_catalog":    database,
				"table_schema":     t.Schema,
				"table_name":       t.Name,
				"column_name":      c.Name,
				"ordinal_position": int64(c.Ordinal),
				"data_type":        typeFor(c.Type).name,
				"is_nullable":      nullable,
			})
		}
	}
	return df
}

var isViewsCols = []colSpec{
	{"table_catalog", storage.TypeString},
	{"table_schema", storage.TypeString},
	{"table_name", storage.TypeString},
	{"view_definition", storage.TypeString},
}

// buildInfoViews is information_schema.views; its view_definition is
// populated only for cataloged view relations (clarium has no
// system-view equivalents to list, spec §4.7).
func buildInfoViews(snap Snapshot, database string, sc *sidecar.Registry) *storage.DataFrame {
	df := newFrame(isViewsCols)
	for _, t := range snap.Tables {
		if t.Database != database || t.Relkind != "v" {
			continue
		}
		query := ""
		if sc != nil {
			if v, err := sc.ReadView(database, t.Schema, t.Name); err == nil && v != nil {
				query = v.Query
			}
		}
		df.AppendRow(map[string]any{
			"table_catalog":   database,
			"table_schema":    t.Schema,
			"table_name":      t.Name,
			"view_definition": query,
		})
	}
	return df
}

var isSchemataCols = []colSpec{
	{"catalog_name", storage.TypeString},
	{"schema_name", storage.TypeString},
}

// buildInfoSchemata is information_schema.schemata: every distinct
// schema directory seen under database, plus the two synthesized
// catalog schemas.
func buildInfoSchemata(snap Snapshot, database string) *storage.DataFrame {
	seen := map[string]bool{"pg_catalog": true, "information_schema": true}
	df := newFrame(isSchemataCols)
	df.AppendRow(map[string]any{"catalog_name": database, "schema_name": "pg_catalog"})
	df.AppendRow(map[string]any{"catalog_name": database, "schema_name": "information_schema"})
	for _, t := range snap.Tables {
		if t.Database != database || seen[t.Schema] {
			continue
		}
		seen[t.Schema] = true
		df.AppendRow(map[string]any{"catalog_name": database, "schema_name": t.Schema})
	}
	return df
}
