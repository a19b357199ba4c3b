package syscatalog

import "clarium/internal/storage"

var pgNamespaceCols = []colSpec{
	{"oid", storage.TypeInt64},
	{"nspname", storage.TypeString},
}

// buildPgNamespace returns the three schemas clarium ever recognizes:
// its two synthesized catalog schemas plus "public" (spec §4.7
// pg_namespace).
func buildPgNamespace() *storage.DataFrame {
	df := newFrame(pgNamespaceCols)
	df.AppendRow(map[string]any{"oid": int64(OidNamespacePgCatalog), "nspname": "pg_catalog"})
	df.AppendRow(map[string]any{"oid": int64(OidNamespaceInformationSchema), "nspname": "information_schema"})
	df.AppendRow(map[string]any{"oid": int64(OidNamespacePublic), "nspname": "public"})
	return df
}

func namespaceOID(schema string) int64 {
	switch schema {
	case "pg_catalog":
		return int64(OidNamespacePgCatalog)
	case "information_schema":
		return int64(OidNamespaceInformationSchema)
	default:
		return int64(OidNamespacePublic)
	}
}
