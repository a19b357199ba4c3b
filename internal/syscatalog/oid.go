package syscatalog

import "github.com/zeebo/xxh3"

// Fixed pg_namespace OIDs, matching the values a real PostgreSQL
// cluster assigns to its three bootstrap schemas (spec §4.7).
const (
	OidNamespacePgCatalog        int32 = 11
	OidNamespaceInformationSchema int32 = 13211
	OidNamespacePublic           int32 = 2200
)

// OID ranges keep every synthesized relation kind disjoint, so a
// pg_class scan never collides a table OID with a view/index/graph OID
// even though both are derived from the same hash (spec §3.4
// __clarium_oids__ "disjoint integer ranges per kind").
const (
	rangeTable       = 16384
	rangeView        = 18000
	rangeVectorIndex = 22000
	rangeGraph       = 23000
	rangeSpan        = 1000 // width reserved per kind before the next range starts
)

func hashOID(base int32, key string) int32 {
	h := xxh3.HashString(key)
	return base + int32(h%uint64(rangeSpan))
}

func tableOID(key string) int32       { return hashOID(rangeTable, key) }
func viewOID(key string) int32        { return hashOID(rangeView, key) }
func vectorIndexOID(key string) int32 { return hashOID(rangeVectorIndex, key) }
func graphOID(key string) int32       { return hashOID(rangeGraph, key) }

// databaseOID derives a pg_database OID from the database name (spec
// §4.7 pg_database: "xxh3_64("db:<name>") % 1_000_000 + 20000").
func databaseOID(name string) int32 {
	h := xxh3.HashString("db:" + name)
	return int32(h%1_000_000) + 20000
}
