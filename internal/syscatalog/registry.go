// Package syscatalog synthesizes the `pg_catalog`/`information_schema`
// compatibility surface (spec §4.7) by walking the storage root and
// the sidecar object registry rather than introspecting a live
// PostgreSQL connection. Grounded on pkg/richcatalog.go's
// Snapshot/Schema/Table/Column JSON model and its
// sync.RWMutex+checksum staleness pattern, adapted from "query
// pg_catalog over a *sql.DB" to "walk store.Root".
package syscatalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

// Column mirrors one pg_attribute-shaped row of a cataloged relation.
type Column struct {
	Name    string
	Ordinal int
	Type    storage.ColumnType
	NotNull bool
}

// Table is the in-memory model for one pg_class-visible relation:
// a base table, view, vector index, or graph (all surfaced as
// relkind-tagged rows per spec §4.7 pg_class).
type Table struct {
	Database string
	Schema   string
	Name     string
	Relkind  string // "r" table, "v" view/vector-index/graph
	OID      int32
	Columns  []Column
	PK       []string
}

// Snapshot is a point-in-time, JSON-serializable view of the catalog
// (richcatalog.go's Snapshot), used by the pg_class/pg_attribute/
// pg_constraint table builders below.
type Snapshot struct {
	Tables      []Table  `json:"-"`
	Databases   []string `json:"-"`
	Checksum    string   `json:"checksum"`
	GeneratedAt time.Time
}

// Registry is the catalog's root→snapshot cache: initialized once and
// refreshed on demand (spec §5 "System-catalog registry is
// initialized once and then read-only" — Refresh is the one mutating
// entry point, called explicitly rather than on a background timer).
type Registry struct {
	store   *storage.Store
	sidecar *sidecar.Registry
	log     *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewRegistry(store *storage.Store, sc *sidecar.Registry, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{store: store, sidecar: sc, log: log}
}

// Snapshot returns the last-built snapshot, building one lazily if
// none exists yet.
func (r *Registry) Snapshot() (Snapshot, error) {
	r.mu.RLock()
	if r.snap.Checksum != "" {
		s := r.snap
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()
	return r.Refresh()
}

// Refresh walks store.Root for every database/schema/table directory
// (a schema.json marks a table) and every sidecar view/vector-index/
// graph, rebuilding the snapshot if its content checksum changed.
func (r *Registry) Refresh() (Snapshot, error) {
	tables, databases, err := r.walkTables()
	if err != nil {
		return Snapshot{}, err
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Database != tables[j].Database {
			return tables[i].Database < tables[j].Database
		}
		if tables[i].Schema != tables[j].Schema {
			return tables[i].Schema < tables[j].Schema
		}
		return tables[i].Name < tables[j].Name
	})
	sort.Strings(databases)

	b, _ := json.Marshal(tables)
	sum := sha256.Sum256(b)
	checksum := hex.EncodeToString(sum[:])

	snap := Snapshot{Tables: tables, Databases: databases, Checksum: checksum, GeneratedAt: time.Now()}

	r.mu.Lock()
	changed := r.snap.Checksum != checksum
	r.snap = snap
	r.mu.Unlock()

	if changed {
		r.log.Debug("syscatalog refreshed", zap.Int("tables", len(tables)), zap.String("checksum", checksum))
	}
	return snap, nil
}

func (r *Registry) walkTables() ([]Table, []string, error) {
	var out []Table
	var databases []string

	dbEntries, err := os.ReadDir(r.store.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("syscatalog: read store root: %w", err)
	}

	for _, dbEnt := range dbEntries {
		if !dbEnt.IsDir() {
			continue
		}
		database := dbEnt.Name()
		databases = append(databases, database)
		schemaEntries, err := os.ReadDir(filepath.Join(r.store.Root, database))
		if err != nil {
			continue
		}
		for _, schemaEnt := range schemaEntries {
			if !schemaEnt.IsDir() {
				continue
			}
			schema := schemaEnt.Name()
			tableEntries, err := os.ReadDir(filepath.Join(r.store.Root, database, schema))
			if err != nil {
				continue
			}
			for _, tblEnt := range tableEntries {
				if !tblEnt.IsDir() {
					continue
				}
				name := tblEnt.Name()
				p := ident.Path{Database: database, Schema: schema, Table: name}
				if !r.store.TableExists(p) {
					continue
				}
				sc, err := r.store.LoadSchema(p)
				if err != nil {
					continue
				}
				out = append(out, tableFromSchema(database, schema, name, sc))
			}

			if r.sidecar != nil {
				out = append(out, r.sidecarTables(database, schema)...)
			}
		}
	}
	return out, databases, nil
}

func tableFromSchema(database, schema, name string, sc *storage.Schema) Table {
	t := Table{
		Database: database, Schema: schema, Name: name, Relkind: "r",
		OID: tableOID(database + "." + schema + "." + name), PK: sc.PrimaryKey,
	}
	for i, col := range sc.ColumnOrder {
		t.Columns = append(t.Columns, Column{Name: col, Ordinal: i + 1, Type: sc.Columns[col]})
	}
	if len(t.PK) == 0 && sc.Primary != "" {
		t.PK = []string{sc.Primary}
	}
	return t
}

func (r *Registry) sidecarTables(database, schema string) []Table {
	names, err := r.sidecar.Names(database, schema)
	if err != nil {
		return nil
	}
	var out []Table
	for name, kind := range names {
		switch kind {
		case "view":
			if v, err := r.sidecar.ReadView(database, schema, name); err == nil && v != nil {
				out = append(out, viewTable(database, schema, *v))
			}
		case "vector_index":
			if vi, err := r.sidecar.ReadVectorIndex(database, schema, name); err == nil && vi != nil {
				out = append(out, vectorIndexTable(database, schema, *vi))
			}
		case "graph":
			if g, err := r.sidecar.ReadGraph(database, schema, name); err == nil && g != nil {
				out = append(out, graphTable(database, schema, *g))
			}
		}
	}
	return out
}

func viewTable(database, schema string, v sidecar.View) Table {
	t := Table{
		Database: database, Schema: schema, Name: v.Name, Relkind: "v",
		OID: viewOID(database + "." + schema + "." + v.Name),
	}
	for i, c := range v.Columns {
		t.Columns = append(t.Columns, Column{Name: c, Ordinal: i + 1, Type: storage.TypeString})
	}
	return t
}

func vectorIndexTable(database, schema string, vi sidecar.VectorIndex) Table {
	return Table{
		Database: database, Schema: schema, Name: vi.Name, Relkind: "v",
		OID:     vectorIndexOID(database + "." + schema + "." + vi.Name),
		Columns: []Column{{Name: vi.Column, Ordinal: 1, Type: storage.TypeVector}},
	}
}

func graphTable(database, schema string, g sidecar.Graph) Table {
	return Table{
		Database: database, Schema: schema, Name: g.Name, Relkind: "v",
		OID:     graphOID(database + "." + schema + "." + g.Name),
		Columns: []Column{{Name: "label", Ordinal: 1, Type: storage.TypeString}, {Name: "key", Ordinal: 2, Type: storage.TypeString}},
	}
}
