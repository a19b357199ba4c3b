// Package sidecar implements clarium's non-relational object registry
// (spec §4.5): views, vector indexes, and graphs, each persisted as a
// small JSON sidecar file alongside a shared (database,schema) name
// registry that rejects collisions across object kinds. Grounded on
// richcatalog.go's JSON-model-plus-registry shape (see DESIGN.md).
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Registry roots every sidecar object under the same directory tree
// the storage engine uses, one level below each (database,schema).
type Registry struct {
	Root string
}

func NewRegistry(root string) *Registry { return &Registry{Root: root} }

func (r *Registry) schemaDir(db, schema string) string {
	return filepath.Join(r.Root, db, schema)
}

type objectIndex map[string]string

func (r *Registry) loadIndex(db, schema string) (objectIndex, error) {
	path := filepath.Join(r.schemaDir(db, schema), "_objects.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return objectIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sidecar: read object index: %w", err)
	}
	var idx objectIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("sidecar: decode object index: %w", err)
	}
	return idx, nil
}

func (r *Registry) saveIndex(db, schema string, idx objectIndex) error {
	dir := r.schemaDir(db, schema)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sidecar: create schema dir: %w", err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "_objects.json"), data, 0o644)
}

// Reserve claims name for kind within (db,schema). A name already held
// by a different kind (table, view, vector index, graph, KV store) is
// rejected (spec §4.5: one namespace per database/schema across object
// kinds).
func (r *Registry) Reserve(db, schema, name, kind string) error {
	idx, err := r.loadIndex(db, schema)
	if err != nil {
		return err
	}
	if existing, ok := idx[name]; ok && existing != kind {
		return fmt.Errorf("sidecar: name %q is already a %s", name, existing)
	}
	idx[name] = kind
	return r.saveIndex(db, schema, idx)
}

// Kind looks up what object kind currently owns name, if any.
func (r *Registry) Kind(db, schema, name string) (string, bool, error) {
	idx, err := r.loadIndex(db, schema)
	if err != nil {
		return "", false, err
	}
	k, ok := idx[name]
	return k, ok, nil
}

// Names returns the full name→kind map for (db,schema), letting
// callers (the system catalog, in particular) enumerate every sidecar
// object without knowing names in advance.
func (r *Registry) Names(db, schema string) (map[string]string, error) {
	idx, err := r.loadIndex(db, schema)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(idx))
	for k, v := range idx {
		out[k] = v
	}
	return out, nil
}

// View is the `.view` sidecar: a named, manually-refreshed query
// materialization (spec §4.5, §9 "View refresh: manual-only").
type View struct {
	Name    string            `json:"name"`
	Query   string            `json:"query"`
	Columns []string          `json:"columns"`
	Types   map[string]string `json:"types,omitempty"`
}

func viewPath(dir, name string) string { return filepath.Join(dir, "views", name+".view.json") }

func (r *Registry) WriteView(db, schema string, v View) error {
	dir := r.schemaDir(db, schema)
	if err := os.MkdirAll(filepath.Join(dir, "views"), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(viewPath(dir, v.Name), data, 0o644)
}

func (r *Registry) ReadView(db, schema, name string) (*View, error) {
	data, err := os.ReadFile(viewPath(r.schemaDir(db, schema), name))
	if err != nil {
		return nil, err
	}
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// VectorIndex is the `.vindex` sidecar (spec §4.5.3). Only the
// REBUILD_ONLY mode is guaranteed real work; other modes are accepted
// and stored but currently behave identically (spec §9 Open Question
// decision: always compute exact scores at read time).
type VectorIndex struct {
	Name   string `json:"name"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Metric string `json:"metric"`
	Dim    int    `json:"dim"`
	Mode   string `json:"mode"`

	// Status fields, populated by BUILD VECTOR INDEX (spec §4.5.2):
	// empty State means the index was registered by CREATE VECTOR INDEX
	// but never built.
	State        string `json:"state,omitempty"`
	RowsIndexed  int    `json:"rows_indexed,omitempty"`
	RowsSkipped  int    `json:"rows_skipped,omitempty"`
	Engine       string `json:"engine,omitempty"`
	BuildTimeMs  int64  `json:"build_time_ms,omitempty"`
}

func vindexPath(dir, name string) string { return filepath.Join(dir, "vindex", name+".vindex.json") }

func (r *Registry) WriteVectorIndex(db, schema string, vi VectorIndex) error {
	dir := r.schemaDir(db, schema)
	if err := os.MkdirAll(filepath.Join(dir, "vindex"), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(vi, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(vindexPath(dir, vi.Name), data, 0o644)
}

func (r *Registry) ReadVectorIndex(db, schema, name string) (*VectorIndex, error) {
	data, err := os.ReadFile(vindexPath(r.schemaDir(db, schema), name))
	if err != nil {
		return nil, err
	}
	var vi VectorIndex
	if err := json.Unmarshal(data, &vi); err != nil {
		return nil, err
	}
	return &vi, nil
}

// GraphNode/GraphEdge/Graph mirror the `.graph` sidecar shape (spec
// §4.5.4): a named collection of typed nodes and edges, each optionally
// backed by a base table + key column for `graph_neighbors`/
// `graph_paths` traversal.
type GraphNode struct {
	Label     string `json:"label"`
	Key       string `json:"key"`
	Table     string `json:"table,omitempty"`
	KeyColumn string `json:"key_column,omitempty"`
}

type GraphEdge struct {
	Type       string `json:"type"`
	From       string `json:"from"`
	To         string `json:"to"`
	Table      string `json:"table,omitempty"`
	SrcColumn  string `json:"src_column,omitempty"`
	DstColumn  string `json:"dst_column,omitempty"`
	CostColumn string `json:"cost_column,omitempty"`
	TimeColumn string `json:"time_column,omitempty"`
}

type Graph struct {
	Name  string      `json:"name"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func graphPath(dir, name string) string { return filepath.Join(dir, "graphs", name+".graph.json") }

func (r *Registry) WriteGraph(db, schema string, g Graph) error {
	dir := r.schemaDir(db, schema)
	if err := os.MkdirAll(filepath.Join(dir, "graphs"), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(graphPath(dir, g.Name), data, 0o644)
}

func (r *Registry) ReadGraph(db, schema, name string) (*Graph, error) {
	data, err := os.ReadFile(graphPath(r.schemaDir(db, schema), name))
	if err != nil {
		return nil, err
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
