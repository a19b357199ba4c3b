package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clarium/internal/ident"
)

// Store is the on-disk root for every clarium database/schema/table
// directory. SharedStore is the single process-wide instance every
// executor shares; callers take Lock()/Unlock() for the minimum window
// needed (e.g. read a DataFrame, then release before computing) and
// never hold it across I/O or expensive work (spec §5 concurrency
// model: "the Store handle is wrapped in a single process-wide mutex").
type Store struct {
	Root string
	mu   sync.Mutex
}

// NewStore roots a Store at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %s: %w", dir, err)
	}
	return &Store{Root: dir}, nil
}

// SharedStore is wired in by cmd/clariumd at startup and referenced by
// every query executor.
var SharedStore *Store

func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

func (s *Store) tableDir(p ident.Path) string {
	return filepath.Join(s.Root, p.Database, p.Schema, p.Table)
}

// TableExists reports whether a table directory has a schema.json.
func (s *Store) TableExists(p ident.Path) bool {
	_, err := os.Stat(schemaPath(s.tableDir(p)))
	return err == nil
}

// CreateTable creates the table directory and an initial empty
// schema.json (spec create_table).
func (s *Store) CreateTable(p ident.Path) error {
	dir := s.tableDir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create table dir %s: %w", dir, err)
	}
	tt := TableTypeRegular
	if p.IsTime {
		tt = TableTypeTime
	}
	sc := &Schema{TableType: tt, Columns: map[string]ColumnType{}}
	return saveSchema(dir, sc)
}

// DeleteTable recursively removes a table's directory (spec
// delete_table).
func (s *Store) DeleteTable(p ident.Path) error {
	if err := os.RemoveAll(s.tableDir(p)); err != nil {
		return fmt.Errorf("storage: delete table %s: %w", p.String(), err)
	}
	return nil
}

// RenameTable moves a table's directory to a new path, creating the
// destination's parent directories as needed (spec rename_table).
func (s *Store) RenameTable(from, to ident.Path) error {
	dst := s.tableDir(to)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("storage: create rename target parent: %w", err)
	}
	if err := os.Rename(s.tableDir(from), dst); err != nil {
		return fmt.Errorf("storage: rename table %s to %s: %w", from.String(), to.String(), err)
	}
	return nil
}

// LoadSchema reads (and migrates, if legacy-flat) a table's schema.json.
func (s *Store) LoadSchema(p ident.Path) (*Schema, error) {
	return loadSchema(s.tableDir(p))
}

// SaveSchema persists a table's schema.json.
func (s *Store) SaveSchema(p ident.Path, sc *Schema) error {
	return saveSchema(s.tableDir(p), sc)
}

func appendUnique(ss []string, v string) []string {
	for _, x := range ss {
		if x == v {
			return ss
		}
	}
	return append(ss, v)
}

// SchemaAdd inserts columns and locks them against future widening
// (spec schema_add).
func (s *Store) SchemaAdd(p ident.Path, cols []string, types []ColumnType) error {
	sc, err := s.LoadSchema(p)
	if err != nil {
		return err
	}
	for i, c := range cols {
		if _, ok := sc.Columns[c]; !ok {
			sc.Columns[c] = types[i]
			sc.ColumnOrder = append(sc.ColumnOrder, c)
		}
		sc.Locks = appendUnique(sc.Locks, c)
	}
	return s.SaveSchema(p, sc)
}

// ReadDF concatenates all chunk files in natural order; if there are
// none, returns an empty frame shaped by schema.json (spec read_df).
func (s *Store) ReadDF(p ident.Path) (*DataFrame, error) {
	dir := s.tableDir(p)
	sc, err := s.LoadSchema(p)
	if err != nil {
		return nil, err
	}
	chunks, err := listChunks(dir, sc.IsTimeSeries())
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return NewDataFrame(sc.ColumnOrder, sc.Columns), nil
	}
	frames := make([]*DataFrame, len(chunks))
	for i, c := range chunks {
		df, err := readChunk(c.path, sc)
		if err != nil {
			return nil, err
		}
		frames[i] = df
	}
	out := Concat(frames)
	if sc.IsTimeSeries() && out.HasColumn("_time") {
		out.SortByInt64Column("_time")
	}
	return out, nil
}

// FilterDF prunes chunk files by parsing [min,max] from the filename,
// applies the time predicate row-wise within surviving chunks, and
// aligns the result to cols, filling absent columns with null (spec
// filter_df).
func (s *Store) FilterDF(p ident.Path, cols []string, minTime, maxTime *int64) (*DataFrame, error) {
	dir := s.tableDir(p)
	sc, err := s.LoadSchema(p)
	if err != nil {
		return nil, err
	}
	chunks, err := listChunks(dir, sc.IsTimeSeries())
	if err != nil {
		return nil, err
	}

	var frames []*DataFrame
	for _, c := range chunks {
		if sc.IsTimeSeries() && !c.overlaps(minTime, maxTime) {
			continue
		}
		df, err := readChunk(c.path, sc)
		if err != nil {
			return nil, err
		}
		if sc.IsTimeSeries() && (minTime != nil || maxTime != nil) {
			df = filterByTime(df, minTime, maxTime)
		}
		frames = append(frames, df)
	}
	merged := Concat(frames)
	if merged.Names() == nil {
		merged = NewDataFrame(sc.ColumnOrder, sc.Columns)
	}
	if len(cols) == 0 {
		cols = sc.ColumnOrder
	}
	return merged.Select(cols), nil
}

func filterByTime(df *DataFrame, lo, hi *int64) *DataFrame {
	out := NewDataFrame(df.Names(), typesOf(df))
	timeCol := df.Column("_time")
	for i := 0; i < df.Height(); i++ {
		t := asInt64(timeCol[i])
		if lo != nil && t < *lo {
			continue
		}
		if hi != nil && t > *hi {
			continue
		}
		out.AppendRow(df.Row(i))
	}
	return out
}

func typesOf(df *DataFrame) map[string]ColumnType {
	out := map[string]ColumnType{}
	for _, n := range df.Names() {
		t, _ := df.Type(n)
		out[n] = t
	}
	return out
}

// RewriteTableDF replaces all of a table's data files, branching on
// schema shape (spec rewrite_table_df): time tables get a single chunk
// named with [min,max,now_ms]; partitioned regular tables get one file
// per partition key; unpartitioned regular tables get a single
// data.parquet. Stale chunks are removed before the new ones are
// written (not cross-process atomic, but each output file is written
// whole via a fresh os.Create, matching "atomically-per-file").
func (s *Store) RewriteTableDF(p ident.Path, df *DataFrame) error {
	dir := s.tableDir(p)
	sc, err := s.LoadSchema(p)
	if err != nil {
		return err
	}
	MergeSchemaColumns(sc, df)

	old, err := listChunks(dir, sc.IsTimeSeries())
	if err != nil {
		return err
	}
	for _, c := range old {
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage: remove stale chunk %s: %w", c.path, err)
		}
	}

	switch {
	case sc.IsTimeSeries():
		if err := writeTimeChunk(dir, sc, df); err != nil {
			return err
		}
	case len(sc.Partitions) > 0:
		if err := writePartitionedChunks(dir, sc, df); err != nil {
			return err
		}
	default:
		if err := writeChunk(filepath.Join(dir, singleDataFileName()), sc, df); err != nil {
			return err
		}
	}
	return s.SaveSchema(p, sc)
}

func writeTimeChunk(dir string, sc *Schema, df *DataFrame) error {
	if df.Height() == 0 {
		return nil
	}
	if !df.HasColumn("_time") {
		return fmt.Errorf("storage: time table write missing _time column")
	}
	col := df.Column("_time")
	minT, maxT := asInt64(col[0]), asInt64(col[0])
	for _, v := range col {
		t := asInt64(v)
		if t < minT {
			minT = t
		}
		if t > maxT {
			maxT = t
		}
	}
	name := timeChunkFileName(minT, maxT, time.Now().UnixMilli())
	return writeChunk(filepath.Join(dir, name), sc, df)
}

func writePartitionedChunks(dir string, sc *Schema, df *DataFrame) error {
	groups := map[string][]int{}
	var order []string
	for i := 0; i < df.Height(); i++ {
		key := partitionKeyForRow(df, sc.Partitions, i)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	for _, key := range order {
		part := NewDataFrame(df.Names(), typesOf(df))
		for _, idx := range groups[key] {
			part.AppendRow(df.Row(idx))
		}
		if err := writeChunk(filepath.Join(dir, partitionFileName(key)), sc, part); err != nil {
			return err
		}
	}
	return nil
}

func partitionKeyForRow(df *DataFrame, partitionCols []string, row int) string {
	parts := make([]string, len(partitionCols))
	for i, c := range partitionCols {
		var v any
		if df.HasColumn(c) {
			v = df.Column(c)[row]
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "_")
}

// WriteIncrementalChunk appends a new chunk file without touching any
// existing chunk, for append-only ingestion into an unpartitioned
// regular table (spec §4.3: "callers may instead write a single new
// data-…parquet chunk").
func (s *Store) WriteIncrementalChunk(p ident.Path, df *DataFrame) error {
	dir := s.tableDir(p)
	sc, err := s.LoadSchema(p)
	if err != nil {
		return err
	}
	MergeSchemaColumns(sc, df)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create table dir %s: %w", dir, err)
	}
	chunks, err := listChunks(dir, false)
	if err != nil {
		return err
	}
	seq := nextIncrementalSeq(chunks)
	if err := writeChunk(filepath.Join(dir, incrementalDataFileName(seq)), sc, df); err != nil {
		return err
	}
	return s.SaveSchema(p, sc)
}

// WriteChunk writes df as a brand-new chunk without touching any
// existing chunk: a fresh [min,max,now_ms] file for time tables (used
// when a new batch's range doesn't overlap any existing chunk), or an
// incremental data-<seq>.parquet file for regular tables.
func (s *Store) WriteChunk(p ident.Path, df *DataFrame) error {
	sc, err := s.LoadSchema(p)
	if err != nil {
		return err
	}
	if sc.IsTimeSeries() {
		return s.WriteMergedTimeChunk(p, df)
	}
	return s.WriteIncrementalChunk(p, df)
}

// TimeChunkRef exposes one time-series chunk's path and `_time` range
// to the ingest engine's overlap-merge algorithm (spec §4.3).
type TimeChunkRef struct {
	Path    string
	MinTime int64
	MaxTime int64
}

// ListTimeChunks returns a time table's chunks ordered by MinTime.
func (s *Store) ListTimeChunks(p ident.Path) ([]TimeChunkRef, error) {
	chunks, err := listChunks(s.tableDir(p), true)
	if err != nil {
		return nil, err
	}
	out := make([]TimeChunkRef, len(chunks))
	for i, c := range chunks {
		out[i] = TimeChunkRef{Path: c.path, MinTime: c.minTime, MaxTime: c.maxTime}
	}
	return out, nil
}

// ReadChunkFile reads one chunk file shaped by the table's current
// schema.
func (s *Store) ReadChunkFile(p ident.Path, path string) (*DataFrame, error) {
	sc, err := s.LoadSchema(p)
	if err != nil {
		return nil, err
	}
	return readChunk(path, sc)
}

// DeleteChunkFiles removes superseded chunk files once their rows have
// been folded into a replacement chunk.
func (s *Store) DeleteChunkFiles(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage: remove chunk %s: %w", p, err)
		}
	}
	return nil
}

// WriteMergedTimeChunk writes a replacement chunk for the ingest
// engine's overlap-merge path. Callers must delete the superseded
// chunks (via DeleteChunkFiles) themselves; this only writes.
func (s *Store) WriteMergedTimeChunk(p ident.Path, df *DataFrame) error {
	dir := s.tableDir(p)
	sc, err := s.LoadSchema(p)
	if err != nil {
		return err
	}
	MergeSchemaColumns(sc, df)
	if err := writeTimeChunk(dir, sc, df); err != nil {
		return err
	}
	return s.SaveSchema(p, sc)
}
