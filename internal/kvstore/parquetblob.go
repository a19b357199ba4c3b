package kvstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"clarium/internal/ingest"
	"clarium/internal/storage"
)

// parquetNodeFor mirrors internal/storage's column-type-to-parquet-node
// mapping (parquetio.go); kept as a small local copy since the KV store
// externalizes arbitrary row sets that never pass through a Store's own
// table schema.
func parquetNodeFor(t storage.ColumnType) parquet.Node {
	switch t {
	case storage.TypeInt64:
		return parquet.Optional(parquet.Int(64))
	case storage.TypeFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case storage.TypeBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// writeParquetBlob externalizes a ParquetDf value's rows under
// <dir>/parquet/<sanitized-key>.parquet and returns the snapshot-
// relative path (spec §3.5, §4.6 "Parquet blob sidecars").
func writeParquetBlob(dir, key string, cols []string, rows []map[string]any) (string, error) {
	parqDir := filepath.Join(dir, "parquet")
	if err := os.MkdirAll(parqDir, 0o755); err != nil {
		return "", fmt.Errorf("kvstore: create parquet dir: %w", err)
	}
	relPath := filepath.Join("parquet", sanitizeKey(key)+".parquet")

	types := ingest.InferColumnTypes(rows, cols)
	group := parquet.Group{}
	for _, c := range cols {
		group[c] = parquetNodeFor(types[c])
	}
	schema := parquet.NewSchema("clarium_kv_blob", group)

	f, err := os.Create(filepath.Join(dir, relPath))
	if err != nil {
		return "", fmt.Errorf("kvstore: create parquet blob: %w", err)
	}
	defer f.Close()

	w := parquet.NewWriter(f, schema)
	for _, row := range rows {
		if _, err := w.Write(row); err != nil {
			return "", fmt.Errorf("kvstore: write parquet blob row: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("kvstore: close parquet blob: %w", err)
	}
	return relPath, nil
}

// readParquetBlob reads a ParquetDf value back from its externalized
// file, inferring its column order from the file's own schema.
func readParquetBlob(dir, relPath string) ([]string, []map[string]any, error) {
	f, err := os.Open(filepath.Join(dir, relPath))
	if err != nil {
		return nil, nil, fmt.Errorf("kvstore: open parquet blob: %w", err)
	}
	defer f.Close()

	r := parquet.NewReader(f)
	defer r.Close()

	var cols []string
	for _, f := range r.Schema().Fields() {
		cols = append(cols, f.Name())
	}

	var rows []map[string]any
	for {
		row := make(map[string]any, len(cols))
		err := r.Read(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("kvstore: read parquet blob row: %w", err)
		}
		rows = append(rows, row)
	}
	return cols, rows, nil
}
