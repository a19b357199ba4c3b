package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// buildParquetSchema derives a parquet.Schema from a clarium Schema,
// in declared column order. Every column is optional so that partial
// / widened rows (spec §4.2 dtype widening, §4.3 null-fill) round-trip
// without special-casing at the chunk level. List-like columns become
// repeated leaf nodes.
func buildParquetSchema(s *Schema) *parquet.Schema {
	group := parquet.Group{}
	for _, name := range s.ColumnOrder {
		group[name] = parquetNodeFor(s.Columns[name])
	}
	return parquet.NewSchema("clarium_chunk", group)
}

func parquetNodeFor(t ColumnType) parquet.Node {
	switch t {
	case TypeInt64:
		return parquet.Optional(parquet.Int(64))
	case TypeFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case TypeBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case TypeVector, TypeList:
		return parquet.Optional(parquet.Repeated(parquet.Leaf(parquet.DoubleType)))
	case TypeInt64List:
		return parquet.Optional(parquet.Repeated(parquet.Int(64)))
	case TypeStringList:
		return parquet.Optional(parquet.Repeated(parquet.String()))
	default: // TypeString and anything unrecognized
		return parquet.Optional(parquet.String())
	}
}

// writeChunk writes df to a single Parquet chunk file at path, with
// page-level statistics enabled (spec §3.3: "standard Parquet with
// statistics enabled", grounds time-range pruning on chunk filenames
// plus min/max stats for future predicate pushdown).
func writeChunk(path string, schema *Schema, df *DataFrame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create chunk %s: %w", path, err)
	}
	defer f.Close()

	pqSchema := buildParquetSchema(schema)
	w := parquet.NewWriter(f, pqSchema, parquet.DataPageStatistics(true))

	for i := 0; i < df.Height(); i++ {
		row := make(map[string]any, len(schema.ColumnOrder))
		for _, name := range schema.ColumnOrder {
			v := rowValue(df, name, i)
			if v != nil {
				row[name] = v
			}
		}
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("storage: write row %d to %s: %w", i, path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: close chunk %s: %w", path, err)
	}
	return nil
}

func rowValue(df *DataFrame, name string, i int) any {
	if !df.HasColumn(name) {
		return nil
	}
	col := df.Column(name)
	if i >= len(col) {
		return nil
	}
	return col[i]
}

// readChunk reads an entire Parquet chunk back into a DataFrame shaped
// by schema's declared columns.
func readChunk(path string, schema *Schema) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open chunk %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: stat chunk %s: %w", path, err)
	}

	pqSchema := buildParquetSchema(schema)
	r := parquet.NewReader(f, pqSchema)
	defer r.Close()

	df := NewDataFrame(schema.ColumnOrder, schema.Columns)
	for {
		row := make(map[string]any, len(schema.ColumnOrder))
		err := r.Read(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: read chunk %s (%d bytes): %w", path, info.Size(), err)
		}
		df.AppendRow(row)
	}
	return df, nil
}
