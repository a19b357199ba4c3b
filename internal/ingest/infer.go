// Package ingest implements clarium's row-ingestion pipeline: schema
// inference and widening, time-series chunk overlap resolution,
// primary-key enforcement, and INSERT ... SELECT alignment (spec §4.3).
package ingest

import (
	"strconv"

	"clarium/internal/storage"
)

// InferColumnTypes scans a batch of raw rows (as produced by the SQL
// value-literal or SELECT-materialization path, before any storage
// type has been assigned) and infers one ColumnType per column, per
// spec §4.3: any non-numeric string observed => String; else any
// non-integer number => Float64; else any integer => Int64; an
// entirely empty/all-null column defaults to Float64.
func InferColumnTypes(rows []map[string]any, cols []string) map[string]storage.ColumnType {
	out := make(map[string]storage.ColumnType, len(cols))
	for _, c := range cols {
		out[c] = inferOne(rows, c)
	}
	return out
}

func inferOne(rows []map[string]any, col string) storage.ColumnType {
	sawFloat := false
	sawInt := false
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if _, err := strconv.ParseInt(t, 10, 64); err == nil {
				sawInt = true
				continue
			}
			if _, err := strconv.ParseFloat(t, 64); err == nil {
				sawFloat = true
				continue
			}
			return storage.TypeString
		case int64, int:
			sawInt = true
		case float64, float32:
			if isIntegral(v) {
				sawInt = true
			} else {
				sawFloat = true
			}
		case bool:
			sawInt = true
		case []any, []float64, []int64, []string:
			return storage.TypeList
		default:
			return storage.TypeString
		}
	}
	switch {
	case sawFloat:
		return storage.TypeFloat64
	case sawInt:
		return storage.TypeInt64
	default:
		return storage.TypeFloat64
	}
}

func isIntegral(v any) bool {
	switch t := v.(type) {
	case float64:
		return t == float64(int64(t))
	case float32:
		return t == float32(int64(t))
	default:
		return false
	}
}

// MergeTypes combines freshly-inferred column types with a table's
// already-declared types using the widening lattice, leaving locked
// columns untouched (spec §4.3 "merge with existing schema").
func MergeTypes(sc *storage.Schema, inferred map[string]storage.ColumnType) map[string]storage.ColumnType {
	out := make(map[string]storage.ColumnType, len(inferred))
	for col, t := range inferred {
		if existing, ok := sc.Columns[col]; ok {
			if sc.IsLocked(col) {
				out[col] = existing
			} else {
				out[col] = storage.Widen(existing, t)
			}
		} else {
			out[col] = t
		}
	}
	return out
}
