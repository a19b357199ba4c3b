package ingest

import (
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/storage"
)

// enforcePrimaryKey implements spec §4.3's PK-enforcement algorithm for
// regular tables: compute each new row's canonical key, reject on an
// intra-batch collision or a null PK column, then read the existing
// table and reject on a collision against stored rows.
func enforcePrimaryKey(store *storage.Store, p ident.Path, pk []string, df *storage.DataFrame) error {
	if len(pk) == 0 {
		return nil
	}

	seen := make(map[string]bool, df.Height())
	for i := 0; i < df.Height(); i++ {
		vals := make([]any, len(pk))
		for j, col := range pk {
			if !df.HasColumn(col) {
				return newCodedError("primary_key_violation", fmt.Sprintf("PRIMARY KEY violation: column %q missing from insert", col))
			}
			vals[j] = df.Column(col)[i]
			if vals[j] == nil {
				return newCodedError("primary_key_violation", fmt.Sprintf("PRIMARY KEY violation: null value in key column %q", col))
			}
		}
		key := ident.CanonicalKey(pk, vals)
		if seen[key] {
			return newCodedError("primary_key_violation", fmt.Sprintf("PRIMARY KEY violation: duplicate key %q within batch", key))
		}
		seen[key] = true
	}

	existing, err := store.ReadDF(p)
	if err != nil {
		return fmt.Errorf("ingest: read existing table for PK check: %w", err)
	}
	for i := 0; i < existing.Height(); i++ {
		vals := make([]any, len(pk))
		allPresent := true
		for j, col := range pk {
			if !existing.HasColumn(col) {
				allPresent = false
				break
			}
			vals[j] = existing.Column(col)[i]
		}
		if !allPresent {
			continue
		}
		key := ident.CanonicalKey(pk, vals)
		if seen[key] {
			return newCodedError("primary_key_violation", fmt.Sprintf("PRIMARY KEY violation: duplicate key %q", key))
		}
	}
	return nil
}
