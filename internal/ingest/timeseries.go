package ingest

import (
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/storage"
)

// ingestTimeSeries implements spec §4.3's time-series chunk overlap
// resolution: compute [new_min,new_max], find existing chunks whose
// range intersects it, and if any do, merge last-writer-wins (by
// `_time`) before replacing them with one new chunk. If none overlap,
// the batch becomes its own new chunk.
func ingestTimeSeries(store *storage.Store, p ident.Path, newDF *storage.DataFrame) error {
	if !newDF.HasColumn("_time") {
		return newCodedError("user_input", "time-series insert must yield a _time column")
	}
	newDF.SortByInt64Column("_time")

	timeCol := newDF.Column("_time")
	newMin, newMax := storage.AsInt64(timeCol[0]), storage.AsInt64(timeCol[0])
	newTimes := make(map[int64]bool, len(timeCol))
	for _, v := range timeCol {
		t := storage.AsInt64(v)
		newTimes[t] = true
		if t < newMin {
			newMin = t
		}
		if t > newMax {
			newMax = t
		}
	}

	chunks, err := store.ListTimeChunks(p)
	if err != nil {
		return fmt.Errorf("ingest: list time chunks: %w", err)
	}

	var overlapping []storage.TimeChunkRef
	for _, c := range chunks {
		if c.MaxTime < newMin || c.MinTime > newMax {
			continue
		}
		overlapping = append(overlapping, c)
	}

	if len(overlapping) == 0 {
		return store.WriteChunk(p, newDF)
	}

	var merged *storage.DataFrame
	var stalePaths []string
	for _, c := range overlapping {
		stalePaths = append(stalePaths, c.Path)
		chunkDF, err := store.ReadChunkFile(p, c.Path)
		if err != nil {
			return fmt.Errorf("ingest: read overlapping chunk %s: %w", c.Path, err)
		}
		survivors := dropTimes(chunkDF, newTimes)
		if merged == nil {
			merged = survivors
		} else {
			merged = storage.Concat([]*storage.DataFrame{merged, survivors})
		}
	}
	merged = storage.Concat([]*storage.DataFrame{merged, newDF})
	merged.SortByInt64Column("_time")

	if err := store.DeleteChunkFiles(stalePaths); err != nil {
		return fmt.Errorf("ingest: delete superseded chunks: %w", err)
	}
	if err := store.WriteMergedTimeChunk(p, merged); err != nil {
		return fmt.Errorf("ingest: write merged time chunk: %w", err)
	}
	return nil
}

// dropTimes removes every row whose `_time` value is present in drop,
// implementing the overlap-merge's last-writer-wins rule (rows in the
// new batch always win over rows from an existing chunk sharing the
// same `_time`).
func dropTimes(df *storage.DataFrame, drop map[int64]bool) *storage.DataFrame {
	out := storage.NewDataFrame(df.Names(), df.TypesMap())
	timeCol := df.Column("_time")
	for i := 0; i < df.Height(); i++ {
		if drop[storage.AsInt64(timeCol[i])] {
			continue
		}
		out.AppendRow(df.Row(i))
	}
	return out
}
