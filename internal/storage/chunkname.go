package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Chunk filenames encode enough metadata to prune without opening the
// file. Regular tables: "data.parquet" (unpartitioned, full rewrite),
// "data-<seq>.parquet" (append-only incremental chunk), or
// "data-<sanitized-key>.parquet" (one file per partition value).
// Time tables: "chunk-<min>-<max>-<now_ms>.parquet", min/max being the
// `_time` range of the rows inside (spec §4.2).
const (
	timeChunkPrefix = "chunk-"
	dataFilePrefix  = "data"
	chunkExt        = ".parquet"
)

var partitionKeySanitizer = regexp.MustCompile(`[^A-Za-z0-9_=-]`)

// sanitizePartitionKey replaces any character outside [A-Za-z0-9_=-]
// with '-', per spec §4.2 rewrite_table_df partition filenames.
func sanitizePartitionKey(key string) string {
	return partitionKeySanitizer.ReplaceAllString(key, "-")
}

func singleDataFileName() string { return dataFilePrefix + chunkExt }

func partitionFileName(key string) string {
	return dataFilePrefix + "-" + sanitizePartitionKey(key) + chunkExt
}

func incrementalDataFileName(seq int) string {
	return fmt.Sprintf("%s-%06d%s", dataFilePrefix, seq, chunkExt)
}

func timeChunkFileName(minT, maxT, nowMs int64) string {
	return fmt.Sprintf("%s%020d-%020d-%020d%s", timeChunkPrefix, minT, maxT, nowMs, chunkExt)
}

type chunkFile struct {
	path    string
	minTime int64
	maxTime int64
	isTime  bool
}

// listChunks enumerates a table directory's *.parquet files. Ordering
// is by `_time` range for time tables, by filename otherwise (natural
// order per spec read_df).
func listChunks(tableDir string, isTime bool) ([]chunkFile, error) {
	entries, err := os.ReadDir(tableDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list chunks in %s: %w", tableDir, err)
	}
	var chunks []chunkFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, chunkExt) {
			continue
		}
		if strings.HasPrefix(name, timeChunkPrefix) {
			body := strings.TrimSuffix(strings.TrimPrefix(name, timeChunkPrefix), chunkExt)
			parts := strings.SplitN(body, "-", 3)
			if len(parts) != 3 {
				continue
			}
			minT, err1 := strconv.ParseInt(parts[0], 10, 64)
			maxT, err2 := strconv.ParseInt(parts[1], 10, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			chunks = append(chunks, chunkFile{path: filepath.Join(tableDir, name), minTime: minT, maxTime: maxT, isTime: true})
		} else if strings.HasPrefix(name, dataFilePrefix) {
			chunks = append(chunks, chunkFile{path: filepath.Join(tableDir, name)})
		}
	}
	if isTime {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].minTime < chunks[j].minTime })
	} else {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].path < chunks[j].path })
	}
	return chunks, nil
}

// overlaps reports whether the chunk's time range intersects [lo, hi]
// (either bound may be nil, meaning unbounded).
func (c chunkFile) overlaps(lo, hi *int64) bool {
	if lo != nil && c.maxTime < *lo {
		return false
	}
	if hi != nil && c.minTime > *hi {
		return false
	}
	return true
}

func nextIncrementalSeq(chunks []chunkFile) int {
	max := -1
	for _, c := range chunks {
		name := filepath.Base(c.path)
		body := strings.TrimSuffix(strings.TrimPrefix(name, dataFilePrefix+"-"), chunkExt)
		if n, err := strconv.Atoi(body); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}
