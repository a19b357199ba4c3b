package sidecar

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"

	"clarium/internal/ident"
	"clarium/internal/storage"
)

// VectorMatch is one result of SearchVectorIndex.
type VectorMatch struct {
	RowID uint64
	Score float64
}

// rowID derives a stable identifier for a base-table row from its
// table path and ordinal position, since clarium rows have no
// dedicated surrogate key column (spec §4.5.3 row-id hashing).
func rowID(table string, ordinal int) uint64 {
	return xxh3.HashString(fmt.Sprintf("%s#%d", table, ordinal))
}

// SearchVectorIndex computes an exact top-k nearest-neighbor search
// over vi's indexed column, scoring every row against query with the
// configured metric (spec §9 Open Question decision: always compute
// exact scores rather than maintain an approximate structure).
func SearchVectorIndex(store *storage.Store, defaults ident.Defaults, vi *VectorIndex, query []float64, k int) ([]VectorMatch, error) {
	p := ident.Resolve(vi.Table, defaults)
	store.Lock()
	df, err := store.ReadDF(p)
	store.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sidecar: read vector index base table: %w", err)
	}
	if !df.HasColumn(vi.Column) {
		return nil, fmt.Errorf("sidecar: vector column %q not found on %s", vi.Column, vi.Table)
	}
	col := df.Column(vi.Column)

	h := &topKHeap{}
	heap.Init(h)
	for i, raw := range col {
		vec, ok := AsFloatVector(raw)
		if !ok || len(vec) != len(query) {
			continue
		}
		rankKey, trueScore := scoreVector(vi.Metric, query, vec)
		heap.Push(h, heapEntry{match: VectorMatch{RowID: rowID(vi.Table, i), Score: trueScore}, rankKey: rankKey})
		if h.Len() > k {
			heap.Pop(h)
		}
	}

	out := make([]VectorMatch, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(heapEntry).match
	}
	return out, nil
}

// AsFloatVector coerces a stored vector column value (either a native
// []float64 or the []any shape produced by JSON/Parquet round-tripping)
// to a plain []float64, reused by both search scoring and BUILD VECTOR
// INDEX's dimensionality check.
func AsFloatVector(v any) ([]float64, bool) {
	switch t := v.(type) {
	case []float64:
		return t, true
	case []any:
		out := make([]float64, len(t))
		for i, e := range t {
			out[i] = toFloatVal(e)
		}
		return out, true
	default:
		return nil, false
	}
}

// scoreVector returns both a ranking key and the true score to report
// back to the caller. The ranking key is HIGHER-is-always-better so
// the bounded min-heap can evict uniformly regardless of metric: l2
// distance is negated for ranking, ip and cosine rank directly on
// their natural similarity value. The true score is always the
// metric's real value — for l2 that means the actual distance, not
// the negated ranking key (spec §4.5.2: "for L2 the score returned is
// the true distance").
func scoreVector(metric string, a, b []float64) (rankKey, trueScore float64) {
	switch metric {
	case "ip":
		v := dot(a, b)
		return v, v
	case "cosine":
		na, nb := norm(a), norm(b)
		if na == 0 || nb == 0 {
			return 0, 0
		}
		v := dot(a, b) / (na * nb)
		return v, v
	default: // l2
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		dist := math.Sqrt(sum)
		return -dist, dist
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 { return math.Sqrt(dot(a, a)) }

// heapEntry pairs a reportable VectorMatch with the HIGHER-is-better
// rankKey used purely for heap ordering, since VectorMatch.Score itself
// is metric-true (not always higher-is-better) and can't drive the
// comparator directly.
type heapEntry struct {
	match   VectorMatch
	rankKey float64
}

// topKHeap is a min-heap on rankKey, so popping the smallest lets the
// caller evict the worst match once the heap exceeds k (spec §4.5.3
// "bounded min-heap top-k search").
type topKHeap []heapEntry

func (h topKHeap) Len() int           { return len(h) }
func (h topKHeap) Less(i, j int) bool { return h[i].rankKey < h[j].rankKey }
func (h topKHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x any)        { *h = append(*h, x.(heapEntry)) }
func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
