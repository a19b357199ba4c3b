package sidecar

import (
	"container/heap"
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/storage"
)

// Neighbor is one hop result from GraphNeighbors.
type Neighbor struct {
	NodeKey  string
	EdgeType string
	Hops     int
}

// GraphNeighbors performs a breadth-first traversal from startKey out
// to maxHops, following every edge type defined on g whose `From`
// literal matches (for inline graphs) or whose source table join
// resolves to startKey (for table-backed edges). Table-backed edges
// read their source/destination table once per call via store (spec
// §4.5.4 `graph_neighbors`).
func GraphNeighbors(store *storage.Store, defaults ident.Defaults, g *Graph, startKey string, maxHops int) ([]Neighbor, error) {
	adj, err := buildAdjacency(store, defaults, g)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{startKey: true}
	type frontierItem struct {
		key  string
		hops int
	}
	queue := []frontierItem{{startKey, 0}}
	var out []Neighbor

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hops >= maxHops {
			continue
		}
		for _, e := range adj[cur.key] {
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			out = append(out, Neighbor{NodeKey: e.to, EdgeType: e.edgeType, Hops: cur.hops + 1})
			queue = append(queue, frontierItem{e.to, cur.hops + 1})
		}
	}
	return out, nil
}

type adjEdge struct {
	to       string
	edgeType string
	cost     float64
}

// buildAdjacency materializes an adjacency list for every edge
// definition on g: inline edges contribute one fixed arc; table-backed
// edges contribute one arc per row of their backing table.
func buildAdjacency(store *storage.Store, defaults ident.Defaults, g *Graph) (map[string][]adjEdge, error) {
	adj := map[string][]adjEdge{}
	for _, e := range g.Edges {
		if e.Table == "" {
			adj[e.From] = append(adj[e.From], adjEdge{to: e.To, edgeType: e.Type, cost: 1})
			continue
		}
		p := ident.Resolve(e.Table, defaults)
		store.Lock()
		df, err := store.ReadDF(p)
		store.Unlock()
		if err != nil {
			return nil, fmt.Errorf("sidecar: read edge table %s: %w", e.Table, err)
		}
		if !df.HasColumn(e.SrcColumn) || !df.HasColumn(e.DstColumn) {
			continue
		}
		srcCol := df.Column(e.SrcColumn)
		dstCol := df.Column(e.DstColumn)
		var costCol []any
		if e.CostColumn != "" && df.HasColumn(e.CostColumn) {
			costCol = df.Column(e.CostColumn)
		}
		for i := 0; i < df.Height(); i++ {
			from := fmt.Sprintf("%v", srcCol[i])
			to := fmt.Sprintf("%v", dstCol[i])
			cost := 1.0
			if costCol != nil {
				cost = toFloatVal(costCol[i])
			}
			adj[from] = append(adj[from], adjEdge{to: to, edgeType: e.Type, cost: cost})
		}
	}
	return adj, nil
}

func toFloatVal(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 1
	}
}

// PathHop is one step of a shortest path returned by GraphPaths.
type PathHop struct {
	NodeKey  string
	EdgeType string
	Cost     float64
}

type pqItem struct {
	key  string
	dist float64
	path []PathHop
}

type pathQueue []pqItem

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x any)         { *q = append(*q, x.(pqItem)) }
func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// GraphPaths finds the lowest-cost path from startKey to endKey using
// Dijkstra's algorithm over the edge costs (cost 1 for edges without a
// declared cost column), bounded to at most maxHops edges (maxHops <= 0
// means unbounded), per spec §4.5.4 `graph_paths`.
func GraphPaths(store *storage.Store, defaults ident.Defaults, g *Graph, startKey, endKey string, maxHops int) ([]PathHop, bool, error) {
	adj, err := buildAdjacency(store, defaults, g)
	if err != nil {
		return nil, false, err
	}

	best := map[string]float64{startKey: 0}
	pq := &pathQueue{{key: startKey, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if cur.key == endKey {
			return cur.path, true, nil
		}
		if d, ok := best[cur.key]; ok && cur.dist > d {
			continue
		}
		if maxHops > 0 && len(cur.path) >= maxHops {
			continue
		}
		for _, e := range adj[cur.key] {
			nd := cur.dist + e.cost
			if d, ok := best[e.to]; ok && nd >= d {
				continue
			}
			best[e.to] = nd
			np := append(append([]PathHop{}, cur.path...), PathHop{NodeKey: e.to, EdgeType: e.edgeType, Cost: e.cost})
			heap.Push(pq, pqItem{key: e.to, dist: nd, path: np})
		}
	}
	return nil, false, nil
}
