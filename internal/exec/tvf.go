package exec

import (
	"encoding/json"

	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

// resolveTVF evaluates a table-valued function call appearing in a FROM
// clause (pg_query's RangeFunction node) and returns its result as a
// rowSet, the same shape every other FROM source produces, so the rest
// of the SELECT pipeline (WHERE/GROUP/projection/joins) treats a TVF
// call identically to a base table or subquery (spec §4.4.3 "Sources
// include... TVFs").
func (ex *Executor) resolveTVF(body map[string]any, defaults ident.Defaults, evctx *evalCtx) (*rowSet, error) {
	funcs := mlist(body, "functions")
	if len(funcs) == 0 {
		return nil, userInputErr("unsupported table function call")
	}
	listTag, listBody := node(mmap(funcs[0]))
	if listTag != "List" {
		return nil, userInputErr("unsupported table function call")
	}
	items := mlist(listBody, "items")
	if len(items) == 0 {
		return nil, userInputErr("unsupported table function call")
	}
	fcTag, fc := node(mmap(items[0]))
	if fcTag != "FuncCall" {
		return nil, userInputErr("unsupported table function call")
	}

	name := funcName(fc)
	var args []any
	for _, a := range mlist(fc, "args") {
		v, err := evctx.eval(mmap(a), map[string]any{})
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	var df *storage.DataFrame
	var err error
	switch name {
	case "graph_neighbors":
		df, err = ex.tvfGraphNeighbors(args, defaults)
	case "graph_paths":
		df, err = ex.tvfGraphPaths(args, defaults)
	case "search_vector_index":
		df, err = ex.tvfSearchVectorIndex(args, defaults, nil)
	case "search_vector_index_with_opts":
		df, err = ex.tvfSearchVectorIndexWithOpts(args, defaults)
	default:
		return nil, userInputErr("unknown table function %q", name)
	}
	if err != nil {
		return nil, err
	}

	alias := name
	if al := mget(body, "alias"); al != nil {
		if a := mstr(al, "aliasname"); a != "" {
			alias = a
		}
	}
	return dataFrameToRowSet(df, alias), nil
}

func argStr(args []any, i int, what string) (string, error) {
	if i >= len(args) {
		return "", userInputErr("%s: missing argument %d", what, i+1)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", userInputErr("%s: argument %d must be a string", what, i+1)
	}
	return s, nil
}

func argInt(args []any, i int, what string) (int, error) {
	if i >= len(args) {
		return 0, userInputErr("%s: missing argument %d", what, i+1)
	}
	return int(toFloat(args[i])), nil
}

// argVector parses the query-vector argument of a vector-search TVF
// call: a JSON float array literal (e.g. `'[0.1, 0.2]'`), matching how
// CREATE GRAPH's inline JSON body is passed as a quoted string literal
// rather than native array syntax.
func argVector(args []any, i int, what string) ([]float64, error) {
	s, err := argStr(args, i, what)
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(s), &vec); err != nil {
		return nil, userInputErr("%s: query vector must be a JSON float array, got %q", what, s)
	}
	return vec, nil
}

func (ex *Executor) tvfGraphNeighbors(args []any, defaults ident.Defaults) (*storage.DataFrame, error) {
	if len(args) != 3 {
		return nil, userInputErr("graph_neighbors expects (graph, start, max_hops)")
	}
	graphName, err := argStr(args, 0, "graph_neighbors")
	if err != nil {
		return nil, err
	}
	start, err := argStr(args, 1, "graph_neighbors")
	if err != nil {
		return nil, err
	}
	maxHops, err := argInt(args, 2, "graph_neighbors")
	if err != nil {
		return nil, err
	}

	p := ident.Resolve(graphName, defaults)
	g, rerr := ex.Sidecar.ReadGraph(p.Database, p.Schema, p.Table)
	if rerr != nil {
		return nil, notFoundErr("graph %q does not exist", graphName)
	}

	ex.Store.Lock()
	neighbors, err := sidecar.GraphNeighbors(ex.Store, defaults, g, start, maxHops)
	ex.Store.Unlock()
	if err != nil {
		return nil, internalErr(err)
	}

	df := storage.NewDataFrame([]string{"node_id", "prev_id", "hop"}, map[string]storage.ColumnType{
		"node_id": storage.TypeString, "prev_id": storage.TypeString, "hop": storage.TypeInt64,
	})
	for _, n := range neighbors {
		df.AppendRow(map[string]any{"node_id": n.NodeKey, "prev_id": nil, "hop": int64(n.Hops)})
	}
	return df, nil
}

func (ex *Executor) tvfGraphPaths(args []any, defaults ident.Defaults) (*storage.DataFrame, error) {
	if len(args) != 4 {
		return nil, userInputErr("graph_paths expects (graph, src, dst, max_hops)")
	}
	graphName, err := argStr(args, 0, "graph_paths")
	if err != nil {
		return nil, err
	}
	src, err := argStr(args, 1, "graph_paths")
	if err != nil {
		return nil, err
	}
	dst, err := argStr(args, 2, "graph_paths")
	if err != nil {
		return nil, err
	}
	maxHops, err := argInt(args, 3, "graph_paths")
	if err != nil {
		return nil, err
	}

	p := ident.Resolve(graphName, defaults)
	g, rerr := ex.Sidecar.ReadGraph(p.Database, p.Schema, p.Table)
	if rerr != nil {
		return nil, notFoundErr("graph %q does not exist", graphName)
	}

	ex.Store.Lock()
	hops, found, err := sidecar.GraphPaths(ex.Store, defaults, g, src, dst, maxHops)
	ex.Store.Unlock()
	if err != nil {
		return nil, internalErr(err)
	}

	df := storage.NewDataFrame([]string{"path_id", "node_id", "ord"}, map[string]storage.ColumnType{
		"path_id": storage.TypeInt64, "node_id": storage.TypeString, "ord": storage.TypeInt64,
	})
	if !found {
		return df, nil
	}
	df.AppendRow(map[string]any{"path_id": int64(1), "node_id": src, "ord": int64(0)})
	for i, h := range hops {
		df.AppendRow(map[string]any{"path_id": int64(1), "node_id": h.NodeKey, "ord": int64(i + 1)})
	}
	return df, nil
}

func vectorSearchDF(matches []sidecar.VectorMatch) *storage.DataFrame {
	df := storage.NewDataFrame([]string{"row_id", "score"}, map[string]storage.ColumnType{
		"row_id": storage.TypeInt64, "score": storage.TypeFloat64,
	})
	for _, m := range matches {
		df.AppendRow(map[string]any{"row_id": int64(m.RowID), "score": m.Score})
	}
	return df
}

// tvfSearchVectorIndex implements `search_vector_index(index, qvec, k)`.
// metricOverride is always nil here; it is only populated by the
// `_with_opts` form (spec §4.5.2 metric precedence).
func (ex *Executor) tvfSearchVectorIndex(args []any, defaults ident.Defaults, metricOverride *string) (*storage.DataFrame, error) {
	if len(args) != 3 {
		return nil, userInputErr("search_vector_index expects (index, qvec, k)")
	}
	indexName, err := argStr(args, 0, "search_vector_index")
	if err != nil {
		return nil, err
	}
	qvec, err := argVector(args, 1, "search_vector_index")
	if err != nil {
		return nil, err
	}
	k, err := argInt(args, 2, "search_vector_index")
	if err != nil {
		return nil, err
	}
	return ex.runVectorSearch(indexName, qvec, k, metricOverride, defaults)
}

// tvfSearchVectorIndexWithOpts implements
// `search_vector_index_with_opts(index, qvec, k, opts)`, where opts is a
// JSON object literal carrying at minimum `metric_override` (spec
// §4.5.2 precedence: opts.metric_override -> .vindex.metric -> "l2").
func (ex *Executor) tvfSearchVectorIndexWithOpts(args []any, defaults ident.Defaults) (*storage.DataFrame, error) {
	if len(args) != 4 {
		return nil, userInputErr("search_vector_index_with_opts expects (index, qvec, k, opts)")
	}
	indexName, err := argStr(args, 0, "search_vector_index_with_opts")
	if err != nil {
		return nil, err
	}
	qvec, err := argVector(args, 1, "search_vector_index_with_opts")
	if err != nil {
		return nil, err
	}
	k, err := argInt(args, 2, "search_vector_index_with_opts")
	if err != nil {
		return nil, err
	}
	optsRaw, err := argStr(args, 3, "search_vector_index_with_opts")
	if err != nil {
		return nil, err
	}
	var opts struct {
		MetricOverride string `json:"metric_override"`
	}
	if err := json.Unmarshal([]byte(optsRaw), &opts); err != nil {
		return nil, userInputErr("search_vector_index_with_opts: opts must be a JSON object, got %q", optsRaw)
	}
	var override *string
	if opts.MetricOverride != "" {
		override = &opts.MetricOverride
	}
	return ex.runVectorSearch(indexName, qvec, k, override, defaults)
}

func (ex *Executor) runVectorSearch(indexName string, qvec []float64, k int, metricOverride *string, defaults ident.Defaults) (*storage.DataFrame, error) {
	p := ident.Resolve(indexName, defaults)
	vi, err := ex.Sidecar.ReadVectorIndex(p.Database, p.Schema, p.Table)
	if err != nil {
		return nil, notFoundErr("vector index %q does not exist", indexName)
	}
	effective := *vi
	if metricOverride != nil {
		effective.Metric = *metricOverride
	}
	if effective.Metric == "" {
		effective.Metric = "l2"
	}
	if len(qvec) != effective.Dim && effective.Dim != 0 {
		return nil, userInputErr("vector_dim_mismatch: index %q expects dim %d, got %d", indexName, effective.Dim, len(qvec))
	}

	ex.Store.Lock()
	matches, err := sidecar.SearchVectorIndex(ex.Store, defaults, &effective, qvec, k)
	ex.Store.Unlock()
	if err != nil {
		return nil, internalErr(err)
	}
	return vectorSearchDF(matches), nil
}
