package exec

import (
	"fmt"
	"math"
	"strings"

	"clarium/internal/sqlast"
	"clarium/internal/storage"
)

var aggFuncNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "stdev": true,
}

// aggCall describes one aggregate FuncCall found in a target-list or
// HAVING expression.
type aggCall struct {
	name string
	arg  map[string]any
	star bool
}

func asAggCall(n map[string]any) (aggCall, bool) {
	tag, body := node(n)
	if tag != "FuncCall" {
		return aggCall{}, false
	}
	name := strings.ToLower(funcName(body))
	if !aggFuncNames[name] {
		return aggCall{}, false
	}
	call := aggCall{name: name, star: mbool(body, "agg_star")}
	if args := mlist(body, "args"); len(args) > 0 {
		call.arg = mmap(args[0])
	}
	return call, true
}

// targetListHasAgg reports whether any ResTarget in targetList calls
// an aggregate function, which forces the SELECT into the
// group/aggregate pipeline stage even without an explicit GROUP BY
// (spec §4.4.3: a bare aggregate collapses the whole input to one row).
func targetListHasAgg(targetList []any) bool {
	for _, t := range targetList {
		rt := mget(mmap(t), "ResTarget")
		if rt == nil {
			continue
		}
		if _, ok := asAggCall(mget(rt, "val")); ok {
			return true
		}
	}
	return false
}

func evalAggOverRows(call aggCall, rows []map[string]any, evctx *evalCtx) (any, error) {
	if call.name == "count" && call.star {
		return int64(len(rows)), nil
	}
	var vals []float64
	nonNull := 0
	for _, r := range rows {
		if call.arg == nil {
			continue
		}
		v, err := evctx.eval(call.arg, r)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		nonNull++
		vals = append(vals, toFloat(v))
	}
	switch call.name {
	case "count":
		return int64(nonNull), nil
	case "sum":
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s, nil
	case "avg":
		if len(vals) == 0 {
			return nil, nil
		}
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals)), nil
	case "min":
		if len(vals) == 0 {
			return nil, nil
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m, nil
	case "max":
		if len(vals) == 0 {
			return nil, nil
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m, nil
	case "stdev":
		// Population standard deviation: sqrt(E[x^2] - E[x]^2).
		if len(vals) == 0 {
			return nil, nil
		}
		var sum, sumSq float64
		for _, v := range vals {
			sum += v
			sumSq += v * v
		}
		n := float64(len(vals))
		mean := sum / n
		variance := sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		return math.Sqrt(variance), nil
	}
	return nil, nil
}

// evalTargetInBucket evaluates one target-list expression either as an
// aggregate over bucket (if it is an aggregate FuncCall) or as a plain
// expression against rep (the bucket's representative row, normally
// its first — valid for the GROUP BY columns themselves, and for any
// expression that is functionally dependent on them).
func evalTargetInBucket(valNode map[string]any, bucket []map[string]any, rep map[string]any, evctx *evalCtx) (any, error) {
	if call, ok := asAggCall(valNode); ok {
		return evalAggOverRows(call, bucket, evctx)
	}
	return evctx.eval(valNode, rep)
}

// runAggregation implements GROUP BY, tumbling/rolling windows, and
// bare (groupless) aggregation. It returns the projected result rows
// and their column order, with HAVING already applied (spec §4.4.3:
// group/window happens before projection aliasing and before HAVING
// runs the same evaluator over the post-group row).
func (ex *Executor) runAggregation(rs *rowSet, groupClause []any, targetList []any, win sqlast.Window, havingNode map[string]any, evctx *evalCtx) ([]map[string]any, []string, error) {
	buckets, err := bucketRows(rs.rows, groupClause, win, evctx)
	if err != nil {
		return nil, nil, err
	}

	plan := buildTargetPlan(targetList)
	cols := make([]string, len(plan))
	for i, item := range plan {
		cols[i] = item.alias
	}

	var out []map[string]any
	for _, b := range buckets {
		rep := b[0]
		row := make(map[string]any, len(plan))
		for _, item := range plan {
			v, err := evalTargetInBucket(item.expr, b, rep, evctx)
			if err != nil {
				return nil, nil, err
			}
			row[item.alias] = v
		}
		if havingNode != nil {
			// HAVING may reference either the post-aggregation alias
			// (via the projected row) or re-derive an aggregate
			// directly, so it is evaluated against a row that merges
			// both.
			havingRow := make(map[string]any, len(row)+len(rep))
			for k, v := range rep {
				havingRow[k] = v
			}
			for k, v := range row {
				havingRow[k] = v
			}
			hctx := &havingEvalCtx{evalCtx: evctx, bucket: b}
			v, err := hctx.evalHaving(havingNode, havingRow)
			if err != nil {
				return nil, nil, err
			}
			if !truthy(v) {
				continue
			}
		}
		out = append(out, row)
	}
	return out, cols, nil
}

// havingEvalCtx re-uses the row evaluator but routes aggregate
// FuncCalls through the current bucket instead of failing with
// "column not found", since HAVING (unlike WHERE) is allowed to
// reference aggregates directly (spec §4.4.3 HAVING diagnostics:
// "Column not found in HAVING: <name>" / "UDF '<name>' not found in
// HAVING clause" mirror the WHERE messages once this substitution is
// exhausted).
type havingEvalCtx struct {
	*evalCtx
	bucket []map[string]any
}

func (h *havingEvalCtx) evalHaving(n map[string]any, row map[string]any) (any, error) {
	if call, ok := asAggCall(n); ok {
		return evalAggOverRows(call, h.bucket, h.evalCtx)
	}
	tag, body := node(n)
	switch tag {
	case "BoolExpr":
		op := mstr(body, "boolop")
		args := mlist(body, "args")
		switch op {
		case "NOT_EXPR":
			v, err := h.evalHaving(mmap(args[0]), row)
			if err != nil {
				return nil, err
			}
			return !truthy(v), nil
		case "OR_EXPR":
			for _, a := range args {
				v, err := h.evalHaving(mmap(a), row)
				if err != nil {
					return nil, err
				}
				if truthy(v) {
					return true, nil
				}
			}
			return false, nil
		default:
			for _, a := range args {
				v, err := h.evalHaving(mmap(a), row)
				if err != nil {
					return nil, err
				}
				if !truthy(v) {
					return false, nil
				}
			}
			return true, nil
		}
	case "A_Expr":
		op := ""
		if names := mlist(body, "name"); len(names) > 0 {
			_, ob := node(mmap(names[0]))
			op = mstr(ob, "sval")
		}
		var l, r any
		var err error
		if le := mget(body, "lexpr"); le != nil {
			if l, err = h.evalHaving(le, row); err != nil {
				return nil, err
			}
		}
		if re := mget(body, "rexpr"); re != nil {
			if r, err = h.evalHaving(re, row); err != nil {
				return nil, err
			}
		}
		return applyOp(op, l, r)
	case "ColumnRef":
		name, ok := columnRefName(body)
		if !ok {
			return nil, userInputErr("Column not found in HAVING: *")
		}
		v, found := lookupColumn(row, name)
		if !found {
			return nil, userInputErr("Column not found in HAVING: %s", name)
		}
		return v, nil
	case "FuncCall":
		switch strings.ToLower(funcName(body)) {
		case "upper", "lower", "abs", "coalesce":
			return h.evalCtx.eval(n, row)
		default:
			return nil, userInputErr("UDF '%s' not found in HAVING clause", funcName(body))
		}
	default:
		return h.evalCtx.eval(n, row)
	}
}

type targetItem struct {
	alias string
	expr  map[string]any
}

func buildTargetPlan(targetList []any) []targetItem {
	var plan []targetItem
	ordinal := 0
	for _, t := range targetList {
		rt := mget(mmap(t), "ResTarget")
		if rt == nil {
			continue
		}
		ordinal++
		val := mget(rt, "val")
		plan = append(plan, targetItem{alias: targetAlias(rt, ordinal), expr: val})
	}
	return plan
}

func targetAlias(rt map[string]any, ordinal int) string {
	if name := mstr(rt, "name"); name != "" {
		return name
	}
	val := mget(rt, "val")
	tag, body := node(val)
	if tag == "ColumnRef" {
		if nm, ok := columnRefName(body); ok {
			parts := strings.Split(nm, ".")
			return parts[len(parts)-1]
		}
	}
	return fmt.Sprintf("Unnamed_%d", ordinal)
}

// bucketRows partitions rows into aggregation buckets: by explicit
// GROUP BY key, by tumbling time bucket, by rolling trailing window
// (one bucket per row), or a single bucket covering everything when
// none apply but an aggregate was requested.
func bucketRows(rows []map[string]any, groupClause []any, win sqlast.Window, evctx *evalCtx) ([][]map[string]any, error) {
	switch {
	case win.Kind == sqlast.WindowRolling:
		return rollingBuckets(rows, win.Duration.Milliseconds()), nil
	case win.Kind == sqlast.WindowTumbling:
		return tumblingBuckets(rows, win.Duration.Milliseconds(), groupClause, evctx)
	case len(groupClause) > 0:
		return groupByBuckets(rows, groupClause, evctx)
	default:
		if len(rows) == 0 {
			return nil, nil
		}
		return [][]map[string]any{rows}, nil
	}
}

func rowTime(r map[string]any) int64 {
	v, ok := lookupColumn(r, "_time")
	if !ok {
		return 0
	}
	return storage.AsInt64(v)
}

// rollingBuckets returns, for each input row (assumed pre-sorted by
// `_time`), the set of rows whose `_time` falls in
// (current._time - duration, current._time] — one output bucket per
// input row, in order (spec §4.4.3 rolling windows).
func rollingBuckets(rows []map[string]any, durMs int64) [][]map[string]any {
	out := make([][]map[string]any, 0, len(rows))
	for i := range rows {
		t := rowTime(rows[i])
		lo := t - durMs
		var bucket []map[string]any
		for j := 0; j <= i; j++ {
			tj := rowTime(rows[j])
			if tj > lo && tj <= t {
				bucket = append(bucket, rows[j])
			}
		}
		out = append(out, bucket)
	}
	return out
}

// tumblingBuckets groups rows into fixed-size, non-overlapping time
// buckets keyed by floor(_time/durMs)*durMs, additionally split by any
// explicit GROUP BY columns.
func tumblingBuckets(rows []map[string]any, durMs int64, groupClause []any, evctx *evalCtx) ([][]map[string]any, error) {
	type key struct {
		bucket int64
		extra  string
	}
	order := []key{}
	groups := map[key][]map[string]any{}
	for _, r := range rows {
		t := rowTime(r)
		b := t / durMs * durMs
		extra, err := groupKeyString(r, groupClause, evctx)
		if err != nil {
			return nil, err
		}
		k := key{bucket: b, extra: extra}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	out := make([][]map[string]any, len(order))
	for i, k := range order {
		out[i] = groups[k]
	}
	return out, nil
}

func groupByBuckets(rows []map[string]any, groupClause []any, evctx *evalCtx) ([][]map[string]any, error) {
	var order []string
	groups := map[string][]map[string]any{}
	for _, r := range rows {
		key, err := groupKeyString(r, groupClause, evctx)
		if err != nil {
			return nil, err
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	out := make([][]map[string]any, len(order))
	for i, k := range order {
		out[i] = groups[k]
	}
	return out, nil
}

func groupKeyString(row map[string]any, groupClause []any, evctx *evalCtx) (string, error) {
	if len(groupClause) == 0 {
		return "", nil
	}
	parts := make([]string, len(groupClause))
	for i, g := range groupClause {
		v, err := evctx.eval(mmap(g), row)
		if err != nil {
			return "", err
		}
		parts[i] = toStr(v) + fmt.Sprintf("|%T", v)
	}
	return strings.Join(parts, "\x1f"), nil
}
