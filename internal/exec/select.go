package exec

import (
	"fmt"
	"sort"
	"strings"

	"clarium/internal/ident"
	"clarium/internal/sqlast"
	"clarium/internal/storage"
	"clarium/internal/syscatalog"
)

// RunSelect executes a parsed SELECT command end to end (spec §4.4.3
// pipeline: scan&project -> WHERE -> GROUP/window -> projection
// aliases -> HAVING -> ORDER BY -> LIMIT/OFFSET) and returns the
// result as a DataFrame.
func (ex *Executor) RunSelect(cmd *sqlast.Command, defaults ident.Defaults) (*storage.DataFrame, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return nil, fmt.Errorf("exec: deparse select: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return nil, err
	}
	sel := mget(firstStmt(tree), "SelectStmt")
	if sel == nil {
		return nil, userInputErr("not a SELECT statement")
	}
	return ex.runSelectNode(sel, defaults, cmd.Window)
}

func (ex *Executor) runSelectNode(sel map[string]any, defaults ident.Defaults, win sqlast.Window) (*storage.DataFrame, error) {
	if op := mstr(sel, "op"); op != "" && op != "SETOP_NONE" {
		return ex.runSetOp(sel, defaults)
	}

	evctx := &evalCtx{exec: ex, defaults: defaults}

	rs, err := ex.scanFrom(sel, defaults, evctx)
	if err != nil {
		return nil, err
	}

	if whereNode := mget(sel, "whereClause"); whereNode != nil {
		filtered := &rowSet{cols: rs.cols}
		for _, row := range rs.rows {
			v, err := evctx.eval(whereNode, row)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				filtered.rows = append(filtered.rows, row)
			}
		}
		rs = filtered
	}

	targetList := mlist(sel, "targetList")
	groupClause := mlist(sel, "groupClause")
	havingNode := mget(sel, "havingClause")
	needsAgg := win.Kind != sqlast.WindowNone || len(groupClause) > 0 || targetListHasAgg(targetList)

	var resultRows []map[string]any
	var resultCols []string

	if needsAgg {
		if win.Kind != sqlast.WindowNone {
			sortRowsByTime(rs.rows)
		}
		resultRows, resultCols, err = ex.runAggregation(rs, groupClause, targetList, win, havingNode, evctx)
		if err != nil {
			return nil, err
		}
	} else {
		resultRows, resultCols, err = ex.runProjection(rs, targetList, evctx)
		if err != nil {
			return nil, err
		}
	}

	if mget(sel, "distinctClause") != nil || len(mlist(sel, "distinctClause")) > 0 {
		resultRows = dedupeRows(resultRows, resultCols)
	}

	if sortClause := mlist(sel, "sortClause"); len(sortClause) > 0 {
		if err := orderRows(resultRows, resultCols, sortClause, evctx); err != nil {
			return nil, err
		}
	}

	resultRows = applyLimitOffset(resultRows, mget(sel, "limitCount"), mget(sel, "limitOffset"))

	return rowsToDataFrame(resultCols, resultRows), nil
}

func sortRowsByTime(rows []map[string]any) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rowTime(rows[i]) < rowTime(rows[j])
	})
}

func (ex *Executor) scanFrom(sel map[string]any, defaults ident.Defaults, evctx *evalCtx) (*rowSet, error) {
	fromList := mlist(sel, "fromClause")
	if len(fromList) == 0 {
		return &rowSet{rows: []map[string]any{{}}}, nil
	}
	var rs *rowSet
	for i, f := range fromList {
		next, err := ex.resolveFrom(mmap(f), defaults, evctx)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			rs = next
			continue
		}
		rs, err = ex.joinRows("JOIN_INNER", rs, next, nil, evctx)
		if err != nil {
			return nil, err
		}
	}
	return rs, nil
}

func (ex *Executor) resolveFrom(n map[string]any, defaults ident.Defaults, evctx *evalCtx) (*rowSet, error) {
	tag, body := node(n)
	switch tag {
	case "RangeVar":
		return ex.scanTable(body, defaults)
	case "RangeSubselect":
		sub := mget(body, "subquery")
		selSub := mget(sub, "SelectStmt")
		subDF, err := ex.runSelectNode(selSub, defaults, sqlast.Window{})
		if err != nil {
			return nil, err
		}
		alias := ""
		if al := mget(body, "alias"); al != nil {
			alias = mstr(al, "aliasname")
		}
		return dataFrameToRowSet(subDF, alias), nil
	case "RangeFunction":
		return ex.resolveTVF(body, defaults, evctx)
	case "JoinExpr":
		left, err := ex.resolveFrom(mget(body, "larg"), defaults, evctx)
		if err != nil {
			return nil, err
		}
		right, err := ex.resolveFrom(mget(body, "rarg"), defaults, evctx)
		if err != nil {
			return nil, err
		}
		jointype := mstr(body, "jointype")
		quals := mget(body, "quals")
		return ex.joinRows(jointype, left, right, quals, evctx)
	default:
		return nil, userInputErr("unsupported FROM clause element %q", tag)
	}
}

// rangeVarPath resolves a JSON RangeVar node's relation name against
// session defaults.
func rangeVarPath(rv map[string]any, defaults ident.Defaults) ident.Path {
	relname := mstr(rv, "relname")
	schemaname := mstr(rv, "schemaname")
	identInput := relname
	if schemaname != "" {
		identInput = schemaname + "." + relname
	}
	return ident.Resolve(identInput, defaults)
}

func rangeVarAlias(rv map[string]any) string {
	alias := mstr(rv, "relname")
	if al := mget(rv, "alias"); al != nil {
		if a := mstr(al, "aliasname"); a != "" {
			alias = a
		}
	}
	return alias
}

// scanTable reads one FROM relation into a rowSet: a system-catalog
// relation if the name is one, else the base table, else a view whose
// stored query is re-run; any other name is a not-found error. The
// store lock is held only for the base-table read itself.
func (ex *Executor) scanTable(rv map[string]any, defaults ident.Defaults) (*rowSet, error) {
	relname := mstr(rv, "relname")
	schemaname := mstr(rv, "schemaname")
	alias := rangeVarAlias(rv)

	if ex.Catalog != nil {
		if schema, ok := syscatalog.Resolve(schemaname, relname); ok {
			p := ident.Resolve(relname, defaults)
			df, err := ex.Catalog.Build(p.Database, schema, relname)
			if err != nil {
				return nil, internalErr(err)
			}
			if df != nil {
				return dataFrameToRowSet(df, alias), nil
			}
		}
	}

	p := rangeVarPath(rv, defaults)

	ex.Store.Lock()
	exists := ex.Store.TableExists(p)
	var df *storage.DataFrame
	var readErr error
	if exists {
		df, readErr = ex.Store.ReadDF(p)
	}
	ex.Store.Unlock()
	if readErr != nil {
		return nil, internalErr(readErr)
	}
	if exists {
		return dataFrameToRowSet(df, alias), nil
	}

	if v, err := ex.Sidecar.ReadView(p.Database, p.Schema, p.Table); err == nil {
		viewCmd, perr := sqlast.Parse(v.Query)
		if perr != nil {
			return nil, internalErr(fmt.Errorf("exec: re-parse view %q: %w", relname, perr))
		}
		viewDF, verr := ex.RunSelect(viewCmd, defaults)
		if verr != nil {
			return nil, verr
		}
		return dataFrameToRowSet(viewDF, alias), nil
	}

	return nil, notFoundErr("relation %q does not exist", relname)
}

func (ex *Executor) runProjection(rs *rowSet, targetList []any, evctx *evalCtx) ([]map[string]any, []string, error) {
	type item struct {
		alias string
		expr  map[string]any
		star  string // "" not a star, "*" bare star, else qualifier alias
		hasStar bool
	}
	var plan []item
	ordinal := 0
	for _, t := range targetList {
		rt := mget(mmap(t), "ResTarget")
		if rt == nil {
			continue
		}
		val := mget(rt, "val")
		if qual, ok := isStarTarget(val); ok {
			plan = append(plan, item{star: qual, hasStar: true})
			continue
		}
		ordinal++
		plan = append(plan, item{alias: targetAlias(rt, ordinal), expr: val})
	}

	var cols []string
	seen := map[string]bool{}
	for _, it := range plan {
		if it.hasStar {
			var names []string
			if it.star == "" {
				names = rs.bareNames()
			} else {
				names = rs.namesForAlias(it.star)
			}
			for _, n := range names {
				if !seen[n] {
					seen[n] = true
					cols = append(cols, n)
				}
			}
			continue
		}
		if !seen[it.alias] {
			seen[it.alias] = true
			cols = append(cols, it.alias)
		}
	}

	var out []map[string]any
	for _, row := range rs.rows {
		projected := make(map[string]any, len(cols))
		for _, it := range plan {
			if it.hasStar {
				var names []string
				if it.star == "" {
					names = rs.bareNames()
				} else {
					names = rs.namesForAlias(it.star)
				}
				for _, n := range names {
					v, _ := lookupColumn(row, n)
					projected[n] = v
				}
				continue
			}
			v, err := evctx.eval(it.expr, row)
			if err != nil {
				return nil, nil, err
			}
			projected[it.alias] = v
		}
		out = append(out, projected)
	}
	return out, cols, nil
}

func isStarTarget(val map[string]any) (string, bool) {
	tag, body := node(val)
	if tag != "ColumnRef" {
		return "", false
	}
	fields := mlist(body, "fields")
	if len(fields) == 0 {
		return "", false
	}
	lastTag, _ := node(mmap(fields[len(fields)-1]))
	if lastTag != "A_Star" {
		return "", false
	}
	if len(fields) == 1 {
		return "", true
	}
	_, sbody := node(mmap(fields[0]))
	return mstr(sbody, "sval"), true
}

func dedupeRows(rows []map[string]any, cols []string) []map[string]any {
	seen := map[string]bool{}
	var out []map[string]any
	for _, r := range rows {
		var b strings.Builder
		for _, c := range cols {
			fmt.Fprintf(&b, "%v\x1f", r[c])
		}
		key := b.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, r)
		}
	}
	return out
}

func orderRows(rows []map[string]any, cols []string, sortClause []any, evctx *evalCtx) error {
	var firstErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, sc := range sortClause {
			sb := mget(mmap(sc), "SortBy")
			if sb == nil {
				continue
			}
			vi, err := sortValue(sb, rows[i], cols)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			vj, err := sortValue(sb, rows[j], cols)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			cmp := compareOrdered(vi, vj)
			if cmp == 0 {
				continue
			}
			desc := mstr(sb, "sortby_dir") == "SORTBY_DESC"
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	_ = evctx
	return firstErr
}

func sortValue(sb map[string]any, row map[string]any, cols []string) (any, error) {
	exprNode := mget(sb, "node")
	tag, body := node(exprNode)
	switch tag {
	case "ColumnRef":
		if name, ok := columnRefName(body); ok {
			if v, found := lookupColumn(row, name); found {
				return v, nil
			}
		}
	case "A_Const":
		if ord, ok := constValue(body).(int64); ok && int(ord) >= 1 && int(ord) <= len(cols) {
			return row[cols[ord-1]], nil
		}
	}
	return row[exprSourceAlias(exprNode)], nil
}

// exprSourceAlias handles the common case of ordering by a bare
// aliased expression column that isn't itself a plain ColumnRef (e.g.
// `ORDER BY total` referencing a `SUM(x) AS total` projection): the
// node is itself a ColumnRef to the alias once deparsed by pg_query,
// so this just extracts whatever name it carries.
func exprSourceAlias(n map[string]any) string {
	tag, body := node(n)
	if tag != "ColumnRef" {
		return ""
	}
	name, _ := columnRefName(body)
	return name
}

func applyLimitOffset(rows []map[string]any, limitNode, offsetNode map[string]any) []map[string]any {
	offset := 0
	if offsetNode != nil {
		if _, body := node(offsetNode); body != nil {
			if v, ok := constValue(body).(int64); ok {
				offset = int(v)
			}
		}
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limitNode != nil {
		if _, body := node(limitNode); body != nil {
			if v, ok := constValue(body).(int64); ok && int(v) < len(rows) {
				rows = rows[:v]
			}
		}
	}
	return rows
}
