package exec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"clarium/internal/ident"
)

// evalCtx carries what an expression needs besides the current row: a
// way to run a nested SELECT for `IN (SELECT ...)` / `EXISTS (...)` /
// scalar subqueries (spec §4.4.3 "WHERE with subqueries").
type evalCtx struct {
	exec     *Executor
	defaults ident.Defaults
}

// eval evaluates one pg_query JSON expression node against a single
// row. Rows carry each column under both its bare name and its
// `alias.col` qualified name (populated during FROM resolution) so
// unqualified and qualified references both resolve.
func (c *evalCtx) eval(n map[string]any, row map[string]any) (any, error) {
	if n == nil {
		return nil, nil
	}
	tag, body := node(n)
	switch tag {
	case "A_Const":
		return constValue(body), nil
	case "ColumnRef":
		name, ok := columnRefName(body)
		if !ok {
			return nil, userInputErr("Column not found in WHERE: *")
		}
		v, found := lookupColumn(row, name)
		if !found {
			return nil, userInputErr("Column not found in WHERE: %s", name)
		}
		return v, nil
	case "TypeCast":
		return c.eval(mget(body, "arg"), row)
	case "A_Expr":
		return c.evalAExpr(body, row)
	case "BoolExpr":
		return c.evalBoolExpr(body, row)
	case "NullTest":
		return c.evalNullTest(body, row)
	case "FuncCall":
		return c.evalScalarFunc(body, row)
	case "SubLink":
		return c.evalSubLink(body, row)
	case "List":
		var items []any
		for _, it := range mlist(body, "items") {
			v, err := c.eval(mmap(it), row)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	default:
		return nil, nil
	}
}

func constValue(n map[string]any) any {
	if n == nil {
		return nil
	}
	if isnull, ok := n["isnull"].(bool); ok && isnull {
		return nil
	}
	if iv := mget(n, "ival"); iv != nil {
		return int64(mnum(iv, "ival"))
	}
	if fv := mget(n, "fval"); fv != nil {
		f, _ := strconv.ParseFloat(mstr(fv, "fval"), 64)
		return f
	}
	if sv := mget(n, "sval"); sv != nil {
		return mstr(sv, "sval")
	}
	if bv := mget(n, "boolval"); bv != nil {
		return mbool(bv, "boolval")
	}
	return nil
}

func columnRefName(n map[string]any) (string, bool) {
	var parts []string
	for _, f := range mlist(n, "fields") {
		tag, body := node(mmap(f))
		if tag == "A_Star" {
			return "", false
		}
		if tag == "String" {
			parts = append(parts, mstr(body, "sval"))
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "."), true
}

func lookupColumn(row map[string]any, name string) (any, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		for k, v := range row {
			if strings.HasSuffix(k, "."+name) {
				return v, true
			}
		}
	}
	return nil, false
}

func (c *evalCtx) evalAExpr(n map[string]any, row map[string]any) (any, error) {
	op := ""
	if names := mlist(n, "name"); len(names) > 0 {
		_, body := node(mmap(names[0]))
		op = mstr(body, "sval")
	}
	var l, r any
	var err error
	if lexpr := mget(n, "lexpr"); lexpr != nil {
		if l, err = c.eval(lexpr, row); err != nil {
			return nil, err
		}
	}
	if rexpr := mget(n, "rexpr"); rexpr != nil {
		if r, err = c.eval(rexpr, row); err != nil {
			return nil, err
		}
	}
	return applyOp(op, l, r)
}

func (c *evalCtx) evalBoolExpr(n map[string]any, row map[string]any) (any, error) {
	op := mstr(n, "boolop")
	args := mlist(n, "args")
	switch op {
	case "NOT_EXPR":
		if len(args) == 0 {
			return true, nil
		}
		v, err := c.eval(mmap(args[0]), row)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	case "OR_EXPR":
		for _, a := range args {
			v, err := c.eval(mmap(a), row)
			if err != nil {
				return nil, err
			}
			if truthy(v) {
				return true, nil
			}
		}
		return false, nil
	default: // AND_EXPR
		for _, a := range args {
			v, err := c.eval(mmap(a), row)
			if err != nil {
				return nil, err
			}
			if !truthy(v) {
				return false, nil
			}
		}
		return true, nil
	}
}

func (c *evalCtx) evalNullTest(n map[string]any, row map[string]any) (any, error) {
	v, err := c.eval(mget(n, "arg"), row)
	if err != nil {
		return nil, err
	}
	isNull := v == nil
	if mstr(n, "nulltesttype") == "IS_NOT_NULL" {
		return !isNull, nil
	}
	return isNull, nil
}

// evalScalarFunc handles the small set of non-aggregate functions the
// engine recognizes directly. Aggregates are normally evaluated by the
// aggregation stage; one that reaches here (for example inside a WHERE
// clause) is rejected like an unknown function.
func (c *evalCtx) evalScalarFunc(n map[string]any, row map[string]any) (any, error) {
	name := funcName(n)
	args := mlist(n, "args")
	vals := make([]any, len(args))
	for i, a := range args {
		v, err := c.eval(mmap(a), row)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	switch strings.ToLower(name) {
	case "upper":
		return strings.ToUpper(toStr(firstOrNil(vals))), nil
	case "lower":
		return strings.ToLower(toStr(firstOrNil(vals))), nil
	case "abs":
		return math.Abs(toFloat(firstOrNil(vals))), nil
	case "coalesce":
		for _, v := range vals {
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	case "count", "sum", "avg", "min", "max", "stdev":
		// Reaching here means the function was used outside an
		// aggregation context (e.g. in a bare WHERE/HAVING without a
		// preceding aggregation stage providing its value).
		return nil, userInputErr("UDF '%s' not found in WHERE clause", name)
	default:
		return nil, userInputErr("UDF '%s' not found in WHERE clause", name)
	}
}

func funcName(n map[string]any) string {
	names := mlist(n, "funcname")
	if len(names) == 0 {
		return ""
	}
	_, body := node(mmap(names[len(names)-1]))
	return mstr(body, "sval")
}

func firstOrNil(vals []any) any {
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toStr(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int64, int:
		return true
	default:
		return false
	}
}

func applyOp(op string, l, r any) (any, error) {
	switch op {
	case "=":
		return valuesEqual(l, r), nil
	case "<>", "!=":
		return !valuesEqual(l, r), nil
	case "<":
		return compareOrdered(l, r) < 0, nil
	case "<=":
		return compareOrdered(l, r) <= 0, nil
	case ">":
		return compareOrdered(l, r) > 0, nil
	case ">=":
		return compareOrdered(l, r) >= 0, nil
	case "+":
		return toFloat(l) + toFloat(r), nil
	case "-":
		if r == nil {
			return -toFloat(l), nil
		}
		return toFloat(l) - toFloat(r), nil
	case "*":
		return toFloat(l) * toFloat(r), nil
	case "/":
		rf := toFloat(r)
		if rf == 0 {
			return nil, nil
		}
		return toFloat(l) / rf, nil
	case "~~", "LIKE":
		return likeMatch(toStr(l), toStr(r)), nil
	default:
		return nil, userInputErr("unsupported operator %q", op)
	}
}

func valuesEqual(l, r any) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	if isNumeric(l) && isNumeric(r) {
		return toFloat(l) == toFloat(r)
	}
	return toStr(l) == toStr(r)
}

func compareOrdered(l, r any) int {
	if isNumeric(l) && isNumeric(r) {
		lf, rf := toFloat(l), toFloat(r)
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}
	ls, rs := toStr(l), toStr(r)
	return strings.Compare(ls, rs)
}

// likeMatch implements a minimal SQL LIKE: '%' -> any run, '_' -> any
// single char, everything else literal.
func likeMatch(s, pattern string) bool {
	return likeMatchRec([]rune(s), []rune(pattern))
}

func likeMatchRec(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatchRec(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRec(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRec(s[1:], p[1:])
	}
}
