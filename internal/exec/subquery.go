package exec

import "clarium/internal/sqlast"

// evalSubLink evaluates `EXISTS (...)`, `x IN (SELECT ...)` /
// `x = ANY(SELECT ...)`, and scalar `(SELECT ...)` subqueries (spec
// §4.4.3 "WHERE with subqueries"). The nested SELECT runs against the
// same session defaults as the enclosing query and is fully
// materialized before the membership/existence test, since the engine
// has no lazy/streaming execution mode.
func (c *evalCtx) evalSubLink(n map[string]any, row map[string]any) (any, error) {
	subselectNode := mget(n, "subselect")
	selStmt := mget(subselectNode, "SelectStmt")
	if selStmt == nil {
		return nil, internalErr(errNotSelect)
	}
	df, err := c.exec.runSelectNode(selStmt, c.defaults, sqlast.Window{})
	if err != nil {
		return nil, err
	}

	switch mstr(n, "subLinkType") {
	case "EXISTS_SUBLINK":
		return df.Height() > 0, nil
	case "ANY_SUBLINK", "ALL_SUBLINK":
		testNode := mget(n, "testexpr")
		var left any
		if testNode != nil {
			left, err = c.eval(testNode, row)
			if err != nil {
				return nil, err
			}
		}
		if len(df.Names()) == 0 {
			return false, nil
		}
		col := df.Column(df.Names()[0])
		all := mstr(n, "subLinkType") == "ALL_SUBLINK"
		if all {
			for _, v := range col {
				if !valuesEqual(left, v) {
					return false, nil
				}
			}
			return true, nil
		}
		for _, v := range col {
			if valuesEqual(left, v) {
				return true, nil
			}
		}
		return false, nil
	default: // EXPR_SUBLINK: scalar subquery
		if df.Height() == 0 || len(df.Names()) == 0 {
			return nil, nil
		}
		return df.Column(df.Names()[0])[0], nil
	}
}

type subqueryError string

func (e subqueryError) Error() string { return string(e) }

const errNotSelect subqueryError = "exec: subselect node is not a SELECT"
