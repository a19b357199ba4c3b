package exec

import "fmt"

// joinRows computes the rowSet resulting from joining left and right
// under jointype ("JOIN_INNER", "JOIN_LEFT", "JOIN_RIGHT", "JOIN_FULL")
// with the given quals (nil means an unconditional cross join). A
// single top-level equi-join predicate (`a.x = b.y`) runs as a hash
// join; anything else falls back to a nested-loop scan evaluating the
// full predicate per candidate pair (spec §4.4.3 joins).
func (ex *Executor) joinRows(jointype string, left, right *rowSet, quals map[string]any, evctx *evalCtx) (*rowSet, error) {
	out := &rowSet{cols: append(append([]colRef{}, left.cols...), right.cols...)}
	matchedRight := make([]bool, len(right.rows))

	nullRightRow := func() map[string]any {
		row := make(map[string]any, len(right.cols)*2)
		for _, c := range right.cols {
			row[c.name] = nil
			row[c.alias+"."+c.name] = nil
		}
		return row
	}
	nullLeftRow := func() map[string]any {
		row := make(map[string]any, len(left.cols)*2)
		for _, c := range left.cols {
			row[c.name] = nil
			row[c.alias+"."+c.name] = nil
		}
		return row
	}
	addRow := func(l, r map[string]any) {
		row := make(map[string]any, len(l)+len(r))
		for k, v := range l {
			row[k] = v
		}
		for k, v := range r {
			row[k] = v
		}
		out.rows = append(out.rows, row)
	}

	leftKey, rightKey := equiJoinKeys(quals)
	if leftKey != "" && rightKey != "" {
		idx := map[string][]int{}
		for i, r := range right.rows {
			v, _ := lookupColumn(r, rightKey)
			idx[fmt.Sprintf("%v", v)] = append(idx[fmt.Sprintf("%v", v)], i)
		}
		for _, l := range left.rows {
			lv, _ := lookupColumn(l, leftKey)
			matches := idx[fmt.Sprintf("%v", lv)]
			if len(matches) == 0 {
				if jointype == "JOIN_LEFT" || jointype == "JOIN_FULL" {
					addRow(l, nullRightRow())
				}
				continue
			}
			for _, ri := range matches {
				matchedRight[ri] = true
				addRow(l, right.rows[ri])
			}
		}
	} else {
		for _, l := range left.rows {
			matchedAny := false
			for ri, r := range right.rows {
				ok := true
				if quals != nil {
					merged := make(map[string]any, len(l)+len(r))
					for k, v := range l {
						merged[k] = v
					}
					for k, v := range r {
						merged[k] = v
					}
					v, err := evctx.eval(quals, merged)
					if err != nil {
						return nil, err
					}
					ok = truthy(v)
				}
				if ok {
					matchedRight[ri] = true
					matchedAny = true
					addRow(l, r)
				}
			}
			if !matchedAny && (jointype == "JOIN_LEFT" || jointype == "JOIN_FULL") {
				addRow(l, nullRightRow())
			}
		}
	}

	if jointype == "JOIN_RIGHT" || jointype == "JOIN_FULL" {
		for ri, matched := range matchedRight {
			if !matched {
				addRow(nullLeftRow(), right.rows[ri])
			}
		}
	}

	return out, nil
}

// equiJoinKeys recognizes a single top-level `colref = colref` join
// predicate, returning the two column keys to hash on. Anything more
// complex (AND of several conditions, non-column operands) returns
// ("", "") so the caller falls back to a nested-loop scan.
func equiJoinKeys(q map[string]any) (string, string) {
	if q == nil {
		return "", ""
	}
	tag, body := node(q)
	if tag != "A_Expr" {
		return "", ""
	}
	opNames := mlist(body, "name")
	if len(opNames) != 1 {
		return "", ""
	}
	_, opBody := node(mmap(opNames[0]))
	if mstr(opBody, "sval") != "=" {
		return "", ""
	}
	ln, lok := colRefFrom(mget(body, "lexpr"))
	rn, rok := colRefFrom(mget(body, "rexpr"))
	if !lok || !rok {
		return "", ""
	}
	return ln, rn
}

func colRefFrom(n map[string]any) (string, bool) {
	if n == nil {
		return "", false
	}
	tag, body := node(n)
	if tag != "ColumnRef" {
		return "", false
	}
	return columnRefName(body)
}
