package exec

import (
	"clarium/internal/ident"
	"clarium/internal/sqlast"
	"clarium/internal/storage"
)

// runSetOp evaluates a UNION/UNION ALL tree (INTERSECT/EXCEPT are not
// part of the clarium dialect and fall through to the default ALL
// behavior, matching the op string literally rather than special
// casing it). Column alignment is by position: the left side's column
// names and inferred types win (spec §4.4.3 UNION alignment), and
// plain UNION additionally de-duplicates by full-row equality.
func (ex *Executor) runSetOp(sel map[string]any, defaults ident.Defaults) (*storage.DataFrame, error) {
	op := mstr(sel, "op")
	all := mbool(sel, "all")

	larg := mget(mget(sel, "larg"), "SelectStmt")
	rarg := mget(mget(sel, "rarg"), "SelectStmt")

	left, err := ex.runSelectNode(larg, defaults, sqlast.Window{})
	if err != nil {
		return nil, err
	}
	right, err := ex.runSelectNode(rarg, defaults, sqlast.Window{})
	if err != nil {
		return nil, err
	}

	aligned := alignForUnion(left, right)
	out := storage.Concat([]*storage.DataFrame{left, aligned})

	if op == "SETOP_UNION" && !all {
		out = dedupeFrame(out)
	}
	return out, nil
}

// alignForUnion renames right's columns positionally to left's column
// names, per the UNION's implicit column-position correspondence.
func alignForUnion(left, right *storage.DataFrame) *storage.DataFrame {
	leftNames := left.Names()
	rightNames := right.Names()
	if len(leftNames) != len(rightNames) {
		// Width mismatch: keep right's own names so the Concat in the
		// caller still unions the schemas rather than silently
		// dropping columns.
		return right
	}
	types := make(map[string]storage.ColumnType, len(leftNames))
	for _, n := range leftNames {
		if t, ok := left.Type(n); ok {
			types[n] = t
		}
	}
	out := storage.NewDataFrame(leftNames, types)
	for i := 0; i < right.Height(); i++ {
		row := make(map[string]any, len(leftNames))
		for j, n := range leftNames {
			row[n] = right.Column(rightNames[j])[i]
		}
		out.AppendRow(row)
	}
	return out
}

func dedupeFrame(df *storage.DataFrame) *storage.DataFrame {
	names := df.Names()
	types := make(map[string]storage.ColumnType, len(names))
	for _, n := range names {
		if t, ok := df.Type(n); ok {
			types[n] = t
		}
	}
	out := storage.NewDataFrame(names, types)
	seen := map[string]bool{}
	for i := 0; i < df.Height(); i++ {
		row := df.Row(i)
		key := rowUnionKey(names, row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.AppendRow(row)
	}
	return out
}

func rowUnionKey(names []string, row map[string]any) string {
	var b []byte
	for _, n := range names {
		b = append(b, []byte(toStr(row[n]))...)
		b = append(b, 0x1f)
	}
	return string(b)
}
