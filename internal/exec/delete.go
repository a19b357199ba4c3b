package exec

import (
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/sqlast"
	"clarium/internal/storage"
)

// RunDelete implements DELETE FROM t [WHERE ...]: rows matching WHERE
// are dropped, the survivors are rewritten whole (no WHERE deletes
// everything).
func (ex *Executor) RunDelete(cmd *sqlast.Command, defaults ident.Defaults) (int, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return 0, fmt.Errorf("exec: deparse delete: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return 0, err
	}
	del := mget(firstStmt(tree), "DeleteStmt")
	if del == nil {
		return 0, userInputErr("not a DELETE statement")
	}

	rv := mget(del, "relation")
	p := rangeVarPath(rv, defaults)
	alias := rangeVarAlias(rv)

	ex.Store.Lock()
	defer ex.Store.Unlock()

	if !ex.Store.TableExists(p) {
		return 0, notFoundErr("relation %q does not exist", p.Table)
	}
	df, err := ex.Store.ReadDF(p)
	if err != nil {
		return 0, internalErr(err)
	}

	evctx := &evalCtx{exec: ex, defaults: defaults}
	whereNode := mget(del, "whereClause")

	survivors := storage.NewDataFrame(df.Names(), df.TypesMap())
	deleted := 0
	for i := 0; i < df.Height(); i++ {
		row := qualifyRow(df.Row(i), alias)
		match := true
		if whereNode != nil {
			v, err := evctx.eval(whereNode, row)
			if err != nil {
				return 0, err
			}
			match = truthy(v)
		}
		if match {
			deleted++
			continue
		}
		survivors.AppendRow(df.Row(i))
	}

	if deleted == 0 {
		return 0, nil
	}
	if err := ex.Store.RewriteTableDF(p, survivors); err != nil {
		return 0, internalErr(err)
	}
	return deleted, nil
}

// RunDeleteColumns implements the clarium-only `DELETE COLUMNS (...)
// FROM t [WHERE ...]` form: with no WHERE the named columns are
// dropped from the schema entirely; with a WHERE, only the matching
// rows' values in those columns are cleared to null.
func (ex *Executor) RunDeleteColumns(cmd *sqlast.Command, defaults ident.Defaults) error {
	spec := cmd.DeleteColumns
	p := ident.Resolve(spec.Table, defaults)

	ex.Store.Lock()
	defer ex.Store.Unlock()

	if !ex.Store.TableExists(p) {
		return notFoundErr("relation %q does not exist", spec.Table)
	}
	df, err := ex.Store.ReadDF(p)
	if err != nil {
		return internalErr(err)
	}

	if spec.Where == "" {
		keep := make([]string, 0, len(df.Names()))
		drop := map[string]bool{}
		for _, c := range spec.Columns {
			drop[c] = true
		}
		for _, n := range df.Names() {
			if !drop[n] {
				keep = append(keep, n)
			}
		}
		reduced := df.Select(keep)
		if err := ex.Store.RewriteTableDF(p, reduced); err != nil {
			return internalErr(err)
		}
		sc, err := ex.Store.LoadSchema(p)
		if err != nil {
			return internalErr(err)
		}
		for _, c := range spec.Columns {
			delete(sc.Columns, c)
			sc.ColumnOrder = removeString(sc.ColumnOrder, c)
			sc.Locks = removeString(sc.Locks, c)
		}
		return internalErrIfFailed(ex.Store.SaveSchema(p, sc))
	}

	whereNode, err := wrappedWhereNode(spec.Table, spec.Where)
	if err != nil {
		return err
	}
	evctx := &evalCtx{exec: ex, defaults: defaults}
	for i := 0; i < df.Height(); i++ {
		row := qualifyRow(df.Row(i), spec.Table)
		v, err := evctx.eval(whereNode, row)
		if err != nil {
			return err
		}
		if !truthy(v) {
			continue
		}
		for _, c := range spec.Columns {
			if df.HasColumn(c) {
				df.Column(c)[i] = nil
			}
		}
	}
	return internalErrIfFailed(ex.Store.RewriteTableDF(p, df))
}

func wrappedWhereNode(table, whereText string) (map[string]any, error) {
	sql := fmt.Sprintf("SELECT 1 FROM %s WHERE %s", table, whereText)
	tree, err := parseJSON(sql)
	if err != nil {
		return nil, userInputErr("invalid WHERE clause: %s", err.Error())
	}
	sel := mget(firstStmt(tree), "SelectStmt")
	return mget(sel, "whereClause"), nil
}

func removeString(ss []string, v string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func internalErrIfFailed(err error) error {
	if err == nil {
		return nil
	}
	return internalErr(err)
}
