package exec

import (
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/sqlast"
	"clarium/internal/storage"
)

// RunUpdate loads the full table, applies each row's assignments under
// the WHERE mask, re-validates the primary key, and rewrites the table
// (spec §4.4.3 UPDATE: "load full DataFrame -> WHERE mask -> per-
// assignment type-safe replace -> PK re-validation -> rewrite_table_df").
func (ex *Executor) RunUpdate(cmd *sqlast.Command, defaults ident.Defaults) (int, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return 0, fmt.Errorf("exec: deparse update: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return 0, err
	}
	upd := mget(firstStmt(tree), "UpdateStmt")
	if upd == nil {
		return 0, userInputErr("not an UPDATE statement")
	}

	rv := mget(upd, "relation")
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
	sc, err := ex.Store.LoadSchema(p)
	if err != nil {
		return 0, internalErr(err)
	}

	evctx := &evalCtx{exec: ex, defaults: defaults}
	whereNode := mget(upd, "whereClause")
	assignments := mlist(upd, "targetList")

	count := 0
	for i := 0; i < df.Height(); i++ {
		row := qualifyRow(df.Row(i), alias)
		if whereNode != nil {
			v, err := evctx.eval(whereNode, row)
			if err != nil {
				return 0, err
			}
			if !truthy(v) {
				continue
			}
		}
		count++
		for _, t := range assignments {
			rt := mget(mmap(t), "ResTarget")
			name := mstr(rt, "name")
			val := mget(rt, "val")
			v, err := evctx.eval(val, row)
			if err != nil {
				return 0, err
			}
			if !df.HasColumn(name) {
				return 0, userInputErr("UPDATE: column %q does not exist", name)
			}
			df.Column(name)[i] = v
		}
	}

	if count == 0 {
		return 0, nil
	}

	if len(sc.PrimaryKey) > 0 {
		if err := checkPrimaryKeyUnique(sc.PrimaryKey, df); err != nil {
			return 0, err
		}
	}

	if err := ex.Store.RewriteTableDF(p, df); err != nil {
		return 0, internalErr(err)
	}
	return count, nil
}

func checkPrimaryKeyUnique(pk []string, df *storage.DataFrame) error {
	seen := map[string]bool{}
	for i := 0; i < df.Height(); i++ {
		vals := make([]any, len(pk))
		for j, c := range pk {
			if df.HasColumn(c) {
				vals[j] = df.Column(c)[i]
			}
		}
		key := ident.CanonicalKey(pk, vals)
		if seen[key] {
			return conflictErr("primary_key_violation", "duplicate primary key %s after UPDATE", key)
		}
		seen[key] = true
	}
	return nil
}
