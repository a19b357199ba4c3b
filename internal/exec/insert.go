package exec

import (
	"fmt"

	"clarium/internal/ident"
	"clarium/internal/ingest"
	"clarium/internal/sqlast"
)

// RunInsert executes INSERT ... VALUES and INSERT ... SELECT (spec
// §4.3 / §4.4.3), returning the number of rows written.
func (ex *Executor) RunInsert(cmd *sqlast.Command, defaults ident.Defaults) (int, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return 0, fmt.Errorf("exec: deparse insert: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return 0, err
	}
	ins := mget(firstStmt(tree), "InsertStmt")
	if ins == nil {
		return 0, userInputErr("not an INSERT statement")
	}

	rv := mget(ins, "relation")
	p := rangeVarPath(rv, defaults)

	var explicitCols []string
	for _, c := range mlist(ins, "cols") {
		rt := mget(mmap(c), "ResTarget")
		explicitCols = append(explicitCols, mstr(rt, "name"))
	}

	selWrapper := mget(ins, "selectStmt")
	selectNode := mget(selWrapper, "SelectStmt")
	if selectNode == nil {
		return 0, userInputErr("INSERT requires a VALUES or SELECT source")
	}

	ex.Store.Lock()
	exists := ex.Store.TableExists(p)
	ex.Store.Unlock()
	if !exists {
		return 0, notFoundErr("relation %q does not exist", p.Table)
	}

	if valuesLists := mlist(selectNode, "valuesLists"); len(valuesLists) > 0 {
		cols := explicitCols
		if len(cols) == 0 {
			ex.Store.Lock()
			sc, err := ex.Store.LoadSchema(p)
			ex.Store.Unlock()
			if err != nil {
				return 0, internalErr(err)
			}
			cols = sc.ColumnOrder
		}

		evctx := &evalCtx{exec: ex, defaults: defaults}
		var rows []map[string]any
		for _, vl := range valuesLists {
			itemNodes := mlist(mget(mmap(vl), "List"), "items")
			if len(explicitCols) > 0 && len(itemNodes) != len(explicitCols) {
				return 0, userInputErr("INSERT value count mismatch: expected %d columns", len(explicitCols))
			}
			row := make(map[string]any, len(itemNodes))
			for i, en := range itemNodes {
				v, err := evctx.eval(mmap(en), map[string]any{})
				if err != nil {
					return 0, err
				}
				name := fmt.Sprintf("col%d", i+1)
				if i < len(cols) {
					name = cols[i]
				}
				row[name] = v
			}
			rows = append(rows, row)
		}

		colOrder := cols
		if len(colOrder) < len(rows[0]) {
			for i := len(colOrder); i < len(rows[0]); i++ {
				colOrder = append(colOrder, fmt.Sprintf("col%d", i+1))
			}
		}

		ex.Store.Lock()
		defer ex.Store.Unlock()
		if err := ingest.InsertRows(ex.Store, p, rows, colOrder); err != nil {
			return 0, err
		}
		return len(rows), nil
	}

	sourceDF, err := ex.runSelectNode(selectNode, defaults, sqlast.Window{})
	if err != nil {
		return 0, err
	}

	ex.Store.Lock()
	defer ex.Store.Unlock()
	if err := ingest.InsertSelect(ex.Store, p, explicitCols, sourceDF); err != nil {
		return 0, err
	}
	return sourceDF.Height(), nil
}
