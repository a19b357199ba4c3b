package exec

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/sqlast"
	"clarium/internal/storage"
)

// RunDDL dispatches every non-relational-DML statement kind (spec
// §4.4.3/§4.5): table lifecycle, views, vector indexes, graphs.
func (ex *Executor) RunDDL(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	switch cmd.Kind {
	case sqlast.KindCreateTable:
		return ex.createTable(cmd, defaults)
	case sqlast.KindDropTable:
		return ex.dropTable(cmd, defaults)
	case sqlast.KindAlterTable:
		return ex.alterTable(cmd, defaults)
	case sqlast.KindRenameTable:
		return ex.renameTable(cmd, defaults)
	case sqlast.KindCreateView:
		return ex.createView(cmd, defaults)
	case sqlast.KindCreateVectorIndex:
		return ex.createVectorIndex(cmd, defaults)
	case sqlast.KindBuildVectorIndex:
		return ex.buildVectorIndex(cmd, defaults)
	case sqlast.KindCreateGraph:
		return ex.createGraph(cmd, defaults)
	default:
		return "", userInputErr("unsupported DDL statement")
	}
}

func pgTypeToColumnType(tn map[string]any) storage.ColumnType {
	names := mlist(tn, "names")
	if len(names) == 0 {
		return storage.TypeString
	}
	_, body := node(mmap(names[len(names)-1]))
	switch strings.ToLower(mstr(body, "sval")) {
	case "int4", "int8", "int2", "integer", "bigint", "smallint":
		return storage.TypeInt64
	case "float4", "float8", "real", "numeric", "decimal":
		return storage.TypeFloat64
	case "bool", "boolean":
		return storage.TypeBool
	case "vector":
		return storage.TypeVector
	default:
		return storage.TypeString
	}
}

func (ex *Executor) createTable(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return "", fmt.Errorf("exec: deparse create table: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return "", err
	}
	cs := mget(firstStmt(tree), "CreateStmt")
	if cs == nil {
		return "", userInputErr("not a CREATE TABLE statement")
	}

	p := rangeVarPath(mget(cs, "relation"), defaults)

	ex.Store.Lock()
	defer ex.Store.Unlock()
	if ex.Store.TableExists(p) {
		return "", conflictErr("relation_exists", "relation %q already exists", p.Table)
	}
	if err := ex.Store.CreateTable(p); err != nil {
		return "", internalErr(err)
	}

	var cols []string
	types := map[string]storage.ColumnType{}
	var pk []string
	for _, el := range mlist(cs, "tableElts") {
		cd := mget(mmap(el), "ColumnDef")
		if cd == nil {
			continue
		}
		name := mstr(cd, "colname")
		cols = append(cols, name)
		types[name] = pgTypeToColumnType(mget(cd, "typeName"))
		for _, cons := range mlist(cd, "constraints") {
			c := mget(mmap(cons), "Constraint")
			if mstr(c, "contype") == "CONSTR_PRIMARY" {
				pk = append(pk, name)
			}
		}
	}
	for _, cons := range mlist(cs, "constraints") {
		c := mget(mmap(cons), "Constraint")
		if mstr(c, "contype") == "CONSTR_PRIMARY" {
			for _, k := range mlist(c, "keys") {
				_, body := node(mmap(k))
				pk = append(pk, mstr(body, "sval"))
			}
		}
	}

	if len(cols) > 0 {
		typeList := make([]storage.ColumnType, len(cols))
		for i, c := range cols {
			typeList[i] = types[c]
		}
		if err := ex.Store.SchemaAdd(p, cols, typeList); err != nil {
			return "", internalErr(err)
		}
	}
	if len(pk) > 0 {
		sc, err := ex.Store.LoadSchema(p)
		if err != nil {
			return "", internalErr(err)
		}
		sc.PrimaryKey = pk
		if err := ex.Store.SaveSchema(p, sc); err != nil {
			return "", internalErr(err)
		}
	}
	return "CREATE TABLE", nil
}

func (ex *Executor) dropTable(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return "", fmt.Errorf("exec: deparse drop table: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return "", err
	}
	ds := mget(firstStmt(tree), "DropStmt")
	if ds == nil {
		return "", userInputErr("not a DROP TABLE statement")
	}
	objs := mlist(ds, "objects")
	if len(objs) == 0 {
		return "", userInputErr("DROP TABLE requires a relation name")
	}
	nameList := mget(mmap(objs[0]), "List")
	var parts []string
	for _, it := range mlist(nameList, "items") {
		_, body := node(mmap(it))
		parts = append(parts, mstr(body, "sval"))
	}
	p := ident.Resolve(strings.Join(parts, "."), defaults)

	ex.Store.Lock()
	defer ex.Store.Unlock()
	if !ex.Store.TableExists(p) {
		if mbool(ds, "missing_ok") {
			return "DROP TABLE", nil
		}
		return "", notFoundErr("relation %q does not exist", p.Table)
	}
	if err := ex.Store.DeleteTable(p); err != nil {
		return "", internalErr(err)
	}
	return "DROP TABLE", nil
}

func (ex *Executor) alterTable(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	deparsed, err := cmd.Deparse()
	if err != nil {
		return "", fmt.Errorf("exec: deparse alter table: %w", err)
	}
	tree, err := parseJSON(deparsed)
	if err != nil {
		return "", err
	}
	stmt := firstStmt(tree)

	if rs := mget(stmt, "RenameStmt"); rs != nil {
		return ex.renameColumnStmt(rs, defaults)
	}

	at := mget(stmt, "AlterTableStmt")
	if at == nil {
		return "", userInputErr("not an ALTER TABLE statement")
	}
	p := rangeVarPath(mget(at, "relation"), defaults)

	ex.Store.Lock()
	defer ex.Store.Unlock()
	if !ex.Store.TableExists(p) {
		return "", notFoundErr("relation %q does not exist", p.Table)
	}

	for _, c := range mlist(at, "cmds") {
		acmd := mget(mmap(c), "AlterTableCmd")
		if acmd == nil {
			continue
		}
		if err := ex.runAlterTableCmd(p, acmd); err != nil {
			return "", err
		}
	}
	return "ALTER TABLE", nil
}

// renameColumnStmt handles `ALTER TABLE t RENAME COLUMN a TO b` (and the
// bare `ALTER TABLE t RENAME TO newname` table-rename form), both of
// which pg_query parses as a RenameStmt rather than an AlterTableCmd.
func (ex *Executor) renameColumnStmt(rs map[string]any, defaults ident.Defaults) (string, error) {
	p := rangeVarPath(mget(rs, "relation"), defaults)
	newname := mstr(rs, "newname")

	ex.Store.Lock()
	defer ex.Store.Unlock()
	if !ex.Store.TableExists(p) {
		return "", notFoundErr("relation %q does not exist", p.Table)
	}

	if mstr(rs, "renameType") != "OBJECT_COLUMN" {
		to := ident.Resolve(newname, defaults)
		if ex.Store.TableExists(to) {
			return "", conflictErr("relation_exists", "relation %q already exists", to.Table)
		}
		if err := ex.Store.RenameTable(p, to); err != nil {
			return "", internalErr(err)
		}
		return "ALTER TABLE", nil
	}

	oldname := mstr(rs, "subname")
	df, err := ex.Store.ReadDF(p)
	if err != nil {
		return "", internalErr(err)
	}
	if !df.HasColumn(oldname) {
		return "", notFoundErr("column %q does not exist", oldname)
	}
	if err := ex.Store.RewriteTableDF(p, renameColumn(df, oldname, newname)); err != nil {
		return "", internalErr(err)
	}

	sc, err := ex.Store.LoadSchema(p)
	if err != nil {
		return "", internalErr(err)
	}
	if t, ok := sc.Columns[oldname]; ok {
		delete(sc.Columns, oldname)
		sc.Columns[newname] = t
	}
	for i, n := range sc.ColumnOrder {
		if n == oldname {
			sc.ColumnOrder[i] = newname
		}
	}
	for i, n := range sc.PrimaryKey {
		if n == oldname {
			sc.PrimaryKey[i] = newname
		}
	}
	for i, n := range sc.Locks {
		if n == oldname {
			sc.Locks[i] = newname
		}
	}
	return "ALTER TABLE", internalErrIfFailed(ex.Store.SaveSchema(p, sc))
}

// renameColumn rebuilds df with oldname's column relabeled to newname,
// preserving declared order and values.
func renameColumn(df *storage.DataFrame, oldname, newname string) *storage.DataFrame {
	names := df.Names()
	types := df.TypesMap()
	t := types[oldname]
	delete(types, oldname)
	types[newname] = t
	for i, n := range names {
		if n == oldname {
			names[i] = newname
		}
	}
	out := storage.NewDataFrame(names, types)
	for i := 0; i < df.Height(); i++ {
		row := df.Row(i)
		row[newname] = row[oldname]
		delete(row, oldname)
		out.AppendRow(row)
	}
	return out
}

// runAlterTableCmd dispatches one AlterTableCmd subtype (spec §4.4.7:
// ADD/ALTER COLUMN, ADD/DROP PRIMARY KEY, ADD/DROP CONSTRAINT). The
// store lock is already held by the caller.
func (ex *Executor) runAlterTableCmd(p ident.Path, acmd map[string]any) error {
	switch mstr(acmd, "subtype") {
	case "AT_AddColumn":
		coldef := mget(mget(acmd, "def"), "ColumnDef")
		name := mstr(coldef, "colname")
		t := pgTypeToColumnType(mget(coldef, "typeName"))
		if err := ex.Store.SchemaAdd(p, []string{name}, []storage.ColumnType{t}); err != nil {
			return internalErr(err)
		}
		return nil

	case "AT_DropColumn":
		name := mstr(acmd, "name")
		df, err := ex.Store.ReadDF(p)
		if err != nil {
			return internalErr(err)
		}
		keep := make([]string, 0, len(df.Names()))
		for _, n := range df.Names() {
			if n != name {
				keep = append(keep, n)
			}
		}
		if err := ex.Store.RewriteTableDF(p, df.Select(keep)); err != nil {
			return internalErr(err)
		}
		sc, err := ex.Store.LoadSchema(p)
		if err != nil {
			return internalErr(err)
		}
		delete(sc.Columns, name)
		sc.ColumnOrder = removeString(sc.ColumnOrder, name)
		sc.Locks = removeString(sc.Locks, name)
		sc.PrimaryKey = removeString(sc.PrimaryKey, name)
		return internalErrIfFailed(ex.Store.SaveSchema(p, sc))

	case "AT_AlterColumnType":
		name := mstr(acmd, "name")
		coldef := mget(mget(acmd, "def"), "ColumnDef")
		t := pgTypeToColumnType(mget(coldef, "typeName"))
		sc, err := ex.Store.LoadSchema(p)
		if err != nil {
			return internalErr(err)
		}
		if _, ok := sc.Columns[name]; !ok {
			return notFoundErr("column %q does not exist", name)
		}
		sc.Columns[name] = t
		return internalErrIfFailed(ex.Store.SaveSchema(p, sc))

	case "AT_AddConstraint":
		c := mget(acmd, "def")
		cons := mget(c, "Constraint")
		sc, err := ex.Store.LoadSchema(p)
		if err != nil {
			return internalErr(err)
		}
		switch mstr(cons, "contype") {
		case "CONSTR_PRIMARY":
			var keys []string
			for _, k := range mlist(cons, "keys") {
				_, body := node(mmap(k))
				keys = append(keys, mstr(body, "sval"))
			}
			sc.PrimaryKey = keys
		default:
			// CHECK (and any constraint referencing a registered UDF)
			// is tracked by name only: enforcement against DML is not
			// implemented, only existence/name-collision bookkeeping.
			name := mstr(cons, "conname")
			if name == "" {
				name = fmt.Sprintf("anon_constraint_%d", len(sc.Constraints)+1)
			}
			for _, existing := range sc.Constraints {
				if existing == name {
					return conflictErr("name_conflict", "constraint %q already exists", name)
				}
			}
			sc.Constraints = append(sc.Constraints, name)
		}
		return internalErrIfFailed(ex.Store.SaveSchema(p, sc))

	case "AT_DropConstraint":
		name := mstr(acmd, "name")
		sc, err := ex.Store.LoadSchema(p)
		if err != nil {
			return internalErr(err)
		}
		if len(sc.Constraints) > 0 && sliceContains(sc.Constraints, name) {
			sc.Constraints = removeString(sc.Constraints, name)
			return internalErrIfFailed(ex.Store.SaveSchema(p, sc))
		}
		if len(sc.PrimaryKey) > 0 {
			sc.PrimaryKey = nil
			return internalErrIfFailed(ex.Store.SaveSchema(p, sc))
		}
		return notFoundErr("constraint %q does not exist", name)

	default:
		return userInputErr("unsupported ALTER TABLE subcommand %q", mstr(acmd, "subtype"))
	}
}

func sliceContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func (ex *Executor) renameTable(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	from := ident.Resolve(cmd.RenameTable.From, defaults)
	to := ident.Resolve(cmd.RenameTable.To, defaults)

	ex.Store.Lock()
	defer ex.Store.Unlock()
	if !ex.Store.TableExists(from) {
		return "", notFoundErr("relation %q does not exist", from.Table)
	}
	if ex.Store.TableExists(to) {
		return "", conflictErr("relation_exists", "relation %q already exists", to.Table)
	}
	if err := ex.Store.RenameTable(from, to); err != nil {
		return "", internalErr(err)
	}
	return "RENAME TABLE", nil
}

var createViewRe = regexp.MustCompile(`(?is)^CREATE\s+VIEW\s+(\S+)\s+AS\s+(.*?);?\s*$`)

func (ex *Executor) createView(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	m := createViewRe.FindStringSubmatch(strings.TrimSpace(cmd.Raw))
	if m == nil {
		return "", userInputErr("malformed CREATE VIEW")
	}
	name, query := m[1], m[2]

	innerCmd, err := sqlast.Parse(query)
	if err != nil {
		return "", userInputErr("invalid view query: %s", err.Error())
	}
	df, err := ex.RunSelect(innerCmd, defaults)
	if err != nil {
		return "", err
	}

	p := ident.Resolve(name, defaults)
	if err := ex.Sidecar.Reserve(p.Database, p.Schema, p.Table, "view"); err != nil {
		return "", conflictErr("name_conflict", "%s", err.Error())
	}
	columns, types := sidecar.DeriveViewSchema(df)
	v := sidecar.View{Name: p.Table, Query: query, Columns: columns, Types: types}
	if err := ex.Sidecar.WriteView(p.Database, p.Schema, v); err != nil {
		return "", internalErr(err)
	}
	return "CREATE VIEW", nil
}

func (ex *Executor) createVectorIndex(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	vi := cmd.VectorIndex
	tablePath := ident.Resolve(vi.Table, defaults)

	ex.Store.Lock()
	exists := ex.Store.TableExists(tablePath)
	ex.Store.Unlock()
	if !exists {
		return "", notFoundErr("relation %q does not exist", vi.Table)
	}

	metric := vi.Metric
	if metric == "" {
		metric = "l2"
	}
	mode := vi.Mode
	if mode == "" {
		mode = "REBUILD_ONLY"
	}

	p := ident.Resolve(vi.Name, defaults)
	if err := ex.Sidecar.Reserve(p.Database, p.Schema, p.Table, "vector_index"); err != nil {
		return "", conflictErr("name_conflict", "%s", err.Error())
	}
	out := sidecar.VectorIndex{Name: vi.Name, Table: vi.Table, Column: vi.Column, Metric: metric, Dim: vi.Dim, Mode: mode}
	if err := ex.Sidecar.WriteVectorIndex(p.Database, p.Schema, out); err != nil {
		return "", internalErr(err)
	}
	return "CREATE VECTOR INDEX", nil
}

// buildVectorIndex implements `BUILD VECTOR INDEX name` (spec §4.5.2):
// scans the index's source column, counting rows that pass the
// dimensionality check, and refreshes the `.vindex` sidecar's build
// status. Per the always-exact-scoring design (search computes scores
// fresh from the base table on every call), no `.vdata` payload is
// persisted here; BUILD's job is validation plus status bookkeeping.
func (ex *Executor) buildVectorIndex(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	start := time.Now()
	name := cmd.VectorIndex.Name
	p := ident.Resolve(name, defaults)

	vi, err := ex.Sidecar.ReadVectorIndex(p.Database, p.Schema, p.Table)
	if err != nil {
		return "", notFoundErr("vector index %q does not exist", name)
	}

	tablePath := ident.Resolve(vi.Table, defaults)
	ex.Store.Lock()
	exists := ex.Store.TableExists(tablePath)
	var df *storage.DataFrame
	if exists {
		df, err = ex.Store.ReadDF(tablePath)
	}
	ex.Store.Unlock()
	if !exists {
		return "", notFoundErr("relation %q does not exist", vi.Table)
	}
	if err != nil {
		return "", internalErr(err)
	}
	if !df.HasColumn(vi.Column) {
		return "", notFoundErr("vector column %q not found on %s", vi.Column, vi.Table)
	}

	dim := vi.Dim
	rowsIndexed, rowsSkipped := 0, 0
	for _, raw := range df.Column(vi.Column) {
		vec, ok := sidecar.AsFloatVector(raw)
		if !ok {
			rowsSkipped++
			continue
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			rowsSkipped++
			continue
		}
		rowsIndexed++
	}

	vi.Dim = dim
	vi.State = "built"
	vi.RowsIndexed = rowsIndexed
	vi.RowsSkipped = rowsSkipped
	vi.Engine = "flat"
	vi.BuildTimeMs = time.Since(start).Milliseconds()
	if err := ex.Sidecar.WriteVectorIndex(p.Database, p.Schema, *vi); err != nil {
		return "", internalErr(err)
	}
	return "BUILD VECTOR INDEX", nil
}

func (ex *Executor) createGraph(cmd *sqlast.Command, defaults ident.Defaults) (string, error) {
	g := cmd.Graph
	p := ident.Resolve(g.Name, defaults)
	if err := ex.Sidecar.Reserve(p.Database, p.Schema, p.Table, "graph"); err != nil {
		return "", conflictErr("name_conflict", "%s", err.Error())
	}

	out := sidecar.Graph{Name: g.Name}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, sidecar.GraphNode{Label: n.Label, Key: n.Key, Table: n.Table, KeyColumn: n.KeyColumn})
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, sidecar.GraphEdge{
			Type: e.Type, From: e.From, To: e.To, Table: e.Table,
			SrcColumn: e.SrcColumn, DstColumn: e.DstColumn,
			CostColumn: e.CostColumn, TimeColumn: e.TimeColumn,
		})
	}
	if err := ex.Sidecar.WriteGraph(p.Database, p.Schema, out); err != nil {
		return "", internalErr(err)
	}
	return "CREATE GRAPH", nil
}
