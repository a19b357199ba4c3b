package sqlast

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// VectorIndexDDL holds the operands of a CREATE VECTOR INDEX statement
// (spec §4.5 sidecar design, `.vindex` shape).
//
//	CREATE VECTOR INDEX <name> ON <table>(<column>)
//	  [METRIC l2|ip|cosine] [DIM <n>] [MODE IMMEDIATE|BATCHED|ASYNC|REBUILD_ONLY]
type VectorIndexDDL struct {
	Name   string
	Table  string
	Column string
	Metric string // "" => default resolved later (spec §4.5.3 precedence)
	Dim    int    // 0 => infer from first indexed vector
	Mode   string // "" => default REBUILD_ONLY
}

var vectorIndexRe = regexp.MustCompile(`(?is)^CREATE\s+VECTOR\s+INDEX\s+(\S+)\s+ON\s+(\S+?)\s*\(\s*(\S+?)\s*\)(.*)$`)
var metricOptRe = regexp.MustCompile(`(?i)METRIC\s+(\S+)`)
var dimOptRe = regexp.MustCompile(`(?i)DIM\s+(\d+)`)
var modeOptRe = regexp.MustCompile(`(?i)MODE\s+(\S+)`)

func parseCreateVectorIndex(sql string) (*Command, error) {
	m := vectorIndexRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("sqlast: malformed CREATE VECTOR INDEX: %q", sql)
	}
	ddl := VectorIndexDDL{Name: m[1], Table: m[2], Column: m[3]}
	rest := m[4]
	if mm := metricOptRe.FindStringSubmatch(rest); mm != nil {
		ddl.Metric = strings.ToLower(mm[1])
	}
	if mm := dimOptRe.FindStringSubmatch(rest); mm != nil {
		fmt.Sscanf(mm[1], "%d", &ddl.Dim)
	}
	if mm := modeOptRe.FindStringSubmatch(rest); mm != nil {
		ddl.Mode = strings.ToUpper(mm[1])
	}
	return &Command{Kind: KindCreateVectorIndex, Raw: sql, VectorIndex: ddl}, nil
}

// GraphDDL holds the operands of a CREATE GRAPH statement (spec §4.5
// sidecar design, `.graph` shape). The node/edge list is given as a
// JSON body, since no relational grammar covers it:
//
//	CREATE GRAPH <name> AS '{"nodes": [...], "edges": [...]}'
type GraphDDL struct {
	Name  string
	Nodes []GraphNodeDDL
	Edges []GraphEdgeDDL
}

type GraphNodeDDL struct {
	Label     string `json:"label"`
	Key       string `json:"key"`
	Table     string `json:"table,omitempty"`
	KeyColumn string `json:"key_column,omitempty"`
}

type GraphEdgeDDL struct {
	Type        string `json:"type"`
	From        string `json:"from"`
	To          string `json:"to"`
	Table       string `json:"table,omitempty"`
	SrcColumn   string `json:"src_column,omitempty"`
	DstColumn   string `json:"dst_column,omitempty"`
	CostColumn  string `json:"cost_column,omitempty"`
	TimeColumn  string `json:"time_column,omitempty"`
}

var graphHeaderRe = regexp.MustCompile(`(?is)^CREATE\s+GRAPH\s+(\S+)\s+AS\s+'(.*)'\s*;?\s*$`)

func parseCreateGraph(sql string) (*Command, error) {
	m := graphHeaderRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("sqlast: malformed CREATE GRAPH: %q", sql)
	}
	var body struct {
		Nodes []GraphNodeDDL `json:"nodes"`
		Edges []GraphEdgeDDL `json:"edges"`
	}
	if err := json.Unmarshal([]byte(m[2]), &body); err != nil {
		return nil, fmt.Errorf("sqlast: CREATE GRAPH body: %w", err)
	}
	return &Command{
		Kind:  KindCreateGraph,
		Raw:   sql,
		Graph: GraphDDL{Name: m[1], Nodes: body.Nodes, Edges: body.Edges},
	}, nil
}

var renameTableRe = regexp.MustCompile(`(?is)^RENAME\s+TABLE\s+(\S+)\s+TO\s+(\S+)\s*;?\s*$`)

func parseRenameTable(sql string) (*Command, error) {
	m := renameTableRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("sqlast: malformed RENAME TABLE: %q", sql)
	}
	cmd := &Command{Kind: KindRenameTable, Raw: sql}
	cmd.RenameTable.From = m[1]
	cmd.RenameTable.To = m[2]
	return cmd, nil
}

var buildVectorIndexRe = regexp.MustCompile(`(?is)^BUILD\s+VECTOR\s+INDEX\s+(\S+?)\s*;?\s*$`)

// parseBuildVectorIndex handles `BUILD VECTOR INDEX name` (spec §4.5.2):
// unlike CREATE VECTOR INDEX, which only registers the `.vindex`
// sidecar, BUILD validates the index's source table/column still exist
// and refreshes the sidecar's build status.
func parseBuildVectorIndex(sql string) (*Command, error) {
	m := buildVectorIndexRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("sqlast: malformed BUILD VECTOR INDEX: %q", sql)
	}
	cmd := &Command{Kind: KindBuildVectorIndex, Raw: sql}
	cmd.VectorIndex.Name = m[1]
	return cmd, nil
}

var deleteColumnsRe = regexp.MustCompile(`(?is)^DELETE\s+COLUMNS\s*\(([^)]*)\)\s+FROM\s+(\S+)(\s+WHERE\s+(.*))?;?\s*$`)

func parseDeleteColumns(sql string) (*Command, error) {
	m := deleteColumnsRe.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("sqlast: malformed DELETE COLUMNS: %q", sql)
	}
	var cols []string
	for _, c := range strings.Split(m[1], ",") {
		cols = append(cols, strings.TrimSpace(c))
	}
	cmd := &Command{Kind: KindDeleteColumns, Raw: sql}
	cmd.DeleteColumns.Table = m[2]
	cmd.DeleteColumns.Columns = cols
	cmd.DeleteColumns.Where = strings.TrimSpace(m[4])
	return cmd, nil
}
