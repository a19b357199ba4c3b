// Package ident resolves bare and partially-qualified clarium table
// identifiers against session defaults into canonical storage paths.
package ident

import "strings"

// Defaults carries the session's default database/schema, used to fill
// in identifiers that don't fully qualify a table.
type Defaults struct {
	Database string
	Schema   string
}

// DefaultDefaults is what a fresh session starts with.
func DefaultDefaults() Defaults {
	return Defaults{Database: "clarium", Schema: "public"}
}

// Path is a resolved canonical "db/schema/table" identifier, optionally
// marked as a time-series table (".time" suffix preserved).
type Path struct {
	Database string
	Schema   string
	Table    string
	IsTime   bool
}

// String renders the canonical "db/schema/table[.time]" form.
func (p Path) String() string {
	t := p.Table
	if p.IsTime {
		t += ".time"
	}
	return p.Database + "/" + p.Schema + "/" + t
}

// Dir renders the on-disk directory path (no ".time" suffix — that is
// carried in tableType, not the directory name).
func (p Path) Dir() string {
	return p.Database + "/" + p.Schema + "/" + p.Table
}

// Resolve normalizes an input identifier against session defaults.
//
//	t          -> <default_db>/<default_schema>/t
//	s.t        -> <default_db>/s/t
//	d.s.t      -> d/s/t
//	d/s/t      -> d/s/t (already canonical)
//
// Dots inside quoted segments ("...") are literal; an input already
// containing "/" is treated as pre-canonicalized and split on "/"
// instead of ".". A trailing ".time" segment is stripped before
// splitting and re-appended after normalization.
func Resolve(input string, def Defaults) Path {
	s := strings.TrimSpace(input)

	isTime := false
	if strings.HasSuffix(s, ".time") && !strings.HasSuffix(s, `".time"`) {
		s = strings.TrimSuffix(s, ".time")
		isTime = true
	}

	var segs []string
	if strings.Contains(s, "/") {
		segs = strings.Split(s, "/")
	} else {
		segs = splitDotted(s)
	}
	for i, seg := range segs {
		segs[i] = unquote(seg)
	}

	switch len(segs) {
	case 1:
		return Path{Database: def.Database, Schema: def.Schema, Table: segs[0], IsTime: isTime}
	case 2:
		return Path{Database: def.Database, Schema: segs[0], Table: segs[1], IsTime: isTime}
	default:
		// d.s.t[...] -- join anything beyond the third segment back into
		// the table name (defensive; canonical input never has more).
		table := strings.Join(segs[2:], ".")
		return Path{Database: segs[0], Schema: segs[1], Table: table, IsTime: isTime}
	}
}

// splitDotted splits on '.' while treating double-quoted spans as
// literal (a quoted identifier may itself contain dots).
func splitDotted(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == '.' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cur.String())
	return out
}

// unquote strips a single layer of double-quote delimiters, preserving
// the case of the payload (Postgres-style quoted identifier semantics).
func unquote(seg string) string {
	if len(seg) >= 2 && seg[0] == '"' && seg[len(seg)-1] == '"' {
		return seg[1 : len(seg)-1]
	}
	return seg
}
