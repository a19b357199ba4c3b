package sqlast

import "regexp"

// windowRe matches a tumbling (`BY 10s`) or rolling (`ROLLING BY 10s`)
// window clause. The duration literal's digit+unit shape can't be
// confused with `ORDER BY <ident>` / `GROUP BY <ident>`, so no
// surrounding-clause disambiguation is needed.
var windowRe = regexp.MustCompile(`(?i)\b(ROLLING\s+)?BY\s+(\d+[smhd])\b`)

// extractWindow removes a window clause from sql (if present) so the
// remainder is valid Postgres grammar, returning the extracted Window
// alongside the stripped text.
func extractWindow(sql string) (string, Window, error) {
	loc := windowRe.FindStringSubmatchIndex(sql)
	if loc == nil {
		return sql, Window{}, nil
	}
	durLit := sql[loc[4]:loc[5]]
	dur, err := ParseDuration(durLit)
	if err != nil {
		return "", Window{}, err
	}
	kind := WindowTumbling
	if loc[2] != -1 {
		kind = WindowRolling
	}
	stripped := sql[:loc[0]] + sql[loc[1]:]
	return stripped, Window{Kind: kind, Duration: dur}, nil
}
