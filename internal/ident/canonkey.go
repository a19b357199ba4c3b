package ident

import (
	"fmt"
	"strconv"
	"strings"
)

// CanonicalKey builds the deterministic "col1=v1,col2=v2,..." string used
// as the primary-key uniqueness hash input (spec GLOSSARY: PK canonical
// key). Float values are formatted with trailing zeros and a trailing
// "." trimmed so that 1.50 and 1.5 collide, matching §4.3.
//
// Adapted from the base64 "schema.table|col=val,..." handle encoder in
// the teacher's internal/common/handles.go, minus the base64 wrapper
// and plus float canonicalization.
func CanonicalKey(cols []string, vals []any) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + "=" + formatValue(vals[i])
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "<null>"
	case float64:
		return trimFloat(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return trimFloat(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func trimFloat(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
