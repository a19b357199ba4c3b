package sqlast

import (
	"fmt"
	"strconv"
	"time"
)

// ParseDuration parses clarium's compact window-duration literals
// (`10s`, `1m`, `3h`, `2d`) as used by `BY <duration>` / `ROLLING BY
// <duration>` (spec §4.4.3). Standard Go duration suffixes beyond a
// single unit aren't accepted — the grammar is always one integer plus
// one unit letter, matching every sample in the original test suite.
func ParseDuration(lit string) (time.Duration, error) {
	if len(lit) < 2 {
		return 0, fmt.Errorf("sqlast: invalid duration literal %q", lit)
	}
	unit := lit[len(lit)-1]
	n, err := strconv.ParseInt(lit[:len(lit)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sqlast: invalid duration literal %q: %w", lit, err)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("sqlast: unknown duration unit in %q", lit)
	}
}
