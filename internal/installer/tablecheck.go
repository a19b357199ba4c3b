package installer

import (
	"fmt"
	"time"
)

// requiredTables is the fixed physical-check list run after DDL replay.
// spec.md only narrates roles/users/role_memberships/policies/resources/
// grants/future_grants/install_log; the original Rust installer checks a
// strict superset (fs_overrides/publications/pub_graph/epochs) that the
// distilled spec dropped — carried forward here per the supplementation
// rule, since nothing in spec's Non-goals excludes them.
var requiredTables = []string{
	"security.roles",
	"security.users",
	"security.role_memberships",
	"security.policies",
	"security.resources",
	"security.grants",
	"security.future_grants",
	"security.fs_overrides",
	"security.publications",
	"security.pub_graph",
	"security.epochs",
	"security.install_log",
}

// runInstallChecks probes each required table with a trivial SELECT
// COUNT(1), logging a [CHECK] row per table and a final [SUMMARY] row,
// and returns the ok/err tallies.
func (in *Installer) runInstallChecks() (ok int, failed int, err error) {
	for _, table := range requiredTables {
		started := time.Now().UnixMilli()
		_, execErr := in.Ex.Execute(fmt.Sprintf("SELECT COUNT(1) FROM %s", table), in.Defaults)
		finished := time.Now().UnixMilli()
		status := "ok"
		errText := ""
		if execErr != nil {
			status = "error"
			errText = execErr.Error()
			failed++
		} else {
			ok++
		}
		in.logInstall("[CHECK] "+table, "", started, finished, status, 1, errText)
	}

	now := time.Now().UnixMilli()
	in.logInstall("[SUMMARY]", "", now, now, "ok", 1, fmt.Sprintf("ok=%d err=%d", ok, failed))
	return ok, failed, nil
}
