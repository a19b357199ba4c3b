package installer

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"clarium/internal/identity"
)

// devDefaultAdminUser/Password match the original's debug-build
// fallback; production deployments must set CLARIUM_ADMIN_USER and
// CLARIUM_ADMIN_PASSWORD, exactly as the Rust release build does.
const (
	devDefaultAdminUser     = "clarium"
	devDefaultAdminPassword = "clarium"
)

// provisionAdminUser seeds a first admin user the moment
// security.users is empty (spec §4.8 "bootstrap"). Devmode is driven
// by CLARIUM_DEV=1 rather than a compiled build tag, since clarium
// ships as a single binary with no separate debug/release artifact.
func (in *Installer) provisionAdminUser() error {
	res, err := in.Ex.Execute("SELECT COUNT(1) AS c FROM security.users", in.Defaults)
	if err != nil {
		return fmt.Errorf("installer: counting security.users: %w", err)
	}
	if res.Rows != nil && res.Rows.Height() > 0 {
		if c, ok := toInt64(res.Rows.Row(0)["c"]); ok && c > 0 {
			return nil
		}
	}

	username, password, ok := in.resolveAdminCredentials()
	if !ok {
		return nil
	}

	params := in.adminArgon2Params()
	phc, err := identity.HashPassword(password, params)
	if err != nil {
		return fmt.Errorf("installer: hashing admin password: %w", err)
	}

	insertUser := fmt.Sprintf(
		"INSERT INTO security.users (user_id, password_hash) VALUES ('%s', '%s')",
		sqlQuote(username), sqlQuote(phc),
	)
	if _, err := in.Ex.Execute(insertUser, in.Defaults); err != nil {
		return fmt.Errorf("installer: inserting admin user: %w", err)
	}

	insertMembership := fmt.Sprintf(
		"INSERT INTO security.role_memberships (user_id, role_id) VALUES ('%s', 'admin')",
		sqlQuote(username),
	)
	if _, err := in.Ex.Execute(insertMembership, in.Defaults); err != nil {
		return fmt.Errorf("installer: inserting admin membership: %w", err)
	}

	in.Log.Info("installer: provisioned admin user", zap.String("user", username))
	return nil
}

func (in *Installer) resolveAdminCredentials() (username, password string, ok bool) {
	if os.Getenv("CLARIUM_DEV") == "1" {
		return devDefaultAdminUser, devDefaultAdminPassword, true
	}
	username = os.Getenv("CLARIUM_ADMIN_USER")
	password = os.Getenv("CLARIUM_ADMIN_PASSWORD")
	if username == "" || password == "" {
		in.Log.Warn("installer: CLARIUM_ADMIN_USER/CLARIUM_ADMIN_PASSWORD unset, skipping admin provisioning")
		return "", "", false
	}
	return username, password, true
}

func (in *Installer) adminArgon2Params() identity.Argon2Params {
	p := identity.Argon2Defaults
	if v := os.Getenv("CLARIUM_ARGON2_M"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			p.MemoryKB = uint32(n)
		}
	}
	if v := os.Getenv("CLARIUM_ARGON2_T"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			p.Time = uint32(n)
		}
	}
	if v := os.Getenv("CLARIUM_ARGON2_P"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil {
			p.Threads = uint8(n)
		}
	}
	return p
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
