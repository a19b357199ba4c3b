package identity

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"clarium/internal/exec"
	"clarium/internal/ident"
)

// LoginRequest mirrors the original provider.rs LoginRequest: enough
// to authenticate and to scope role derivation to one target database.
type LoginRequest struct {
	Username string
	Password string
	Db       string
	IP       string
}

type LoginResponse struct {
	Session *Session
}

// AuthProvider is the login boundary both the local and SQL-backed
// paths implement (spec §4.8 "Authentication paths").
type AuthProvider interface {
	Login(req LoginRequest) (*LoginResponse, error)
}

func sqlQuote(s string) string { return strings.ReplaceAll(s, "'", "''") }

// SQLAuthProvider authenticates against security.users/.role_memberships
// through the normal query executor, the same path any other SQL
// client uses (spec §4.8 "SQL-backed": fetch password_hash, verify via
// Argon2id PHC, add role admin on a membership row).
type SQLAuthProvider struct {
	Ex       *exec.Executor
	SM       *SessionManager
	Defaults ident.Defaults
}

func NewSQLAuthProvider(ex *exec.Executor, sm *SessionManager, defaults ident.Defaults) *SQLAuthProvider {
	return &SQLAuthProvider{Ex: ex, SM: sm, Defaults: defaults}
}

func (p *SQLAuthProvider) Login(req LoginRequest) (*LoginResponse, error) {
	q := fmt.Sprintf(
		"SELECT password_hash FROM security.users WHERE LOWER(user_id) = LOWER('%s')",
		sqlQuote(req.Username),
	)
	res, err := p.Ex.Execute(q, p.Defaults)
	if err != nil {
		return nil, fmt.Errorf("identity: auth query failed: %w", err)
	}
	if res.Rows == nil || res.Rows.Height() == 0 {
		return nil, fmt.Errorf("identity: invalid_credentials")
	}
	phcVal := res.Rows.Column("password_hash")[0]
	phc, _ := phcVal.(string)
	if phc == "" || !VerifyPassword(phc, req.Password) {
		return nil, fmt.Errorf("identity: invalid_credentials")
	}

	roles := []string{"user"}
	adminQ := fmt.Sprintf(
		"SELECT COUNT(1) AS c FROM security.role_memberships WHERE LOWER(user_id) = LOWER('%s') AND LOWER(role_id) = 'admin'",
		sqlQuote(req.Username),
	)
	if adminRes, err := p.Ex.Execute(adminQ, p.Defaults); err == nil && adminRes.Rows != nil && adminRes.Rows.Height() > 0 {
		if n, ok := toInt64(adminRes.Rows.Column("c")[0]); ok && n > 0 {
			roles = append(roles, "admin")
		}
	}

	principal := Principal{UserID: req.Username, Roles: roles, Attrs: Attrs{IP: req.IP}}
	session := p.SM.Issue(principal)
	p.Ex.Log.Info("auth.login(sql)", zap.String("user", req.Username), zap.String("session_id", session.SessionID))
	return &LoginResponse{Session: session}, nil
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
