package identity

import (
	"fmt"
	"testing"

	"clarium/internal/exec"
	"clarium/internal/ident"
	"clarium/internal/sidecar"
	"clarium/internal/storage"
)

func newTestExecutor(t *testing.T) *exec.Executor {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewStore(root)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return exec.NewExecutor(store, sidecar.NewRegistry(root), nil)
}

func seedUser(t *testing.T, ex *exec.Executor, defaults ident.Defaults, username, password string, admin bool) {
	t.Helper()
	if !ex.Store.TableExists(ident.Resolve("security.users", defaults)) {
		if _, err := ex.Execute("CREATE TABLE security.users (user_id TEXT, password_hash TEXT)", defaults); err != nil {
			t.Fatalf("create security.users: %v", err)
		}
	}
	phc, err := HashPassword(password, Argon2Defaults)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	insert := fmt.Sprintf("INSERT INTO security.users (user_id, password_hash) VALUES ('%s', '%s')", username, phc)
	if _, err := ex.Execute(insert, defaults); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	if !ex.Store.TableExists(ident.Resolve("security.role_memberships", defaults)) {
		if _, err := ex.Execute("CREATE TABLE security.role_memberships (user_id TEXT, role_id TEXT)", defaults); err != nil {
			t.Fatalf("create security.role_memberships: %v", err)
		}
	}
	if admin {
		membership := fmt.Sprintf("INSERT INTO security.role_memberships (user_id, role_id) VALUES ('%s', 'admin')", username)
		if _, err := ex.Execute(membership, defaults); err != nil {
			t.Fatalf("insert membership: %v", err)
		}
	}
}

func TestSQLAuthProviderLoginAddsAdminRoleOnMembership(t *testing.T) {
	ex := newTestExecutor(t)
	defaults := ident.Defaults{Database: "d", Schema: "public"}
	seedUser(t, ex, defaults, "alice", "hunter2", true)

	p := NewSQLAuthProvider(ex, NewSessionManager(), defaults)
	resp, err := p.Login(LoginRequest{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !resp.Session.Principal.HasRole("admin") {
		t.Fatalf("expected admin role, got %v", resp.Session.Principal.Roles)
	}
}

func TestSQLAuthProviderLoginRejectsWrongPassword(t *testing.T) {
	ex := newTestExecutor(t)
	defaults := ident.Defaults{Database: "d", Schema: "public"}
	seedUser(t, ex, defaults, "bob", "correct", false)

	p := NewSQLAuthProvider(ex, NewSessionManager(), defaults)
	if _, err := p.Login(LoginRequest{Username: "bob", Password: "wrong"}); err == nil {
		t.Fatalf("expected login to fail with a wrong password")
	}
}

func TestSQLAuthProviderLoginWithoutMembershipOmitsAdmin(t *testing.T) {
	ex := newTestExecutor(t)
	defaults := ident.Defaults{Database: "d", Schema: "public"}
	seedUser(t, ex, defaults, "carol", "pw", false)

	p := NewSQLAuthProvider(ex, NewSessionManager(), defaults)
	resp, err := p.Login(LoginRequest{Username: "carol", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Session.Principal.HasRole("admin") {
		t.Fatalf("did not expect admin role without a membership row")
	}
}
