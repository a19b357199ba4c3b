package identity

import "testing"

func TestSessionManagerIssueLookupRevoke(t *testing.T) {
	sm := NewSessionManager()
	s := sm.Issue(Principal{UserID: "alice", Roles: []string{"user", "admin"}})
	if s.SessionID == "" {
		t.Fatalf("expected a non-empty session id")
	}

	got, ok := sm.Lookup(s.SessionID)
	if !ok || got.Principal.UserID != "alice" {
		t.Fatalf("Lookup returned %+v, %v", got, ok)
	}

	sm.Revoke(s.SessionID)
	if _, ok := sm.Lookup(s.SessionID); ok {
		t.Fatalf("expected session to be gone after Revoke")
	}
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{UserID: "bob", Roles: []string{"db_reader", "compute"}}
	if !p.HasRole("db_reader") {
		t.Fatalf("expected db_reader role")
	}
	if p.HasRole("admin") {
		t.Fatalf("did not expect admin role")
	}
}
