package identity

import (
	"encoding/json"
	"fmt"
	"os"
)

// CommandKind is one of the authorization probes the local provider
// runs per login to derive roles (spec §4.8: "derive roles from
// command authorization probes"). The pack's own filestore ACL module
// (the Rust `security::authorize`/`CommandKind` this mirrors) was
// filtered out of the retrieval set, so this is a from-spec Go
// reconstruction rather than a direct port — see DESIGN.md.
type CommandKind string

const (
	CommandSchema     CommandKind = "schema"
	CommandSelect     CommandKind = "select"
	CommandInsert     CommandKind = "insert"
	CommandCalculate  CommandKind = "calculate"
	CommandDeleteRows CommandKind = "delete_rows"
)

// AuthorizeFunc probes whether username may run cmd against db (empty
// db means database-agnostic, used for the admin/Schema probe).
type AuthorizeFunc func(username string, cmd CommandKind, db string) bool

// LocalUserStore is the filesystem-backed user file the local provider
// authenticates against: a flat JSON map of username to Argon2id PHC
// hash.
type LocalUserStore struct {
	Path string
}

func (s *LocalUserStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity: read user file: %w", err)
	}
	var users map[string]string
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("identity: decode user file: %w", err)
	}
	return users, nil
}

// Authenticate reports whether password matches username's stored
// hash (spec §4.8 "legacy authenticate returning bool").
func (s *LocalUserStore) Authenticate(username, password string) (bool, error) {
	users, err := s.load()
	if err != nil {
		return false, err
	}
	phc, ok := users[username]
	if !ok {
		return false, nil
	}
	return VerifyPassword(phc, password), nil
}

// Put adds or replaces username's password, hashing it with the
// default Argon2 params.
func (s *LocalUserStore) Put(username, password string) error {
	users, err := s.load()
	if err != nil {
		return err
	}
	phc, err := HashPassword(password, Argon2Defaults)
	if err != nil {
		return err
	}
	users[username] = phc
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

// LocalAuthProvider authenticates against a LocalUserStore and derives
// roles from a pluggable AuthorizeFunc probe (spec §4.8 "Local
// (filesystem-backed user file)").
type LocalAuthProvider struct {
	Users     *LocalUserStore
	SM        *SessionManager
	Authorize AuthorizeFunc
}

func NewLocalAuthProvider(users *LocalUserStore, sm *SessionManager, authorize AuthorizeFunc) *LocalAuthProvider {
	return &LocalAuthProvider{Users: users, SM: sm, Authorize: authorize}
}

func (p *LocalAuthProvider) Login(req LoginRequest) (*LoginResponse, error) {
	ok, err := p.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("identity: invalid_credentials")
	}

	roles := []string{"user"}
	probe := p.Authorize
	if probe == nil {
		probe = func(string, CommandKind, string) bool { return false }
	}
	if probe(req.Username, CommandSchema, "") {
		roles = append(roles, "admin")
	}
	if probe(req.Username, CommandSelect, req.Db) {
		roles = append(roles, "db_reader")
	}
	if probe(req.Username, CommandInsert, req.Db) {
		roles = append(roles, "db_writer")
	}
	if probe(req.Username, CommandCalculate, req.Db) {
		roles = append(roles, "compute")
	}
	if probe(req.Username, CommandDeleteRows, req.Db) {
		roles = append(roles, "db_deleter")
	}

	principal := Principal{UserID: req.Username, Roles: roles, Attrs: Attrs{IP: req.IP}}
	session := p.SM.Issue(principal)
	return &LoginResponse{Session: session}, nil
}
