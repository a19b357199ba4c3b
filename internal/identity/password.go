package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params controls the Argon2id cost parameters. Dev builds use
// Argon2Defaults; release builds should read CLARIUM_ARGON2_{M,T,P}
// (spec §4.8, mirroring the original hash_password's debug/release
// split).
type Argon2Params struct {
	MemoryKB uint32
	Time     uint32
	Threads  uint8
	SaltLen  uint32
	KeyLen   uint32
}

// Argon2Defaults matches the Rust argon2 crate's Argon2::default()
// parameters used by dev builds (m=19456 KiB, t=2, p=1) — the same
// values the original release-path env-var fallback used too.
var Argon2Defaults = Argon2Params{MemoryKB: 19456, Time: 2, Threads: 1, SaltLen: 16, KeyLen: 32}

// HashPassword produces a PHC-formatted Argon2id hash:
// $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<hash>, the same
// on-wire representation the Rust `password_hash` crate emits and
// `security.users.password_hash` stores (spec §4.8).
func HashPassword(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("identity: generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKB, params.Threads, params.KeyLen)
	return encodePHC(params, salt, hash), nil
}

func encodePHC(params Argon2Params, salt, hash []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKB, params.Time, params.Threads,
		b64.EncodeToString(salt), b64.EncodeToString(hash),
	)
}

// VerifyPassword checks password against a PHC-formatted Argon2id
// hash, re-deriving with the hash's own embedded parameters rather
// than the caller's defaults (spec §4.8 "verify with Argon2id via PHC
// string").
func VerifyPassword(phc, password string) bool {
	params, salt, want, err := decodePHC(phc)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKB, params.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func decodePHC(phc string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(phc, "$")
	// "$argon2id$v=19$m=..,t=..,p=..$salt$hash" splits to
	// ["", "argon2id", "v=19", "m=..,t=..,p=..", "salt", "hash"].
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, fmt.Errorf("identity: not an argon2id PHC string")
	}
	var params Argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Argon2Params{}, nil, nil, fmt.Errorf("identity: malformed PHC params %q", parts[3])
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return Argon2Params{}, nil, nil, fmt.Errorf("identity: malformed PHC param %q: %w", kv, err)
		}
		switch k {
		case "m":
			params.MemoryKB = uint32(n)
		case "t":
			params.Time = uint32(n)
		case "p":
			params.Threads = uint8(n)
		}
	}
	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("identity: decode salt: %w", err)
	}
	hash, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("identity: decode hash: %w", err)
	}
	return params, salt, hash, nil
}
