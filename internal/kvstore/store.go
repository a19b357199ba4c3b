// Package kvstore implements clarium's sidecar KV store (spec §3.5,
// §4.6): a named, per-(database,store) in-memory map with TTL,
// reset-on-access, and optional disk snapshotting, plus Parquet
// externalization for dataframe-shaped values. Grounded on
// internal/reactive/registry.go's RWMutex-guarded map pattern.
package kvstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ValueKind tags which field of KvValue is populated.
type ValueKind string

const (
	KindStr     ValueKind = "str"
	KindInt     ValueKind = "int"
	KindJSON    ValueKind = "json"
	KindBytes   ValueKind = "bytes"
	KindParquet ValueKind = "parquet_df"
)

// KvValue is the tagged union a KV entry holds (spec §3.5).
type KvValue struct {
	Kind  ValueKind
	Str   string
	Int   int64
	JSON  json.RawMessage
	Bytes []byte
	// RelPath is the snapshot-relative path under parquet/ for a
	// Parquet-backed value; Rows/Cols hold it once materialized.
	RelPath string
	Cols    []string
	Rows    []map[string]any
}

// Entry is one stored key's value plus its TTL bookkeeping.
type Entry struct {
	Value         KvValue
	TTL           *time.Duration
	ExpiresAt     *time.Time
	ResetOnAccess bool
}

func (e *Entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// Settings is the per-store `store.json` (legacy `config.json`) shape.
type Settings struct {
	Name                 string `json:"name"`
	ResetOnAccessDefault bool   `json:"reset_on_access_default"`
	Persistence          struct {
		Enabled    bool   `json:"enabled"`
		IntervalMs int    `json:"interval_ms"`
		Format     string `json:"format"`
	} `json:"persistence"`
}

// Store is one named KV store: an in-memory map guarded by a
// reader/writer lock (spec §5: "reads take shared access, writes take
// exclusive"), backed by a directory on disk for settings/snapshot.
type Store struct {
	Dir      string
	Settings Settings

	mu      sync.RWMutex
	entries map[string]*Entry
}

func newStore(dir string, settings Settings) *Store {
	return &Store{Dir: dir, Settings: settings, entries: map[string]*Entry{}}
}

// Get implements GET semantics (spec §4.6): reset-on-access happens
// before the expiry check is evaluated, so a reset entry is never
// reported expired by the same call that just extended it.
func (s *Store) Get(key string) (KvValue, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return KvValue{}, false
	}
	if e.ResetOnAccess && e.TTL != nil {
		exp := now.Add(*e.TTL)
		e.ExpiresAt = &exp
	}
	if e.expired(now) {
		delete(s.entries, key)
		return KvValue{}, false
	}
	return e.Value, true
}

// Set implements SET semantics (spec §4.6): reset_on_access defaults
// to the store-level default when unspecified.
func (s *Store) Set(key string, val KvValue, ttl *time.Duration, resetOnAccess *bool) {
	roa := s.Settings.ResetOnAccessDefault
	if resetOnAccess != nil {
		roa = *resetOnAccess
	}
	e := &Entry{Value: val, TTL: ttl, ResetOnAccess: roa}
	if ttl != nil {
		exp := time.Now().Add(*ttl)
		e.ExpiresAt = &exp
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Delete removes key, reporting whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Keys returns every live (non-expired) key, evicting expired entries
// found along the way.
func (s *Store) Keys() []string {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			continue
		}
		out = append(out, k)
	}
	return out
}

func loadSettings(dir string) (Settings, error) {
	if s, err := readSettingsFile(dir, "store.json"); err == nil {
		return s, nil
	}
	s, err := readSettingsFile(dir, "config.json")
	if err != nil {
		return Settings{}, fmt.Errorf("kvstore: load settings: %w", err)
	}
	return s, nil
}
