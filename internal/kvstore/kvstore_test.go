package kvstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clarium/internal/kvstore"
)

func TestSetGetDeleteRoundTrip(t *testing.T) {
	reg := kvstore.NewRegistry(t.TempDir(), nil)
	s, err := reg.Open("db1", "cache")
	require.NoError(t, err)

	s.Set("k", kvstore.KvValue{Kind: kvstore.KindStr, Str: "v"}, nil, nil)
	v, ok := s.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v.Str)

	require.True(t, s.Delete("k"))
	_, ok = s.Get("k")
	require.False(t, ok)
}

func TestTTLExpiresEntry(t *testing.T) {
	reg := kvstore.NewRegistry(t.TempDir(), nil)
	s, err := reg.Open("db1", "ttl")
	require.NoError(t, err)

	ttl := 10 * time.Millisecond
	s.Set("k", kvstore.KvValue{Kind: kvstore.KindStr, Str: "v"}, &ttl, nil)

	_, ok := s.Get("k")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = s.Get("k")
	require.False(t, ok, "expected the entry to expire after its TTL")
}

func TestResetOnAccessExtendsTTL(t *testing.T) {
	reg := kvstore.NewRegistry(t.TempDir(), nil)
	s, err := reg.Open("db1", "roa")
	require.NoError(t, err)

	ttl := 30 * time.Millisecond
	roa := true
	s.Set("k", kvstore.KvValue{Kind: kvstore.KindStr, Str: "v"}, &ttl, &roa)

	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		_, ok := s.Get("k")
		require.True(t, ok, "reset-on-access should keep extending the entry's life")
	}
}

func TestRegistryOpenCachesBySameKey(t *testing.T) {
	reg := kvstore.NewRegistry(t.TempDir(), nil)
	a, err := reg.Open("db1", "same")
	require.NoError(t, err)
	b, err := reg.Open("db1", "same")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestRegistryDropRemovesStore(t *testing.T) {
	reg := kvstore.NewRegistry(t.TempDir(), nil)
	s, err := reg.Open("db1", "todrop")
	require.NoError(t, err)
	s.Set("k", kvstore.KvValue{Kind: kvstore.KindStr, Str: "v"}, nil, nil)

	require.NoError(t, reg.Drop("db1", "todrop"))

	reopened, err := reg.Open("db1", "todrop")
	require.NoError(t, err)
	_, ok := reopened.Get("k")
	require.False(t, ok, "dropping a store should wipe its directory, so reopening starts empty")
}

func TestRegistryRenamePreservesEntries(t *testing.T) {
	reg := kvstore.NewRegistry(t.TempDir(), nil)
	s, err := reg.Open("db1", "old")
	require.NoError(t, err)
	s.Set("k", kvstore.KvValue{Kind: kvstore.KindStr, Str: "v"}, nil, nil)

	require.NoError(t, reg.Rename("db1", "old", "new"))

	renamed, err := reg.Open("db1", "new")
	require.NoError(t, err)
	require.Same(t, s, renamed)
	v, ok := renamed.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v.Str)
}
