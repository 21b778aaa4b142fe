package dnswhois

import (
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_OpenMissingFileStartsEmpty(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "whois.cache"), time.Hour)
	require.NoError(t, err)
	_, ok := cache.Get(netip.MustParseAddr("8.8.8.8"), time.Now())
	assert.False(t, ok)
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "whois.cache"), time.Hour)
	require.NoError(t, err)

	ip := netip.MustParseAddr("8.8.8.8")
	cache.Put(Record{IP: ip.String(), ASN: 15169, Owner: "GOOGLE", FetchedAt: time.Now().Unix()})

	rec, ok := cache.Get(ip, time.Now())
	require.True(t, ok)
	assert.Equal(t, 15169, rec.ASN)
	assert.Equal(t, "GOOGLE", rec.Owner)
}

func TestCache_EntryExpiresAfterTTL(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "whois.cache"), time.Minute)
	require.NoError(t, err)

	ip := netip.MustParseAddr("8.8.8.8")
	old := time.Now().Add(-2 * time.Minute)
	cache.Put(Record{IP: ip.String(), ASN: 15169, Owner: "GOOGLE", FetchedAt: old.Unix()})

	_, ok := cache.Get(ip, time.Now())
	assert.False(t, ok, "entry older than the TTL should be treated as a miss")
}

func TestCache_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whois.cache")
	ip := netip.MustParseAddr("8.8.8.8")

	cache, err := Open(path, time.Hour)
	require.NoError(t, err)
	cache.Put(Record{IP: ip.String(), ASN: 15169, Owner: "GOOGLE", FetchedAt: time.Now().Unix()})
	require.NoError(t, cache.Save())

	reloaded, err := Open(path, time.Hour)
	require.NoError(t, err)
	rec, ok := reloaded.Get(ip, time.Now())
	require.True(t, ok)
	assert.Equal(t, 15169, rec.ASN)
}

func TestCache_SaveNoopWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whois.cache")
	cache, err := Open(path, time.Hour)
	require.NoError(t, err)
	require.NoError(t, cache.Save())
}
