package dnstrace

import (
	"net/netip"
	"testing"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveHopPrefix(resolver netip.Addr) []Hop {
	return []Hop{
		{Index: 1, RouterIP: netip.MustParseAddr("203.0.113.1"), Reached: false},
		{Index: 2, RouterIP: netip.MustParseAddr("203.0.113.2"), Reached: false},
		{Index: 3, RouterIP: netip.MustParseAddr("203.0.113.3"), Reached: false},
	}
}

func TestApplyHints_NoHintsOnCleanPath(t *testing.T) {
	resolver := netip.MustParseAddr("8.8.8.8")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: []Hop{
			{Index: 1, RouterIP: netip.MustParseAddr("203.0.113.1")},
			{Index: 2, RouterIP: resolver, Reached: true},
		},
	}
	applyHints(path)
	assert.Empty(t, path.Hops[1].Hints)
}

func TestApplyHints_PathTooShort(t *testing.T) {
	resolver := netip.MustParseAddr("8.8.8.8")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: []Hop{
			{Index: 1, RouterIP: resolver, Reached: true},
		},
	}
	applyHints(path)
	require.Len(t, path.Hops[0].Hints, 1)
	assert.Contains(t, path.Hops[0].Hints[0], "path too short")
}

func TestApplyHints_ShortPathNotFlaggedForHijackingByAddressMismatch(t *testing.T) {
	// A path that reached an address other than the configured resolver
	// is not itself a hint condition -- only path length and what sits
	// next to the resolver are.
	resolver := netip.MustParseAddr("8.8.8.8")
	impostor := netip.MustParseAddr("203.0.113.9")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: []Hop{
			{Index: 1, RouterIP: impostor, Reached: true},
			{Index: 2, RouterIP: impostor, Reached: true},
		},
	}
	applyHints(path)
	assert.Empty(t, path.Hops[1].Hints)
}

func TestApplyHints_ShortPathSuppressesInvisibleHopAndPrivateHints(t *testing.T) {
	resolver := netip.MustParseAddr("8.8.8.8")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: []Hop{
			{Index: 1, RouterIP: netip.MustParseAddr("10.0.0.1")},
			{Index: 2, RouterIP: resolver, Reached: true},
		},
	}
	applyHints(path)
	assert.Empty(t, path.Hops[1].Hints, "a <=4 hop path must not emit the private/invisible-hop hints")
}

func TestApplyHints_InvisibleHopNextToResolver(t *testing.T) {
	resolver := netip.MustParseAddr("8.8.8.8")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: append(fiveHopPrefix(resolver),
			Hop{Index: 4}, // "*"
			Hop{Index: 5, RouterIP: resolver, Reached: true},
		),
	}
	applyHints(path)
	last := path.Hops[len(path.Hops)-1]
	require.Len(t, last.Hints, 1)
	assert.Contains(t, last.Hints[0], "invisible hop")
}

func TestApplyHints_ResolverBehindPrivateAddress(t *testing.T) {
	resolver := netip.MustParseAddr("8.8.8.8")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: append(fiveHopPrefix(resolver),
			Hop{Index: 4, RouterIP: netip.MustParseAddr("10.0.0.1")},
			Hop{Index: 5, RouterIP: resolver, Reached: true},
		),
	}
	applyHints(path)
	last := path.Hops[len(path.Hops)-1]
	require.Len(t, last.Hints, 1)
	assert.Contains(t, last.Hints[0], "private IP address")
}

func TestApplyHints_ResolverBehindReservedAddress(t *testing.T) {
	resolver := netip.MustParseAddr("8.8.8.8")
	path := &Path{
		Target:  dnsdiag.ServerTarget{ResolverIP: resolver},
		Reached: true,
		Hops: append(fiveHopPrefix(resolver),
			Hop{Index: 4, RouterIP: netip.MustParseAddr("240.0.0.1")},
			Hop{Index: 5, RouterIP: resolver, Reached: true},
		),
	}
	applyHints(path)
	last := path.Hops[len(path.Hops)-1]
	require.Len(t, last.Hints, 1)
	assert.Contains(t, last.Hints[0], "reserved IP address")
}

func TestApplyHints_NotReached(t *testing.T) {
	path := &Path{Reached: false, Hops: []Hop{{Index: 1}}}
	applyHints(path)
	assert.Empty(t, path.Hops[0].Hints)
}
