package dnsdiag

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidHostname(t *testing.T) {
	cases := []struct {
		name            string
		allowUnderscore bool
		want            bool
	}{
		{"example.com", false, true},
		{"example.com.", false, true},
		{"_dmarc.example.com", false, false},
		{"_dmarc.example.com", true, true},
		{"", false, false},
		{"-bad.example.com", false, false},
		{"bad-.example.com", false, false},
		{"a.b.c", false, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ValidHostname(c.name, c.allowUnderscore), "name=%q underscore=%v", c.name, c.allowUnderscore)
	}
}

func TestValidHostname_LabelLengthLimits(t *testing.T) {
	label63 := make([]byte, 63)
	for i := range label63 {
		label63[i] = 'a'
	}
	label64 := append(label63, 'a')

	assert.True(t, ValidHostname(string(label63)+".com", false))
	assert.False(t, ValidHostname(string(label64)+".com", false))
}

func TestValidHostname_TotalLengthLimit(t *testing.T) {
	var long string
	for len(long) < 260 {
		long += "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa."
	}
	assert.False(t, ValidHostname(long, false))
}

func TestResolveServer_IPLiteral(t *testing.T) {
	addr, family, err := ResolveServer(context.Background(), "192.0.2.1", FamilyUnspecified)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.0.2.1"), addr)
	assert.Equal(t, FamilyIPv4, family)
}

func TestResolveServer_AddressFamilyConflict(t *testing.T) {
	_, _, err := ResolveServer(context.Background(), "192.0.2.1", FamilyIPv6)
	require.Error(t, err)
	var dnsErr *Error
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, ErrAddressFamilyConflict, dnsErr.Kind)
}

func TestValidIPLiteral(t *testing.T) {
	assert.True(t, ValidIPLiteral("192.0.2.1"))
	assert.True(t, ValidIPLiteral("::1"))
	assert.False(t, ValidIPLiteral("not-an-ip"))
	assert.False(t, ValidIPLiteral("example.com"))
}
