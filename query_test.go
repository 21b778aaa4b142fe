package dnsdiag

import (
	"strings"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery_Basic(t *testing.T) {
	m, err := BuildQuery(QuerySpec{QName: "example.com", RDType: dns.TypeA, RecursionDesired: true})
	require.NoError(t, err)
	assert.Equal(t, "example.com.", m.Question[0].Name)
	assert.Equal(t, dns.TypeA, m.Question[0].Qtype)
	assert.Equal(t, uint16(dns.ClassINET), m.Question[0].Qclass)
	assert.True(t, m.RecursionDesired)
	assert.Empty(t, m.Extra, "no EDNS option requested, so no OPT record")
}

func TestBuildQuery_InvalidName(t *testing.T) {
	_, err := BuildQuery(QuerySpec{QName: "-bad..name", RDType: dns.TypeA})
	require.Error(t, err)
	var dnsErr *Error
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, ErrInputInvalid, dnsErr.Kind)
}

func TestBuildQuery_CacheMissPrefix(t *testing.T) {
	m1, err := BuildQuery(QuerySpec{QName: "example.com", RDType: dns.TypeA, ForceCacheMiss: true})
	require.NoError(t, err)
	m2, err := BuildQuery(QuerySpec{QName: "example.com", RDType: dns.TypeA, ForceCacheMiss: true})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(m1.Question[0].Name, "_dnsdiag_"))
	assert.True(t, strings.HasSuffix(m1.Question[0].Name, "example.com."))
	assert.NotEqual(t, m1.Question[0].Name, m2.Question[0].Name, "each call gets a fresh random label")
}

func TestBuildQuery_EDNSImpliedByDNSSEC(t *testing.T) {
	m, err := BuildQuery(QuerySpec{QName: "example.com", RDType: dns.TypeA, WantDNSSEC: true})
	require.NoError(t, err)
	require.Len(t, m.Extra, 1)
	opt, ok := m.Extra[0].(*dns.OPT)
	require.True(t, ok)
	assert.True(t, opt.Do())
}

func TestBuildTraceProbeName(t *testing.T) {
	name, err := BuildTraceProbeName("example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "_dnsdiag_"))
	assert.True(t, strings.HasSuffix(name, "example.com."))
}
