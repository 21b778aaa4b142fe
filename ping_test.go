package dnsdiag

import (
	"context"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing_AbortsOnUnsupportedTransport(t *testing.T) {
	target := ServerTarget{Protocol: Protocol(255)}
	spec := QuerySpec{QName: "example.com", RDType: dns.TypeA}

	summary, err := Ping(context.Background(), target, spec, PingOptions{Count: 3}, nil)
	require.Error(t, err)
	var dnsErr *Error
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, ErrUnsupportedTransport, dnsErr.Kind)
	assert.Equal(t, 1, summary.Sent, "the loop must abort on the first iteration, not run to completion")
}

func TestPing_RejectsZeroCount(t *testing.T) {
	_, err := Ping(context.Background(), ServerTarget{}, QuerySpec{QName: "example.com"}, PingOptions{Count: 0}, nil)
	require.Error(t, err)
	var dnsErr *Error
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, ErrInputInvalid, dnsErr.Kind)
}

func TestPing_InvalidQueryNameIsFatal(t *testing.T) {
	target := ServerTarget{Protocol: ProtocolUDP}
	spec := QuerySpec{QName: "-bad..name", RDType: dns.TypeA}

	_, err := Ping(context.Background(), target, spec, PingOptions{Count: 1}, nil)
	require.Error(t, err)
	var dnsErr *Error
	require.ErrorAs(t, err, &dnsErr)
	assert.Equal(t, ErrInputInvalid, dnsErr.Kind)
}
