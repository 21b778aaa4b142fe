package dnsdiag

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocol_DefaultPort_TotalFunction(t *testing.T) {
	for p := ProtocolUDP; p <= ProtocolHTTP3; p++ {
		assert.NotZero(t, p.DefaultPort(), "protocol %v has no default port", p)
		assert.NotEqual(t, "UNKNOWN", p.String())
	}
}

func TestProtocol_String_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Protocol(255).String())
}

func TestServerTarget_SNIName(t *testing.T) {
	t.Run("hostname set", func(t *testing.T) {
		target := ServerTarget{ResolverHostname: "dns.example.com"}
		assert.Equal(t, "dns.example.com", target.SNIName())
	})
	t.Run("no hostname falls back to IP", func(t *testing.T) {
		target := ServerTarget{ResolverIP: netip.MustParseAddr("192.0.2.53")}
		assert.Equal(t, "192.0.2.53", target.SNIName())
	})
}
