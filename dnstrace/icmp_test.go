package dnstrace

import (
	"testing"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/stretchr/testify/assert"
)

func buildIPv4InvokingPacket(ihl int, dstPort int) []byte {
	header := make([]byte, ihl)
	header[0] = byte(0x40 | (ihl / 4)) // version 4, IHL in 32-bit words

	udp := make([]byte, 8)
	udp[2] = byte(dstPort >> 8)
	udp[3] = byte(dstPort)

	return append(header, udp...)
}

func TestExtractEmbeddedDstPort_IPv4_StandardHeader(t *testing.T) {
	body := buildIPv4InvokingPacket(20, 53)
	port, ok := extractEmbeddedDstPort(body, dnsdiag.FamilyIPv4)
	assert.True(t, ok)
	assert.Equal(t, 53, port)
}

func TestExtractEmbeddedDstPort_IPv4_OptionsPresent(t *testing.T) {
	// a 24-byte IHL (one 4-byte options word) must not be read as a
	// fixed 20-byte header, or the UDP header's offset would be wrong.
	body := buildIPv4InvokingPacket(24, 853)
	port, ok := extractEmbeddedDstPort(body, dnsdiag.FamilyIPv4)
	assert.True(t, ok)
	assert.Equal(t, 853, port)
}

func TestExtractEmbeddedDstPort_IPv4_Truncated(t *testing.T) {
	body := buildIPv4InvokingPacket(20, 53)[:10]
	_, ok := extractEmbeddedDstPort(body, dnsdiag.FamilyIPv4)
	assert.False(t, ok)
}

func TestExtractEmbeddedDstPort_IPv6_FixedHeader(t *testing.T) {
	body := make([]byte, 40+8)
	body[40+2] = 0x01
	body[40+3] = 0xBB // 443

	port, ok := extractEmbeddedDstPort(body, dnsdiag.FamilyIPv6)
	assert.True(t, ok)
	assert.Equal(t, 443, port)
}

func TestExtractEmbeddedDstPort_IPv6_Truncated(t *testing.T) {
	body := make([]byte, 30)
	_, ok := extractEmbeddedDstPort(body, dnsdiag.FamilyIPv6)
	assert.False(t, ok)
}
