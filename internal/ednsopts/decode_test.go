package ednsopts

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAll_NSID(t *testing.T) {
	opt := &dns.OPT{}
	opt.Option = append(opt.Option, &dns.EDNS0_NSID{Nsid: "68656c6c6f"}) // "hello" hex-encoded

	decoded := DecodeAll(opt)
	require.Len(t, decoded, 1)
	assert.Equal(t, "NSID", decoded[0].Kind)
	assert.Equal(t, "hello", decoded[0].NSID.Text)
}

func TestDecodeAll_ECS(t *testing.T) {
	opt := &dns.OPT{}
	opt.Option = append(opt.Option, &dns.EDNS0_SUBNET{
		Family:        1,
		SourceNetmask: 24,
		Address:       []byte{192, 0, 2, 0},
	})

	decoded := DecodeAll(opt)
	require.Len(t, decoded, 1)
	assert.Equal(t, "ECS", decoded[0].Kind)
	assert.Equal(t, uint8(24), decoded[0].ECS.SrcLen)
	assert.Equal(t, "192.0.2.0", decoded[0].ECS.Address)
}

func TestDecodeAll_SkipsUnrecognizedLocalOption(t *testing.T) {
	opt := &dns.OPT{}
	opt.Option = append(opt.Option, &dns.EDNS0_LOCAL{Code: 65000, Data: []byte{1, 2, 3}})

	decoded := DecodeAll(opt)
	assert.Empty(t, decoded)
}

func TestDecodeAll_KeyTag(t *testing.T) {
	opt := &dns.OPT{}
	opt.Option = append(opt.Option, &dns.EDNS0_LOCAL{Code: dns.EDNS0KEYTAG, Data: []byte{0x01, 0x02, 0x03, 0x04}})

	decoded := DecodeAll(opt)
	require.Len(t, decoded, 1)
	assert.Equal(t, []uint16{0x0102, 0x0304}, decoded[0].KeyTag.Tags)
}

func TestStrings_RenderedFormat(t *testing.T) {
	decoded := []Decoded{
		{Kind: "NSID", NSID: &NSID{Text: "abc"}},
		{Kind: "ECS", ECS: &ECS{Address: "192.0.2.0", SrcLen: 24, ScopeLen: 0}},
	}
	rendered := Strings(decoded)
	assert.Equal(t, []string{"[NSID:abc]", "[ECS:192.0.2.0/24/0]"}, rendered)
}

func TestDecodeAll_Nil(t *testing.T) {
	assert.Nil(t, DecodeAll(nil))
}
