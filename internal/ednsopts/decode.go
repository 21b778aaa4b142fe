// Package ednsopts decodes the EDNS(0) options on a response's OPT RR
// into display/JSON-friendly projections (C10).
package ednsopts

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"unicode/utf8"

	"github.com/miekg/dns"
	"github.com/syslab-wm/functools"
)

// Decoded is one decoded EDNS option, tagged by Kind so callers that
// only care about a subset (e.g. NSID for the trace engine) can filter
// without a type switch of their own.
type Decoded struct {
	Kind string
	NSID *NSID
	ECS  *ECS
	EDE  *EDE
	Cookie *Cookie
	KeepAlive *KeepAlive
	Padding *Padding
	Chain *Chain
	KeyTag *KeyTag
}

type NSID struct{ Text string }

type ECS struct {
	Family  uint16
	SrcLen  uint8
	ScopeLen uint8
	Address string
}

type EDE struct {
	Code uint16
	Text string
}

type Cookie struct {
	ClientHex string
	ServerHex string
}

type KeepAlive struct{ TimeoutSeconds uint16 }

type Padding struct{ Length int }

type Chain struct{ ClosestEncloser string }

type KeyTag struct{ Tags []uint16 }

// DecodeAll decodes every option on opt into the Decoded projections
// C10 specifies. Unrecognized option codes are skipped.
func DecodeAll(opt *dns.OPT) []Decoded {
	if opt == nil {
		return nil
	}
	var out []Decoded
	for _, o := range opt.Option {
		if d, ok := decodeOne(o); ok {
			out = append(out, d)
		}
	}
	return out
}

func decodeOne(o dns.EDNS0) (Decoded, bool) {
	switch v := o.(type) {
	case *dns.EDNS0_NSID:
		return Decoded{Kind: "NSID", NSID: decodeNSID(v)}, true
	case *dns.EDNS0_SUBNET:
		return Decoded{Kind: "ECS", ECS: decodeECS(v)}, true
	case *dns.EDNS0_EDE:
		return Decoded{Kind: "EDE", EDE: decodeEDE(v)}, true
	case *dns.EDNS0_COOKIE:
		return Decoded{Kind: "COOKIE", Cookie: decodeCookie(v)}, true
	case *dns.EDNS0_TCP_KEEPALIVE:
		return Decoded{Kind: "TCP-KEEPALIVE", KeepAlive: decodeKeepAlive(v)}, true
	case *dns.EDNS0_PADDING:
		return Decoded{Kind: "PADDING", Padding: &Padding{Length: len(v.Padding)}}, true
	case *dns.EDNS0_LOCAL:
		// CHAIN (RFC 7901) and KEY-TAG (RFC 8145) carry no dedicated
		// struct in miekg/dns; both ride on the generic local-option
		// type, dispatched here by option code.
		switch v.Code {
		case dns.EDNS0CHAIN:
			encoder, ok := decodeChainData(v.Data)
			if !ok {
				return Decoded{}, false
			}
			return Decoded{Kind: "CHAIN", Chain: encoder}, true
		case dns.EDNS0KEYTAG:
			return Decoded{Kind: "KEY-TAG", KeyTag: decodeKeyTagData(v.Data)}, true
		default:
			return Decoded{}, false
		}
	default:
		return Decoded{}, false
	}
}

// decodeNSID returns the NSID payload as UTF-8 text, falling back to
// hex when the bytes are not valid UTF-8 (the hex.DecodeString/EncodeToString
// round trip miekg/dns does internally already hex-encodes Nsid, so we
// decode it back to bytes first).
func decodeNSID(e *dns.EDNS0_NSID) *NSID {
	raw, err := hex.DecodeString(e.Nsid)
	if err != nil {
		return &NSID{Text: e.Nsid}
	}
	if utf8.Valid(raw) {
		return &NSID{Text: string(raw)}
	}
	return &NSID{Text: hex.EncodeToString(raw)}
}

func decodeECS(e *dns.EDNS0_SUBNET) *ECS {
	addr, ok := netip.AddrFromSlice(e.Address)
	addrStr := e.Address.String()
	if ok {
		addrStr = addr.String()
	}
	return &ECS{
		Family:   e.Family,
		SrcLen:   e.SourceNetmask,
		ScopeLen: e.SourceScope,
		Address:  addrStr,
	}
}

const edeTextMaxLen = 50

func decodeEDE(e *dns.EDNS0_EDE) *EDE {
	text := e.ExtraText
	if runes := []rune(text); len(runes) > edeTextMaxLen {
		// truncate on a rune boundary, append an ellipsis for terse display
		text = string(runes[:edeTextMaxLen]) + "…"
	}
	return &EDE{Code: e.InfoCode, Text: text}
}

func decodeCookie(e *dns.EDNS0_COOKIE) *Cookie {
	c := e.Cookie
	if len(c) <= 16 {
		return &Cookie{ClientHex: c}
	}
	return &Cookie{ClientHex: c[:16], ServerHex: c[16:]}
}

func decodeKeepAlive(e *dns.EDNS0_TCP_KEEPALIVE) *KeepAlive {
	return &KeepAlive{TimeoutSeconds: e.Timeout}
}

// decodeChainData decodes the CHAIN option's closest-encloser name,
// falling back to the Unicode replacement character for invalid UTF-8.
func decodeChainData(data []byte) (*Chain, bool) {
	if len(data) == 0 {
		return nil, false
	}
	if utf8.Valid(data) {
		return &Chain{ClosestEncloser: string(data)}, true
	}
	return &Chain{ClosestEncloser: string([]rune(string(data)))}, true
}

// decodeKeyTagData decodes a sequence of big-endian 16-bit key tags.
func decodeKeyTagData(data []byte) *KeyTag {
	tags := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		tags = append(tags, uint16(data[i])<<8|uint16(data[i+1]))
	}
	return &KeyTag{Tags: tags}
}

// Strings renders a slice of Decoded options the way the dnsping display
// line does, e.g. "[NSID:abc] [ECS:192.0.2.0/24/0]".
func Strings(opts []Decoded) []string {
	return functools.Map(opts, func(d Decoded) string {
		switch d.Kind {
		case "NSID":
			return fmt.Sprintf("[NSID:%s]", d.NSID.Text)
		case "ECS":
			return fmt.Sprintf("[ECS:%s/%d/%d]", d.ECS.Address, d.ECS.SrcLen, d.ECS.ScopeLen)
		case "EDE":
			return fmt.Sprintf("[EDE:%d %s]", d.EDE.Code, d.EDE.Text)
		case "COOKIE":
			return fmt.Sprintf("[COOKIE:%s]", d.Cookie.ClientHex)
		case "TCP-KEEPALIVE":
			return fmt.Sprintf("[KEEPALIVE:%ds]", d.KeepAlive.TimeoutSeconds)
		case "PADDING":
			return fmt.Sprintf("[PADDING:%d]", d.Padding.Length)
		case "CHAIN":
			return fmt.Sprintf("[CHAIN:%s]", d.Chain.ClosestEncloser)
		case "KEY-TAG":
			return fmt.Sprintf("[KEYTAG:%v]", d.KeyTag.Tags)
		default:
			return fmt.Sprintf("[%s]", d.Kind)
		}
	})
}
