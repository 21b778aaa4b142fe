// Package cliopts holds the flag parsing shared by the dnsping,
// dnseval, and dnstraceroute commands: all three parse their query
// options into a Query (dnstraceroute registers only -type and -class),
// and dnsping and dnseval parse their server/transport options into a
// Transport.
package cliopts

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/miekg/dns"
)

// Query holds the parsed -type/-class/-edns/... flags; the struct is
// shared by all three commands.
type Query struct {
	TypeStr   string
	ClassStr  string
	NoRecurse bool
	EDNS      bool
	DNSSEC    bool
	NSID      bool
	ECS       string
	Cookie    bool
	CacheMiss bool

	qtype  uint16 // derived
	qclass uint16 // derived
}

// Finalize resolves TypeStr/ClassStr into their numeric wire values.
// Call it after flag.Parse.
func (q *Query) Finalize() error {
	typeStr := strings.ToUpper(q.TypeStr)
	if strings.HasPrefix(typeStr, "TYPE") {
		n, err := strconv.ParseUint(typeStr[4:], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid record type %q", q.TypeStr)
		}
		q.qtype = uint16(n)
	} else {
		t, ok := dns.StringToType[typeStr]
		if !ok {
			return fmt.Errorf("invalid record type %q", q.TypeStr)
		}
		q.qtype = t
	}

	classStr := strings.ToUpper(q.ClassStr)
	if classStr == "" {
		classStr = "IN"
	}
	c, ok := dns.StringToClass[classStr]
	if !ok {
		return fmt.Errorf("invalid class %q", q.ClassStr)
	}
	q.qclass = c

	return nil
}

// BuildSpec assembles the QuerySpec for qname from the parsed flags.
func (q Query) BuildSpec(qname string) (dnsdiag.QuerySpec, error) {
	spec := dnsdiag.QuerySpec{
		QName:            qname,
		RDType:           q.qtype,
		RDClass:          q.qclass,
		RecursionDesired: !q.NoRecurse,
		UseEDNS:          q.EDNS,
		WantDNSSEC:       q.DNSSEC,
		WantNSID:         q.NSID,
		SendCookie:       q.Cookie,
		ForceCacheMiss:   q.CacheMiss,
	}

	if q.ECS != "" {
		prefix, err := netip.ParsePrefix(q.ECS)
		if err != nil {
			addr, addrErr := netip.ParseAddr(q.ECS)
			if addrErr != nil {
				return dnsdiag.QuerySpec{}, fmt.Errorf("invalid -ecs value %q: %w", q.ECS, err)
			}
			bits := 32
			if addr.Is6() {
				bits = 128
			}
			prefix = netip.PrefixFrom(addr, bits)
		}
		spec.ECS = &dnsdiag.ECS{Address: prefix.Addr(), Prefix: uint8(prefix.Bits())}
	}

	return spec, nil
}
