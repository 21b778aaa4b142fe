package msgutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/netip"

	"github.com/dnsdiag-go/dnsdiag/internal/netx"
	"github.com/miekg/dns"
	"github.com/syslab-wm/mu"
)

// ECS is the {address, prefix} pair a caller supplies for the EDNS
// Client Subnet option (RFC 7871).
type ECS struct {
	Address netip.Addr
	Prefix  uint8
}

// OPTOptions controls which EDNS(0) options BuildOPT appends.
type OPTOptions struct {
	UDPSize    uint16
	DO         bool
	WantNSID   bool
	ECS        *ECS
	SendCookie bool
}

// BuildOPT constructs the OPT pseudo-RR for a query per opts: NSID (empty
// payload), ECS, and an 8-byte random client cookie with an empty server
// cookie, as spec'd for the query builder (C3).
func BuildOPT(opts OPTOptions) (*dns.OPT, error) {
	o := new(dns.OPT)
	o.Hdr.Name = "."
	o.Hdr.Rrtype = dns.TypeOPT
	o.SetUDPSize(opts.UDPSize)
	o.SetDo(opts.DO)

	if opts.WantNSID {
		o.Option = append(o.Option, &dns.EDNS0_NSID{Code: dns.EDNS0NSID})
	}

	if opts.ECS != nil {
		e := &dns.EDNS0_SUBNET{Code: dns.EDNS0SUBNET}
		addr := opts.ECS.Address
		switch {
		case addr.Is4():
			e.Family = 1
			e.SourceNetmask = opts.ECS.Prefix
			e.Address = netx.AddrAsIP(addr).To4()
		case addr.Is6():
			e.Family = 2
			e.SourceNetmask = opts.ECS.Prefix
			e.Address = netx.AddrAsIP(addr).To16()
		default:
			return nil, fmt.Errorf("invalid ECS address %v", addr)
		}
		o.Option = append(o.Option, e)
	}

	if opts.SendCookie {
		cookie, err := randomClientCookie()
		if err != nil {
			return nil, fmt.Errorf("failed to generate DNS cookie: %w", err)
		}
		o.Option = append(o.Option, &dns.EDNS0_COOKIE{
			Code:   dns.EDNS0COOKIE,
			Cookie: cookie,
		})
	}

	return o, nil
}

// randomClientCookie returns 8 cryptographically random bytes, hex
// encoded, as required for the client half of an EDNS COOKIE option
// (RFC 7873 §4).
func randomClientCookie() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", buf), nil
}

const randomLabelAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomLabel returns a random alphanumeric label of length n.
func RandomLabel(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(randomLabelAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = randomLabelAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// RandomLabelRange returns a random alphanumeric label whose length is
// chosen uniformly from [min, max]. Used to build the
// "_dnsdiag_<rand>_" cache-busting prefix (C3, force_cache_miss).
func RandomLabelRange(min, max int) (string, error) {
	if min > max || min < 1 {
		mu.Panicf("invalid random label length range [%d, %d]", min, max)
	}
	if min == max {
		return RandomLabel(min)
	}
	span := big.NewInt(int64(max - min + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return RandomLabel(min + int(n.Int64()))
}
