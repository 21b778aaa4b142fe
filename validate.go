package dnsdiag

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/dnsdiag-go/dnsdiag/internal/netx"
)

// ValidHostname returns true iff name (with any single trailing dot
// stripped) is non-empty, at most 253 characters, splits on "." into
// 1-63 character labels, and each label starts and ends with an
// alphanumeric character and contains only alphanumerics and "-". When
// allowUnderscore is true, a label may additionally begin with "_" and
// contain "_" -- DNS query names legitimately carry "_dmarc",
// "_acme-challenge", etc; strict hostname validation applies only to
// resolver hostnames (C1).
func ValidHostname(name string, allowUnderscore bool) bool {
	name = strings.TrimSuffix(name, ".")
	if name == "" || len(name) > 253 {
		return false
	}

	for _, label := range strings.Split(name, ".") {
		if !validLabel(label, allowUnderscore) {
			return false
		}
	}
	return true
}

func validLabel(label string, allowUnderscore bool) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}

	first, last := label[0], label[len(label)-1]
	if allowUnderscore {
		if first != '_' && !isAlnum(first) {
			return false
		}
	} else if !isAlnum(first) {
		return false
	}
	if !isAlnum(last) {
		return false
	}

	for i := 0; i < len(label); i++ {
		c := label[i]
		if isAlnum(c) || c == '-' {
			continue
		}
		if allowUnderscore && c == '_' {
			continue
		}
		return false
	}
	return true
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// ResolveServer resolves name under the requested address family. If
// name already parses as an IP literal, it (and its family) is returned
// directly. Otherwise name is looked up via the OS resolver and the
// first matching-family result is returned.
//
// If family is FamilyUnspecified, a hostname is looked up for IPv4
// addresses only (per spec §4.1); there is no fallback to IPv6. An IP
// literal's own family is used regardless.
func ResolveServer(ctx context.Context, name string, family Family) (netip.Addr, Family, error) {
	if addr, err := netip.ParseAddr(name); err == nil {
		litFamily := netx.FamilyOf(name)
		if family != FamilyUnspecified && family != litFamily {
			return netip.Addr{}, FamilyUnspecified, NewError(ErrAddressFamilyConflict,
				fmt.Sprintf("resolver %s is %s but %s was requested", name, litFamily, family))
		}
		return addr, litFamily, nil
	}

	network := "ip"
	want := family
	if want == FamilyUnspecified {
		want = FamilyIPv4
	}
	if want == FamilyIPv4 {
		network = "ip4"
	} else {
		network = "ip6"
	}

	var resolver net.Resolver
	addrs, err := resolver.LookupIP(ctx, network, name)
	if err != nil || len(addrs) == 0 {
		return netip.Addr{}, FamilyUnspecified, WrapError(ErrResolutionFailed,
			fmt.Sprintf("could not resolve %q (%s)", name, want), err)
	}

	addr, ok := netip.AddrFromSlice(addrs[0])
	if !ok {
		return netip.Addr{}, FamilyUnspecified, NewError(ErrResolutionFailed,
			fmt.Sprintf("could not parse resolved address for %q", name))
	}
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	return addr, want, nil
}

// ValidIPLiteral returns true iff s parses as an IP address literal.
func ValidIPLiteral(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}
