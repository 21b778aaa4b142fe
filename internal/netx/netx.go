// Package netx holds small address-handling helpers shared by the query
// engine and the trace engine. Kept in-tree rather than pulled in as the
// external github.com/syslab-wm/netx module: that module's entry in the
// teacher's go.mod was unused dead weight, nothing imported it, and the
// teacher's own code already vendored equivalent helpers locally here.
package netx

import (
	"net"
	"net/netip"

	"github.com/syslab-wm/mu"
)

// HasPort returns whether addr includes a port number (i.e., is of the
// form HOST:PORT).
func HasPort(addr string) bool {
	_, _, err := net.SplitHostPort(addr)
	return err == nil
}

// TryAddPort checks whether the server string already has a port. If it
// does, it is returned unchanged; otherwise port is appended.
func TryAddPort(server string, port string) string {
	if HasPort(server) {
		return server
	}
	return net.JoinHostPort(server, port)
}

// IsIPv4 returns true iff s parses as an IPv4 address literal, including
// an IPv4-mapped IPv6 literal such as "::ffff:1.2.3.4".
func IsIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && (addr.Is4() || addr.Is4In6())
}

// IsIPv6 returns true iff s parses as an IPv6 address literal.
func IsIPv6(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is6()
}

// AddrAsIP converts a netip.Addr to a net.IP.
func AddrAsIP(addr netip.Addr) net.IP {
	ip := net.ParseIP(addr.String())
	if ip == nil {
		mu.Panicf("can't convert netip.Addr (%v) to a net.IP", addr)
	}
	return ip
}

// Family is an address family tag, used wherever the engine needs to
// remember whether a target was resolved or forced to IPv4 or IPv6.
type Family int

const (
	FamilyUnspecified Family = iota
	FamilyIPv4
	FamilyIPv6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unspecified"
	}
}

// FamilyOf returns the address family of an IP literal, or
// FamilyUnspecified if s does not parse as one.
func FamilyOf(s string) Family {
	switch {
	case IsIPv4(s):
		return FamilyIPv4
	case IsIPv6(s):
		return FamilyIPv6
	default:
		return FamilyUnspecified
	}
}
