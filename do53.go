package dnsdiag

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/miekg/dns"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// sendUDP implements plain Do53 over an unconnected UDP datagram: a
// single send and a single receive, discarding replies that don't match
// our transaction ID or come from the wrong source -- an unconnected
// socket accepts datagrams from any source, which a connected socket
// would otherwise have the OS filter for us (C2, UDP).
//
// When opts.SocketTTL is set (the trace engine's hop-limited probes),
// the outbound packet's IP TTL / IPv6 hop limit is installed on the
// socket before send.
func sendUDP(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error) {
	laddr, err := localUDPAddr(target.Family, opts)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP(udpNetwork(target.Family), laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if opts.SocketTTL > 0 {
		if err := setSocketTTL(conn, target.Family, opts.SocketTTL); err != nil {
			return nil, fmt.Errorf("failed to set socket TTL: %w", err)
		}
	}

	raddr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(target.ResolverIP, target.DstPort))

	wire, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("failed to pack query: %w", err)
	}
	if _, err := conn.WriteToUDP(wire, raddr); err != nil {
		return nil, fmt.Errorf("failed to send UDP query: %w", err)
	}

	buf := make([]byte, 65535)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nil, err
		}
		if !from.IP.Equal(raddr.IP) {
			continue // reply from an unexpected source; discard silently
		}
		resp := new(dns.Msg)
		if err := resp.Unpack(buf[:n]); err != nil {
			return nil, WrapError(ErrInvalidResponse, "failed to unpack UDP response", err)
		}
		if resp.Id != msg.Id {
			continue // reply for a different transaction; discard silently
		}
		return resp, nil
	}
}

// sendTCP implements Do53 over TCP with 2-byte length framing, via a
// fresh connection per query (C2, TCP).
func sendTCP(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error) {
	var d net.Dialer
	if opts.SourceIP != "" || opts.SourcePort != 0 {
		laddr, err := localTCPAddr(target.Family, opts)
		if err != nil {
			return nil, err
		}
		d.LocalAddr = laddr
	}

	conn, err := d.DialContext(ctx, tcpNetwork(target.Family), target.Addr())
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	dnsConn := &dns.Conn{Conn: conn}
	if err := dnsConn.WriteMsg(msg); err != nil {
		return nil, fmt.Errorf("failed to send TCP query: %w", err)
	}
	resp, err := dnsConn.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("failed to read TCP response: %w", err)
	}
	return resp, nil
}

func udpNetwork(f Family) string {
	if f == FamilyIPv6 {
		return "udp6"
	}
	return "udp4"
}

func tcpNetwork(f Family) string {
	if f == FamilyIPv6 {
		return "tcp6"
	}
	return "tcp4"
}

func localUDPAddr(f Family, opts DialOptions) (*net.UDPAddr, error) {
	if opts.SourceIP == "" && opts.SourcePort == 0 {
		return nil, nil
	}
	ip := net.IPv4zero
	if f == FamilyIPv6 {
		ip = net.IPv6zero
	}
	if opts.SourceIP != "" {
		ip = net.ParseIP(opts.SourceIP)
		if ip == nil {
			return nil, NewError(ErrInputInvalid, fmt.Sprintf("invalid source IP %q", opts.SourceIP))
		}
	}
	return &net.UDPAddr{IP: ip, Port: opts.SourcePort}, nil
}

func localTCPAddr(f Family, opts DialOptions) (*net.TCPAddr, error) {
	ip := net.IPv4zero
	if f == FamilyIPv6 {
		ip = net.IPv6zero
	}
	if opts.SourceIP != "" {
		ip = net.ParseIP(opts.SourceIP)
		if ip == nil {
			return nil, NewError(ErrInputInvalid, fmt.Sprintf("invalid source IP %q", opts.SourceIP))
		}
	}
	return &net.TCPAddr{IP: ip, Port: opts.SourcePort}, nil
}

// setSocketTTL installs the IP TTL (IPv4) or hop limit (IPv6) on an
// unconnected UDP socket, for the trace engine's TTL-bounded probes
// (spec §4.2, "When a socket_ttl is supplied").
func setSocketTTL(conn *net.UDPConn, f Family, ttl int) error {
	if f == FamilyIPv6 {
		return ipv6.NewPacketConn(conn).SetHopLimit(ttl)
	}
	return ipv4.NewPacketConn(conn).SetTTL(ttl)
}

// WithCause attaches a cause to an already-constructed Error, for call
// sites that build the message before learning the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}
