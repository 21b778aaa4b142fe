// Package dnstrace implements the hop-limited trace engine: a series of
// TTL-bounded DNS queries that map the path to a resolver by correlating
// each hop's ICMP Time Exceeded reply with the probe that provoked it
// (C6).
package dnstrace

import (
	"context"
	"net"

	"github.com/dnsdiag-go/dnsdiag"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// icmpListener is a single unprivileged ICMP socket shared across every
// hop of one trace. Unprivileged ICMP ("udp4"/"udp6" in
// golang.org/x/net/icmp) requires the process's group to be within
// net.ipv4.ping_group_range on Linux; it receives every ICMP message
// delivered to this host, not just ones provoked by our own probes, so
// callers must filter by embedded port.
type icmpListener struct {
	family dnsdiag.Family
	conn   *icmp.PacketConn
}

func newICMPListener(family dnsdiag.Family) (*icmpListener, error) {
	network, address := "udp4", "0.0.0.0"
	if family == dnsdiag.FamilyIPv6 {
		network, address = "udp6", "::"
	}
	conn, err := icmp.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}
	return &icmpListener{family: family, conn: conn}, nil
}

func (l *icmpListener) Close() error {
	return l.conn.Close()
}

// icmpHit is an in-scope ICMP error: its embedded packet's destination
// port matched the probe that triggered waitForHit.
type icmpHit struct {
	From         net.Addr
	TimeExceeded bool
}

// waitForHit blocks until ctx's deadline for an ICMP Time Exceeded or
// Destination Unreachable whose embedded original packet was addressed
// to wantDstPort, discarding everything else arriving on the shared
// socket.
func (l *icmpListener) waitForHit(ctx context.Context, wantDstPort int) (*icmpHit, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = l.conn.SetReadDeadline(deadline)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := l.conn.ReadFrom(buf)
		if err != nil {
			return nil, err
		}
		hit, matched := l.parse(buf[:n], wantDstPort)
		if !matched {
			continue
		}
		hit.From = peer
		return hit, nil
	}
}

func (l *icmpListener) parse(b []byte, wantDstPort int) (*icmpHit, bool) {
	proto := ipv4.ICMPTypeTimeExceeded.Protocol()
	if l.family == dnsdiag.FamilyIPv6 {
		proto = ipv6.ICMPTypeTimeExceeded.Protocol()
	}

	msg, err := icmp.ParseMessage(proto, b)
	if err != nil {
		return nil, false
	}

	var body []byte
	timeExceeded := false
	switch m := msg.Body.(type) {
	case *icmp.TimeExceeded:
		body = m.Data
		timeExceeded = true
	case *icmp.DstUnreach:
		body = m.Data
	default:
		return nil, false
	}

	port, ok := extractEmbeddedDstPort(body, l.family)
	if !ok || port != wantDstPort {
		return nil, false
	}
	return &icmpHit{TimeExceeded: timeExceeded}, true
}

// extractEmbeddedDstPort pulls the destination port out of the UDP
// header embedded in an ICMP error's payload. IPv4's invoking packet
// still carries its own IP header, whose length is variable per the
// IHL nibble; on Linux's unprivileged ICMP socket, IPv6's outer header
// is already stripped by the kernel, so the embedded packet begins
// directly at the original IPv6 header, which is always 40 bytes.
func extractEmbeddedDstPort(body []byte, family dnsdiag.Family) (int, bool) {
	if family == dnsdiag.FamilyIPv6 {
		const ipv6HeaderLen = 40
		if len(body) < ipv6HeaderLen+4 {
			return 0, false
		}
		return int(body[ipv6HeaderLen+2])<<8 | int(body[ipv6HeaderLen+3]), true
	}

	if len(body) < 1 {
		return 0, false
	}
	ihl := int(body[0]&0x0f) * 4
	if ihl < 20 || len(body) < ihl+4 {
		return 0, false
	}
	return int(body[ihl+2])<<8 | int(body[ihl+3]), true
}
