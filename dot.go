package dnsdiag

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/miekg/dns"
)

// sendTLS implements DoT: a TCP connection wrapped in TLS 1.2+. When
// the resolver was given as a hostname, that hostname drives SNI and
// certificate validation; when given as an IP literal, the literal
// itself is used (C2, TLS/DoT).
func sendTLS(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error) {
	var d net.Dialer
	if opts.SourceIP != "" || opts.SourcePort != 0 {
		laddr, err := localTCPAddr(target.Family, opts)
		if err != nil {
			return nil, err
		}
		d.LocalAddr = laddr
	}

	tlsConfig := &tls.Config{
		ServerName: target.SNIName(),
		MinVersion: tls.VersionTLS12,
	}

	tlsDialer := &tls.Dialer{NetDialer: &d, Config: tlsConfig}
	conn, err := tlsDialer.DialContext(ctx, tcpNetwork(target.Family), target.Addr())
	if err != nil {
		return nil, fmt.Errorf("DoT handshake failed: %w", err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	dnsConn := &dns.Conn{Conn: conn}
	if err := dnsConn.WriteMsg(msg); err != nil {
		return nil, fmt.Errorf("failed to send DoT query: %w", err)
	}
	resp, err := dnsConn.ReadMsg()
	if err != nil {
		return nil, fmt.Errorf("failed to read DoT response: %w", err)
	}
	return resp, nil
}
