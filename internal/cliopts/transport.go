package cliopts

import (
	"context"
	"fmt"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/miekg/dns"
)

// Transport holds the parsed server/protocol/source-address flags
// common to all three commands.
type Transport struct {
	Server string
	Port   int
	Four   bool
	Six    bool
	TCP    bool
	TLS    bool
	DoH    bool
	DoQ    bool
	HTTP3  bool

	SourceIP   string
	SourcePort int
}

// Finalize rejects mutually exclusive combinations. Call it after
// flag.Parse.
func (t *Transport) Finalize() error {
	if t.Four && t.Six {
		return fmt.Errorf("cannot specify both -4 and -6")
	}

	n := 0
	for _, b := range []bool{t.TCP, t.TLS, t.DoH, t.DoQ, t.HTTP3} {
		if b {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("only one of -tcp, -tls, -doh, -quic, -http3 may be given")
	}

	if t.Server == "" {
		server, err := DefaultServer()
		if err != nil {
			return fmt.Errorf("no -server given and could not read a default from /etc/resolv.conf: %w", err)
		}
		t.Server = server
	}

	return nil
}

// Protocol returns the transport the flags selected, defaulting to
// plain Do53 UDP.
func (t Transport) Protocol() dnsdiag.Protocol {
	switch {
	case t.TCP:
		return dnsdiag.ProtocolTCP
	case t.TLS:
		return dnsdiag.ProtocolTLS
	case t.DoH:
		return dnsdiag.ProtocolHTTPS
	case t.DoQ:
		return dnsdiag.ProtocolQUIC
	case t.HTTP3:
		return dnsdiag.ProtocolHTTP3
	default:
		return dnsdiag.ProtocolUDP
	}
}

// Family returns the address family the flags requested.
func (t Transport) Family() dnsdiag.Family {
	switch {
	case t.Four:
		return dnsdiag.FamilyIPv4
	case t.Six:
		return dnsdiag.FamilyIPv6
	default:
		return dnsdiag.FamilyUnspecified
	}
}

// ResolveTarget resolves Server under the requested family and builds a
// ServerTarget for it, defaulting Port to the selected protocol's
// standard port.
func (t Transport) ResolveTarget(ctx context.Context) (dnsdiag.ServerTarget, error) {
	protocol := t.Protocol()
	family := t.Family()

	ip, resolvedFamily, err := dnsdiag.ResolveServer(ctx, t.Server, family)
	if err != nil {
		return dnsdiag.ServerTarget{}, err
	}

	port := t.Port
	if port == 0 {
		port = int(protocol.DefaultPort())
	}

	hostname := ""
	if !dnsdiag.ValidIPLiteral(t.Server) {
		hostname = t.Server
	}

	return dnsdiag.ServerTarget{
		ResolverIP:       ip,
		ResolverHostname: hostname,
		DstPort:          uint16(port),
		Protocol:         protocol,
		Family:           resolvedFamily,
	}, nil
}

// DefaultServer reads the first nameserver out of /etc/resolv.conf, used
// when -server is omitted.
func DefaultServer() (string, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", err
	}
	if len(conf.Servers) == 0 {
		return "", fmt.Errorf("/etc/resolv.conf has no nameserver entries")
	}
	return conf.Servers[0], nil
}
