// Package dnsdiag implements the shared DNS query engine that backs the
// dnsping, dnseval, and dnstraceroute command-line tools: protocol
// dispatch across six transports, EDNS(0) option assembly, per-probe
// timing, and aggregate statistics.
package dnsdiag

import (
	"net/netip"
	"time"

	"github.com/dnsdiag-go/dnsdiag/internal/netx"
	"github.com/miekg/dns"
)

// Protocol tags the transport a query is sent over. Each carries a
// default destination port (C2).
type Protocol uint8

const (
	ProtocolUDP Protocol = iota
	ProtocolTCP
	ProtocolTLS
	ProtocolHTTPS
	ProtocolQUIC
	ProtocolHTTP3
)

var protocolNames = map[Protocol]string{
	ProtocolUDP:   "UDP",
	ProtocolTCP:   "TCP",
	ProtocolTLS:   "TLS",
	ProtocolHTTPS: "HTTPS",
	ProtocolQUIC:  "QUIC",
	ProtocolHTTP3: "HTTP3",
}

func (p Protocol) String() string {
	if s, ok := protocolNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

var protocolDefaultPorts = map[Protocol]uint16{
	ProtocolUDP:   53,
	ProtocolTCP:   53,
	ProtocolTLS:   853,
	ProtocolHTTPS: 443,
	ProtocolQUIC:  853,
	ProtocolHTTP3: 443,
}

// DefaultPort returns the standard destination port for p. DefaultPort
// is a total function over the six defined protocols.
func (p Protocol) DefaultPort() uint16 {
	return protocolDefaultPorts[p]
}

// QuerySpec is an immutable description of one request, built once per
// command invocation (C3's input).
type QuerySpec struct {
	QName          string
	RDType         uint16
	RDClass        uint16
	RecursionDesired bool
	UseEDNS        bool
	WantDNSSEC     bool
	WantNSID       bool
	ECS            *ECS
	SendCookie     bool
	ForceCacheMiss bool
}

// ECS is the client-subnet hint a QuerySpec may carry.
type ECS struct {
	Address netip.Addr
	Prefix  uint8
}

// ServerTarget names the resolver a query is sent to, keeping the
// original hostname around (if any) so TLS/HTTPS transports can use it
// for SNI / the DoH request URL even though the socket dials the
// resolved IP.
type ServerTarget struct {
	ResolverIP       netip.Addr
	ResolverHostname string // empty if the operator supplied a bare IP
	DstPort          uint16
	Protocol         Protocol
	Family           Family
}

// Addr returns "ip:port", suitable for net.Dial.
func (t ServerTarget) Addr() string {
	return netip.AddrPortFrom(t.ResolverIP, t.DstPort).String()
}

// SNIName returns the name transports should present for certificate
// validation / SNI: the original hostname when the operator supplied
// one, else the IP literal.
func (t ServerTarget) SNIName() string {
	if t.ResolverHostname != "" {
		return t.ResolverHostname
	}
	return t.ResolverIP.String()
}

// ResponseHandle is what the transport dispatcher (C2) hands back to the
// ping engine: the decoded response plus engine-measured timing.
type ResponseHandle struct {
	Msg     *dns.Msg
	Elapsed time.Duration
}

// ProbeResult is a per-probe record: either a response was obtained, or
// err explains why not. Exactly one of Response/Err is populated.
type ProbeResult struct {
	ElapsedMS float64
	Response  *dns.Msg
	Err       *Error
}

// PingSummary is a per-server aggregate, produced once at the end of a
// Ping run (C4's output).
type PingSummary struct {
	Server      ServerTarget
	Sent        int
	Received    int
	LossPercent float64

	RTTMinMS    float64
	RTTMaxMS    float64
	RTTAvgMS    float64
	RTTStdDevMS float64

	// Populated only when Received >= 1: fields from the last successful
	// response.
	LastResponse *LastResponse
}

// LastResponse captures the interesting fields of the final successful
// response in a Ping run, for display/JSON.
type LastResponse struct {
	Flags      string
	EDNSFlags  string
	Rcode      int
	RcodeText  string
	AnswerTTL  uint32
	Answer     []dns.RR
	Options    []string // rendered EDNS options, see internal/ednsopts
	Raw        *dns.Msg
}

// Family is an alias for internal/netx.Family so callers of this
// package don't also need to import internal/netx for the common case.
type Family = netx.Family

const (
	FamilyUnspecified = netx.FamilyUnspecified
	FamilyIPv4        = netx.FamilyIPv4
	FamilyIPv6        = netx.FamilyIPv6
)
