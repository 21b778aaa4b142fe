package dnstrace

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
)

// Hop is one TTL's outcome along a trace. RouterIP is the zero Addr for
// a hop that produced no response within the timeout ("*").
type Hop struct {
	Index     int
	RouterIP  netip.Addr
	RTTMillis float64
	Reached   bool // this hop's reply was the resolver's own DNS answer
	ASN       int
	ASNOwner  string
	Hints     []string
}

// Path is the result of one Trace call.
type Path struct {
	Target  dnsdiag.ServerTarget
	Hops    []Hop
	Reached bool
}

// ASLookupFunc annotates a router address with its origin AS, e.g. via
// dnswhois's Team Cymru client. A nil ASLookupFunc disables annotation.
type ASLookupFunc func(netip.Addr) (asn int, owner string, err error)

// Options bundles the knobs of a Trace run (C6, mirrors dnstraceroute's
// CLI surface).
type Options struct {
	MaxHops  int
	Timeout  time.Duration
	SourceIP string
	ASLookup ASLookupFunc
	Expert   bool
	Canceller *dnsdiag.Canceller
}

// Trace sends the same DNS query at successively higher socket TTLs and
// records, per hop, whichever arrives first: the router's ICMP Time
// Exceeded, or the resolver's own DNS answer (which ends the trace).
// Termination conditions are reaching the resolver, a hop answering from
// the resolver's own address, or exhausting opts.MaxHops (C6).
func Trace(ctx context.Context, target dnsdiag.ServerTarget, spec dnsdiag.QuerySpec, opts Options) (*Path, error) {
	if opts.MaxHops <= 0 {
		opts.MaxHops = defaults.MaxHops
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.TraceTimeout
	}

	listener, err := newICMPListener(target.Family)
	if err != nil {
		return nil, dnsdiag.WrapError(dnsdiag.ErrPermissionDenied,
			"failed to open ICMP listener (unprivileged ICMP requires this process's group to be within net.ipv4.ping_group_range)", err)
	}
	defer listener.Close()

	path := &Path{Target: target}

	for ttl := 1; ttl <= opts.MaxHops; ttl++ {
		if opts.Canceller != nil && opts.Canceller.ShutdownRequested() {
			break
		}

		hop, reached, err := probeHop(ctx, listener, target, spec, ttl, opts)
		if err != nil {
			return path, err
		}
		hop.Index = ttl
		path.Hops = append(path.Hops, hop)

		if reached {
			path.Reached = true
			break
		}
		if hop.RouterIP.IsValid() && hop.RouterIP == target.ResolverIP {
			path.Reached = true
			break
		}
	}

	if opts.ASLookup != nil {
		annotateASNs(path, opts.ASLookup)
	}
	if opts.Expert {
		applyHints(path)
	}

	return path, nil
}

// probeHop races a real DNS exchange (TTL-limited) against the shared
// ICMP listener for the duration of opts.Timeout, and reports whichever
// resolves first.
func probeHop(ctx context.Context, listener *icmpListener, target dnsdiag.ServerTarget, spec dnsdiag.QuerySpec, ttl int, opts Options) (Hop, bool, error) {
	qname, err := dnsdiag.BuildTraceProbeName(spec.QName)
	if err != nil {
		return Hop{}, false, err
	}
	// The probe name's "_dnsdiag_<rand>_" label does not pass BuildQuery's
	// qname validation, so the query is built from spec and renamed.
	msg, err := dnsdiag.BuildQuery(spec)
	if err != nil {
		return Hop{}, false, err
	}
	msg.Question[0].Name = qname

	hctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()

	dnsCh := make(chan error, 1)
	go func() {
		_, err := dnsdiag.Dispatch(hctx, msg, target, dnsdiag.DialOptions{
			SourceIP:  opts.SourceIP,
			SocketTTL: ttl,
			Timeout:   opts.Timeout,
		})
		dnsCh <- err
	}()

	icmpCh := make(chan *icmpHit, 1)
	go func() {
		hit, err := listener.waitForHit(hctx, int(target.DstPort))
		if err != nil {
			icmpCh <- nil
			return
		}
		icmpCh <- hit
	}()

	for dnsCh != nil || icmpCh != nil {
		select {
		case dnsErr, ok := <-dnsCh:
			if !ok {
				dnsCh = nil
				continue
			}
			if dnsErr == nil {
				return Hop{RouterIP: target.ResolverIP, RTTMillis: millisSince(start), Reached: true}, true, nil
			}
			dnsCh = nil
		case hit, ok := <-icmpCh:
			if !ok {
				icmpCh = nil
				continue
			}
			if hit != nil {
				return hopFromICMPHit(hit, start), false, nil
			}
			icmpCh = nil
		case <-hctx.Done():
			return Hop{}, false, nil
		}
	}

	return Hop{}, false, nil
}

func hopFromICMPHit(hit *icmpHit, start time.Time) Hop {
	var routerIP netip.Addr
	if udpAddr, ok := hit.From.(*net.UDPAddr); ok {
		if ip, ok2 := netip.AddrFromSlice(udpAddr.IP); ok2 {
			routerIP = ip.Unmap()
		}
	}
	return Hop{RouterIP: routerIP, RTTMillis: millisSince(start)}
}

func millisSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

func annotateASNs(path *Path, lookup ASLookupFunc) {
	for i := range path.Hops {
		hop := &path.Hops[i]
		if !hop.RouterIP.IsValid() {
			continue
		}
		asn, owner, err := lookup(hop.RouterIP)
		if err != nil {
			continue // ASN annotation is best-effort
		}
		hop.ASN = asn
		hop.ASNOwner = owner
	}
}
