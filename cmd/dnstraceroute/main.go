// Command dnstraceroute traces the network path a DNS query takes to a
// resolver, correlating each hop's ICMP reply with the DNS probe that
// provoked it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"os"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/dnsdiag-go/dnsdiag/dnstrace"
	"github.com/dnsdiag-go/dnsdiag/dnswhois"
)

func main() {
	opts := parseOptions()

	canceller := dnsdiag.NewCanceller()
	canceller.Install()

	ctx := context.Background()

	family := dnsdiag.FamilyUnspecified
	if opts.four {
		family = dnsdiag.FamilyIPv4
	} else if opts.six {
		family = dnsdiag.FamilyIPv6
	}

	ip, resolvedFamily, err := dnsdiag.ResolveServer(ctx, opts.server, family)
	if err != nil {
		exitWithError(err)
	}

	hostname := ""
	if !dnsdiag.ValidIPLiteral(opts.server) {
		hostname = opts.server
	}

	target := dnsdiag.ServerTarget{
		ResolverIP:       ip,
		ResolverHostname: hostname,
		DstPort:          uint16(dnsdiag.ProtocolUDP.DefaultPort()),
		Protocol:         dnsdiag.ProtocolUDP,
		Family:           resolvedFamily,
	}

	spec, err := opts.query.BuildSpec(opts.name)
	if err != nil {
		exitWithError(err)
	}

	traceOpts := dnstrace.Options{
		MaxHops:   opts.maxHops,
		Timeout:   opts.timeout,
		SourceIP:  opts.sourceIP,
		Expert:    opts.expert,
		Canceller: canceller,
	}

	if opts.asn {
		cache, err := dnswhois.Open(opts.whoisCache, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dnstraceroute: warning: failed to open whois cache %s: %v\n", opts.whoisCache, err)
			cache = nil
		}
		if cache != nil {
			defer cache.Save()
		}
		client := dnswhois.NewClient(cache)
		traceOpts.ASLookup = func(addr netip.Addr) (int, string, error) {
			return client.Lookup(ctx, addr)
		}
	}

	path, err := dnstrace.Trace(ctx, target, spec, traceOpts)
	if err != nil {
		exitWithError(err)
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(path)
		return
	}

	printPath(path, opts.maxHops)
}

func printPath(path *dnstrace.Path, maxHops int) {
	fmt.Printf("traceroute to %s, %d hops max\n", path.Target.Addr(), maxHops)
	for _, hop := range path.Hops {
		if !hop.RouterIP.IsValid() {
			fmt.Printf("%2d  *\n", hop.Index)
			continue
		}

		line := fmt.Sprintf("%2d  %s  %.3f ms", hop.Index, hop.RouterIP, hop.RTTMillis)
		if hop.Reached {
			line += "  (resolver)"
		}
		if hop.ASN != 0 {
			line += fmt.Sprintf("  AS%d %s", hop.ASN, hop.ASNOwner)
		}
		fmt.Println(line)
		for _, h := range hop.Hints {
			fmt.Printf("      ! %s\n", h)
		}
	}
	if !path.Reached {
		fmt.Println("resolver not reached within the hop limit")
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "dnstraceroute: error: %v\n", err)
	if e, ok := err.(*dnsdiag.Error); ok {
		os.Exit(e.Kind.ExitCode())
	}
	os.Exit(1)
}
