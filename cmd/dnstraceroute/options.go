package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dnsdiag-go/dnsdiag/internal/cliopts"
	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
	"github.com/syslab-wm/mu"
)

const usage = `Usage: dnstraceroute [options] NAME

Trace the network path a DNS query takes to a resolver, the way
traceroute(8) traces the path IP packets take, but correlating each
hop's ICMP reply with the DNS probe that provoked it.

positional arguments:
  NAME
    The query name to resolve.

options:
  -help
    Display this usage statement and exit.

  -server SERVER
    The resolver to trace to. Defaults to the first nameserver in
    /etc/resolv.conf.

  -4 / -6
    Force IPv4 or IPv6 when SERVER is a hostname.

  -srcip ADDR
    Bind the outbound socket to a specific source address.

  -maxhops N
    The maximum TTL to probe before giving up.

    Default: 30

  -W TIMEOUT
    The per-hop timeout.

    Default: 2s

  -asn
    Annotate each hop with its origin AS, via Team Cymru's WHOIS
    service. Failed lookups are silently omitted.

  -whois-cache PATH
    Path to the on-disk ASN lookup cache.

    Default: whois.cache

  -expert
    Annotate the resolved hop with heuristic observations (possible DNS
    hijacking, an invisible hop next to the resolver, a resolver behind
    a private/reserved address).

  -json
    Print the path as JSON instead of the human-readable hop listing.

examples:
  $ dnstraceroute -server 8.8.8.8 -asn -expert example.com
`

type options struct {
	name string

	server     string
	four       bool
	six        bool
	sourceIP   string
	maxHops    int
	timeout    time.Duration
	asn        bool
	whoisCache string
	expert     bool
	json       bool

	query cliopts.Query
}

func printUsage() {
	fmt.Fprint(os.Stderr, usage)
}

func parseOptions() *options {
	opts := &options{}
	flag.Usage = printUsage

	flag.StringVar(&opts.query.TypeStr, "type", "A", "")
	flag.StringVar(&opts.query.ClassStr, "class", "IN", "")

	flag.StringVar(&opts.server, "server", "", "")
	flag.BoolVar(&opts.four, "4", false, "")
	flag.BoolVar(&opts.six, "6", false, "")
	flag.StringVar(&opts.sourceIP, "srcip", "", "")
	flag.IntVar(&opts.maxHops, "maxhops", defaults.MaxHops, "")
	flag.DurationVar(&opts.timeout, "W", defaults.TraceTimeout, "")
	flag.BoolVar(&opts.asn, "asn", false, "")
	flag.StringVar(&opts.whoisCache, "whois-cache", defaults.WhoisCachePath, "")
	flag.BoolVar(&opts.expert, "expert", false, "")
	flag.BoolVar(&opts.json, "json", false, "")

	flag.Parse()

	if flag.NArg() != 1 {
		mu.Fatalf("error: expected one positional argument (NAME) but got %d", flag.NArg())
	}
	opts.name = flag.Arg(0)

	if opts.four && opts.six {
		mu.Fatalf("error: cannot specify both -4 and -6")
	}
	if opts.server == "" {
		server, err := cliopts.DefaultServer()
		if err != nil {
			mu.Fatalf("error: no -server given and could not read a default from /etc/resolv.conf: %v", err)
		}
		opts.server = server
	}
	if err := opts.query.Finalize(); err != nil {
		mu.Fatalf("error: %v", err)
	}
	if opts.maxHops <= 0 {
		mu.Fatalf("error: -maxhops must be >= 1")
	}

	return opts
}
