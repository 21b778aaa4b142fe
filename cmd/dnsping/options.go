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

const usage = `Usage: dnsping [options] NAME

Repeatedly query a DNS server and report per-query timing and loss,
the way ping(8) reports ICMP echo timing and loss.

positional arguments:
  NAME
    The query name to resolve.

options:
  -help
    Display this usage statement and exit.

query options:
  -type TYPE
    The query type (e.g. A, AAAA, NS, TYPE###).

    Default: A

  -class CLASS
    The query class.

    Default: IN

  -norecurse
    Clear the RD (recursion desired) bit.

  -edns
    Force an EDNS0 OPT record even when no other EDNS option below is set.

  -dnssec
    Set the DNSSEC OK (DO) bit.

  -nsid
    Request the server's NSID.

  -ecs ADDR[/LEN]
    Send an EDNS Client Subnet hint.

  -cookie
    Send an EDNS Cookie option.

  -cache-miss
    Prefix each query name with a random label, to bypass the server's
    cache on every probe.

transport options:
  -server SERVER
    The nameserver to query. Defaults to the first nameserver in
    /etc/resolv.conf.

  -port PORT
    The destination port. Defaults to the standard port for the
    selected transport.

  -4 / -6
    Force IPv4 or IPv6 when SERVER is a hostname.

  -tcp / -tls / -doh / -quic / -http3
    Select a transport other than plain Do53 UDP.

  -srcip ADDR
  -srcport PORT
    Bind the outbound socket to a specific source address/port.

ping options:
  -c COUNT
    The number of probes to send.

    Default: 10

  -i INTERVAL
    The delay between probes (e.g. 500ms, 1s).

    Default: 1s

  -W TIMEOUT
    The per-probe timeout.

    Default: 5s

  -json
    Print the final summary as JSON instead of the human-readable report.

examples:
  $ dnsping -server 1.1.1.1 -c 5 example.com
`

type options struct {
	name string

	query     cliopts.Query
	transport cliopts.Transport

	count    int
	interval time.Duration
	timeout  time.Duration
	json     bool
}

func printUsage() {
	fmt.Fprint(os.Stderr, usage)
}

func parseOptions() *options {
	opts := &options{}
	flag.Usage = printUsage

	flag.StringVar(&opts.query.TypeStr, "type", "A", "")
	flag.StringVar(&opts.query.ClassStr, "class", "IN", "")
	flag.BoolVar(&opts.query.NoRecurse, "norecurse", false, "")
	flag.BoolVar(&opts.query.EDNS, "edns", false, "")
	flag.BoolVar(&opts.query.DNSSEC, "dnssec", false, "")
	flag.BoolVar(&opts.query.NSID, "nsid", false, "")
	flag.StringVar(&opts.query.ECS, "ecs", "", "")
	flag.BoolVar(&opts.query.Cookie, "cookie", false, "")
	flag.BoolVar(&opts.query.CacheMiss, "cache-miss", false, "")

	flag.StringVar(&opts.transport.Server, "server", "", "")
	flag.IntVar(&opts.transport.Port, "port", 0, "")
	flag.BoolVar(&opts.transport.Four, "4", false, "")
	flag.BoolVar(&opts.transport.Six, "6", false, "")
	flag.BoolVar(&opts.transport.TCP, "tcp", false, "")
	flag.BoolVar(&opts.transport.TLS, "tls", false, "")
	flag.BoolVar(&opts.transport.DoH, "doh", false, "")
	flag.BoolVar(&opts.transport.DoQ, "quic", false, "")
	flag.BoolVar(&opts.transport.HTTP3, "http3", false, "")
	flag.StringVar(&opts.transport.SourceIP, "srcip", "", "")
	flag.IntVar(&opts.transport.SourcePort, "srcport", 0, "")

	flag.IntVar(&opts.count, "c", defaults.Count, "")
	flag.DurationVar(&opts.interval, "i", defaults.Interval, "")
	flag.DurationVar(&opts.timeout, "W", defaults.Timeout, "")
	flag.BoolVar(&opts.json, "json", false, "")

	flag.Parse()

	if flag.NArg() != 1 {
		mu.Fatalf("error: expected one positional argument (NAME) but got %d", flag.NArg())
	}
	opts.name = flag.Arg(0)

	if err := opts.query.Finalize(); err != nil {
		mu.Fatalf("error: %v", err)
	}
	if err := opts.transport.Finalize(); err != nil {
		mu.Fatalf("error: %v", err)
	}
	if opts.count <= 0 {
		mu.Fatalf("error: -c must be >= 1")
	}

	return opts
}
