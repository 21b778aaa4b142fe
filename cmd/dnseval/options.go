package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dnsdiag-go/dnsdiag/internal/cliopts"
	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
	"github.com/syslab-wm/mu"
)

const usage = `Usage: dnseval [options] NAME

Query a set of resolvers with the same name and rank them by latency and
loss, the way a resolver-selection tool would.

positional arguments:
  NAME
    The query name to resolve.

options:
  -help
    Display this usage statement and exit.

  -file PATH
    A file with one resolver (IP or hostname) per line. Blank lines and
    lines starting with '#' are ignored. Required unless -server is
    given, in which case the set is that one server.

  -server SERVER
    Evaluate a single resolver instead of reading -file.

  -c COUNT
  -W TIMEOUT
    As in dnsping.

  -skip-warmup
    Skip the best-effort warmup probe sent to every resolver before
    timing begins.

  -json
    Print one JSON object per resolver instead of the human-readable
    ranked table.

examples:
  $ dnseval -file resolvers.txt example.com
`

type options struct {
	name string

	query     cliopts.Query
	transport cliopts.Transport

	file       string
	count      int
	timeout    time.Duration
	skipWarmup bool
	json       bool
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

	flag.StringVar(&opts.file, "file", "", "")
	flag.IntVar(&opts.count, "c", defaults.Count, "")
	flag.DurationVar(&opts.timeout, "W", defaults.Timeout, "")
	flag.BoolVar(&opts.skipWarmup, "skip-warmup", false, "")
	flag.BoolVar(&opts.json, "json", false, "")

	flag.Parse()

	if flag.NArg() != 1 {
		mu.Fatalf("error: expected one positional argument (NAME) but got %d", flag.NArg())
	}
	opts.name = flag.Arg(0)

	if opts.file == "" && opts.transport.Server == "" {
		mu.Fatalf("error: one of -file or -server is required")
	}
	if opts.file != "" && opts.transport.Server != "" {
		mu.Fatalf("error: -file and -server are mutually exclusive")
	}

	if err := opts.query.Finalize(); err != nil {
		mu.Fatalf("error: %v", err)
	}
	if opts.transport.Server != "" {
		if err := opts.transport.Finalize(); err != nil {
			mu.Fatalf("error: %v", err)
		}
	}
	if opts.count <= 0 {
		mu.Fatalf("error: -c must be >= 1")
	}

	return opts
}

// readServerList reads one resolver address per line from path, per the
// -file format documented in usage.
func readServerList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var servers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		servers = append(servers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("%s contains no resolver entries", path)
	}
	return servers, nil
}
