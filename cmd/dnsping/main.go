// Command dnsping repeatedly queries a DNS server and reports per-query
// timing and loss, the way ping(8) reports ICMP echo timing and loss.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dnsdiag-go/dnsdiag"
	"github.com/syslab-wm/mu"
)

func main() {
	opts := parseOptions()

	canceller := dnsdiag.NewCanceller()
	canceller.Install()

	ctx := context.Background()

	target, err := opts.transport.ResolveTarget(ctx)
	if err != nil {
		exitWithError(err)
	}

	spec, err := opts.query.BuildSpec(opts.name)
	if err != nil {
		mu.Fatalf("error: %v", err)
	}

	if !opts.json {
		fmt.Printf("dnsping %s (%s): %s over %s\n", opts.name, target.Addr(), spec.QName, target.Protocol)
	}

	summary, err := dnsdiag.Ping(ctx, target, spec, dnsdiag.PingOptions{
		Count:      opts.count,
		Timeout:    opts.timeout,
		Interval:   opts.interval,
		SourceIP:   opts.transport.SourceIP,
		SourcePort: opts.transport.SourcePort,
		Canceller:  canceller,
	}, func(n int, result dnsdiag.ProbeResult) {
		if opts.json {
			return
		}
		printProbeLine(n, target, result)
	})
	if err != nil {
		exitWithError(err)
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			mu.Fatalf("error: failed to encode summary: %v", err)
		}
		return
	}

	printSummary(summary)
}

func printProbeLine(n int, target dnsdiag.ServerTarget, result dnsdiag.ProbeResult) {
	if result.Err != nil {
		fmt.Printf("seq=%d proto=%s server=%s: %v\n", n, target.Protocol, target.Addr(), result.Err)
		return
	}
	fmt.Printf("seq=%d proto=%s server=%s time=%.2f ms\n", n, target.Protocol, target.Addr(), result.ElapsedMS)
}

func printSummary(s *dnsdiag.PingSummary) {
	fmt.Printf("\n--- %s dnsping statistics ---\n", s.Server.Addr())
	fmt.Printf("%d probes sent, %d received, %.1f%% loss\n", s.Sent, s.Received, s.LossPercent)
	if s.Received > 0 {
		fmt.Printf("rtt min/avg/max/stddev = %.3f/%.3f/%.3f/%.3f ms\n",
			s.RTTMinMS, s.RTTAvgMS, s.RTTMaxMS, s.RTTStdDevMS)
	}
	if s.LastResponse != nil {
		fmt.Printf("last response: rcode=%s flags=%s%s\n",
			s.LastResponse.RcodeText, s.LastResponse.Flags, s.LastResponse.EDNSFlags)
		for _, o := range s.LastResponse.Options {
			fmt.Printf("  %s\n", o)
		}
	}
}

// exitWithError reports err and exits with the code its ErrKind maps to
// (spec §6): 127 for an unsupported transport, 1 for everything else.
// Flag-parsing errors in options.go, and the spec-building and
// JSON-encoding failures in main, call mu.Fatalf directly instead.
func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "dnsping: error: %v\n", err)
	if e, ok := err.(*dnsdiag.Error); ok {
		os.Exit(e.Kind.ExitCode())
	}
	os.Exit(1)
}
