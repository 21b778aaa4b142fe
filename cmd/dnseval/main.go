// Command dnseval queries a set of resolvers with the same name and
// ranks them by latency and loss.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dnsdiag-go/dnsdiag"
)

func main() {
	opts := parseOptions()

	canceller := dnsdiag.NewCanceller()
	canceller.Install()

	ctx := context.Background()

	var serverNames []string
	if opts.file != "" {
		names, err := readServerList(opts.file)
		if err != nil {
			exitWithError(err)
		}
		serverNames = names
	} else {
		serverNames = []string{opts.transport.Server}
	}

	spec, err := opts.query.BuildSpec(opts.name)
	if err != nil {
		exitWithError(err)
	}

	targets := make([]dnsdiag.ServerTarget, 0, len(serverNames))
	for _, name := range serverNames {
		t := opts.transport
		t.Server = name
		if err := t.Finalize(); err != nil {
			fmt.Fprintf(os.Stderr, "dnseval: skipping %s: %v\n", name, err)
			continue
		}
		target, err := t.ResolveTarget(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dnseval: skipping %s: %v\n", name, err)
			continue
		}
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		exitWithError(fmt.Errorf("no resolvable servers"))
	}

	results := dnsdiag.Evaluate(ctx, targets, spec, dnsdiag.EvalOptions{
		Count:      opts.count,
		Timeout:    opts.timeout,
		SourceIP:   opts.transport.SourceIP,
		SourcePort: opts.transport.SourcePort,
		SkipWarmup: opts.skipWarmup,
		Canceller:  canceller,
	})

	var collected []dnsdiag.EvalResult
	for r := range results {
		collected = append(collected, r)
	}

	sort.Slice(collected, func(i, j int) bool {
		a, b := collected[i], collected[j]
		if a.Summary == nil {
			return false
		}
		if b.Summary == nil {
			return true
		}
		if a.Summary.LossPercent != b.Summary.LossPercent {
			return a.Summary.LossPercent < b.Summary.LossPercent
		}
		return a.Summary.RTTAvgMS < b.Summary.RTTAvgMS
	})

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		for _, r := range collected {
			_ = enc.Encode(r)
		}
		return
	}

	for i, r := range collected {
		if r.Err != nil {
			fmt.Printf("%2d. %-40s error: %v\n", i+1, r.Server.Addr(), r.Err)
			continue
		}
		fmt.Printf("%2d. %-40s loss=%.1f%% avg=%.3fms stddev=%.3fms\n",
			i+1, r.Server.Addr(), r.Summary.LossPercent, r.Summary.RTTAvgMS, r.Summary.RTTStdDevMS)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "dnseval: error: %v\n", err)
	if e, ok := err.(*dnsdiag.Error); ok {
		os.Exit(e.Kind.ExitCode())
	}
	os.Exit(1)
}
