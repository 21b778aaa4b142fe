package dnsdiag

import (
	"context"
	"sync"
	"time"

	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
)

// EvalOptions bundles the knobs of an Evaluate run (C7, mirrors dnseval's
// CLI surface).
type EvalOptions struct {
	Count      int
	Timeout    time.Duration
	Interval   time.Duration
	SourceIP   string
	SourcePort int
	SkipWarmup bool
	Canceller  *Canceller
}

// EvalResult is one server's outcome from an Evaluate run. Exactly one
// of Summary/Err is non-nil.
type EvalResult struct {
	Server  ServerTarget
	Summary *PingSummary
	Err     error
}

// Evaluate runs Ping against every server in servers, at most
// defaults.EvaluatorMaxWorkers concurrently, and streams one EvalResult
// per server on the returned channel as it completes (not in submission
// order). The channel is closed once every server has reported (C7).
//
// Unless opts.SkipWarmup, Evaluate first sends a single best-effort
// count=1 probe to every server (errors discarded) and sleeps
// defaults.WarmupSettle, so the first counted probe of each real run
// doesn't pay a resolver's cold-cache penalty.
func Evaluate(ctx context.Context, servers []ServerTarget, spec QuerySpec, opts EvalOptions) <-chan EvalResult {
	out := make(chan EvalResult, len(servers))

	go func() {
		defer close(out)

		if !opts.SkipWarmup {
			runWarmup(ctx, servers, spec, opts)
			if opts.Canceller != nil {
				if opts.Canceller.SleepInterruptible(defaults.WarmupSettle) {
					return
				}
			} else {
				time.Sleep(defaults.WarmupSettle)
			}
		}

		sem := make(chan struct{}, defaults.EvaluatorMaxWorkers)
		var wg sync.WaitGroup

		for _, server := range servers {
			if opts.Canceller != nil && opts.Canceller.ShutdownRequested() {
				break
			}

			server := server
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()

				summary, err := Ping(ctx, server, spec, PingOptions{
					Count:      opts.Count,
					Timeout:    opts.Timeout,
					Interval:   opts.Interval,
					SourceIP:   opts.SourceIP,
					SourcePort: opts.SourcePort,
					Canceller:  opts.Canceller,
				}, nil)
				if err != nil {
					summary = nil
				}
				out <- EvalResult{Server: server, Summary: summary, Err: err}
			}()
		}

		wg.Wait()
	}()

	return out
}

// runWarmup fires a single count=1 probe at every server concurrently,
// bounded by the same worker cap, discarding all results: its only
// effect is whatever state it leaves in the resolvers' caches.
func runWarmup(ctx context.Context, servers []ServerTarget, spec QuerySpec, opts EvalOptions) {
	sem := make(chan struct{}, defaults.EvaluatorMaxWorkers)
	var wg sync.WaitGroup

	for _, server := range servers {
		server := server
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			_, _ = Ping(ctx, server, spec, PingOptions{
				Count:      1,
				Timeout:    opts.Timeout,
				SourceIP:   opts.SourceIP,
				SourcePort: opts.SourcePort,
			}, nil)
		}()
	}

	wg.Wait()
}
