package dnsdiag

import (
	"context"
	"time"

	"github.com/dnsdiag-go/dnsdiag/internal/ednsopts"
	"github.com/dnsdiag-go/dnsdiag/internal/stats"
	"github.com/miekg/dns"
)

// PingOptions bundles the knobs of a Ping run beyond the query itself
// (C4's input, mirrors dnsping's CLI surface).
type PingOptions struct {
	Count      int
	Timeout    time.Duration
	Interval   time.Duration
	SourceIP   string
	SourcePort int
	SocketTTL  int
	Canceller  *Canceller // nil is treated as "never cancelled"
}

// OnProbe, when set, is called once per completed probe in probe order,
// before Ping sleeps for the next interval -- dnsping's per-line display
// hook.
type OnProbe func(n int, result ProbeResult)

// Ping sends spec to server opts.Count times, opts.Interval apart, and
// returns the aggregate. A probe that errors with a Recoverable kind
// (Timeout, TransientNetwork, InvalidResponse) counts as loss and the
// run continues; any other error aborts the run immediately and is
// returned as the error (C4).
//
// sent counts every iteration Ping actually started, including one that
// is in flight when a shutdown is requested and does not come back
// before the run ends -- so Sent == Received + (recoverable failures) +
// (at most one in-flight probe cut short by cancellation).
func Ping(ctx context.Context, server ServerTarget, spec QuerySpec, opts PingOptions, onProbe OnProbe) (*PingSummary, error) {
	if opts.Count <= 0 {
		return nil, NewError(ErrInputInvalid, "count must be >= 1")
	}

	summary := &PingSummary{Server: server}
	var rtts []float64

	for i := 0; i < opts.Count; i++ {
		if opts.Canceller != nil && opts.Canceller.ShutdownRequested() {
			break
		}

		summary.Sent++
		result, fatal := probeOnce(ctx, server, spec, opts)
		if fatal != nil {
			return summary, fatal
		}

		if result.Err == nil {
			summary.Received++
			rtts = append(rtts, result.ElapsedMS)
			summary.LastResponse = buildLastResponse(result.Response)
		}

		if onProbe != nil {
			onProbe(i+1, result)
		}

		if i == opts.Count-1 {
			break
		}
		if opts.Canceller != nil {
			if opts.Canceller.SleepInterruptible(opts.Interval) {
				break
			}
		} else {
			time.Sleep(opts.Interval)
		}
	}

	agg := stats.Compute(rtts)
	summary.RTTMinMS = agg.Min
	summary.RTTMaxMS = agg.Max
	summary.RTTAvgMS = agg.Avg
	summary.RTTStdDevMS = agg.StdDev
	summary.LossPercent = stats.LossPercent(summary.Sent, summary.Received)

	return summary, nil
}

// probeOnce runs a single query/response exchange. The second return
// value is non-nil only for an unrecoverable error that should abort the
// whole run (e.g. ErrInputInvalid, ErrAddressFamilyConflict,
// ErrPermissionDenied, ErrUnsupportedTransport, ErrConnectionFailed).
func probeOnce(ctx context.Context, server ServerTarget, spec QuerySpec, opts PingOptions) (ProbeResult, *Error) {
	msg, err := BuildQuery(spec)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return ProbeResult{}, e
		}
		return ProbeResult{}, WrapError(ErrInputInvalid, "failed to build query", err)
	}

	handle, derr := Dispatch(ctx, msg, server, DialOptions{
		SourceIP:   opts.SourceIP,
		SourcePort: opts.SourcePort,
		SocketTTL:  opts.SocketTTL,
		Timeout:    opts.Timeout,
	})
	if derr != nil {
		e, _ := derr.(*Error)
		if e == nil {
			e = WrapError(ErrInvalidResponse, "dispatch failed", derr)
		}
		if e.Kind.Recoverable() {
			return ProbeResult{Err: e}, nil
		}
		return ProbeResult{Err: e}, e
	}

	return ProbeResult{
		ElapsedMS: float64(handle.Elapsed) / float64(time.Millisecond),
		Response:  handle.Msg,
	}, nil
}

func buildLastResponse(resp *dns.Msg) *LastResponse {
	if resp == nil {
		return nil
	}

	lr := &LastResponse{
		Flags:     flagString(resp),
		Rcode:     resp.Rcode,
		RcodeText: dns.RcodeToString[resp.Rcode],
		Answer:    resp.Answer,
		Raw:       resp,
	}
	if len(resp.Answer) > 0 {
		lr.AnswerTTL = resp.Answer[0].Header().Ttl
	}

	if opt := resp.IsEdns0(); opt != nil {
		lr.EDNSFlags = ednsFlagString(opt)
		lr.Options = ednsopts.Strings(ednsopts.DecodeAll(opt))
	}

	return lr
}

func flagString(m *dns.Msg) string {
	var s string
	if m.Response {
		s += "qr "
	}
	if m.Authoritative {
		s += "aa "
	}
	if m.Truncated {
		s += "tc "
	}
	if m.RecursionDesired {
		s += "rd "
	}
	if m.RecursionAvailable {
		s += "ra "
	}
	if m.AuthenticatedData {
		s += "ad "
	}
	if m.CheckingDisabled {
		s += "cd "
	}
	return s
}

func ednsFlagString(opt *dns.OPT) string {
	if opt.Do() {
		return "do"
	}
	return ""
}
