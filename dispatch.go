package dnsdiag

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/miekg/dns"
)

// DialOptions carries the per-call knobs the dispatcher (C2) needs
// beyond the ServerTarget/Protocol pair: source address/port binding
// and, for the trace engine, the IP TTL / hop limit to install on a UDP
// socket before sending.
type DialOptions struct {
	SourceIP   string
	SourcePort int
	SocketTTL  int // 0 means "do not set"
	Timeout    time.Duration
}

// transportFunc is the shape every per-protocol implementation
// (do53.go, dot.go, doh.go, doq.go, doh3.go) satisfies. Each owns its
// own connection setup/teardown for a single query -- the engine is
// single-threaded and does not pool connections across probes, matching
// spec §4.4's "one exchange per iteration" loop.
type transportFunc func(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error)

var transports = map[Protocol]transportFunc{
	ProtocolUDP:   sendUDP,
	ProtocolTCP:   sendTCP,
	ProtocolTLS:   sendTLS,
	ProtocolHTTPS: sendDoH,
	ProtocolQUIC:  sendDoQ,
	ProtocolHTTP3: sendDoH3,
}

// Dispatch sends msg to target over the transport its Protocol names,
// and returns a ResponseHandle carrying the decoded reply and the
// dispatcher's own monotonic timing -- uniform across transports even
// though the underlying libraries (net/http, quic-go) report latency
// differently among themselves (C2).
func Dispatch(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*ResponseHandle, error) {
	fn, ok := transports[target.Protocol]
	if !ok {
		return nil, NewError(ErrUnsupportedTransport, target.Protocol.String()+" is not a supported transport")
	}

	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := fn(dctx, msg, target, opts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return &ResponseHandle{Msg: resp, Elapsed: elapsed}, nil
}

// classifyTransportError maps a raw transport-layer error onto the
// engine's error taxonomy (C2/§7). An error that already carries an
// engine ErrKind keeps it.
func classifyTransportError(err error) *Error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(ErrTimeout, "request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WrapError(ErrTimeout, "request timed out", err)
	}

	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return WrapError(ErrTransientNetwork, "destination unreachable", err)
	}

	if errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
		return WrapError(ErrPermissionDenied, "permission denied opening socket", err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return WrapError(ErrConnectionFailed, "connection refused", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Op == "handshake") {
		return WrapError(ErrConnectionFailed, "connection failed", err)
	}

	return WrapError(ErrInvalidResponse, "transport error", err)
}
