package dnsdiag

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/miekg/dns"
	"github.com/quic-go/quic-go"
)

const maxDoQResponseSize = 64 * 1024

// sendDoQ implements DoQ (RFC 9250): the query is sent as a
// length-prefixed message on a freshly opened bidirectional QUIC
// stream, the write side is then closed, and the length-prefixed
// response is read back from the same stream.
//
// TCP wrapped in TLS never negotiates QUIC's ALPN handshake, so this
// talks quic-go directly rather than routing through *dns.Client's
// "tcp-tls" network string (see DESIGN.md).
func sendDoQ(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error) {
	tlsConfig := &tls.Config{
		ServerName: target.SNIName(),
		NextProtos: []string{"doq"},
		MinVersion: tls.VersionTLS12,
	}

	conn, err := quic.DialAddr(ctx, target.Addr(), tlsConfig, nil)
	if err != nil {
		return nil, fmt.Errorf("DoQ handshake failed: %w", err)
	}
	defer conn.CloseWithError(0, "")

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("DoQ failed to open stream: %w", err)
	}

	// Per RFC 9250 §4.2.1, the query ID is set to 0 on the wire.
	id := msg.Id
	msg.Id = 0
	wire, err := msg.Pack()
	msg.Id = id
	if err != nil {
		return nil, fmt.Errorf("failed to pack DoQ query: %w", err)
	}

	framed := make([]byte, 2+len(wire))
	framed[0] = byte(len(wire) >> 8)
	framed[1] = byte(len(wire))
	copy(framed[2:], wire)

	if _, err := stream.Write(framed); err != nil {
		return nil, fmt.Errorf("failed to send DoQ query: %w", err)
	}
	_ = stream.Close() // half-close the write side, per RFC 9250 §4.2

	lenBuf := make([]byte, 2)
	if _, err := readFull(stream, lenBuf); err != nil {
		return nil, fmt.Errorf("failed to read DoQ response length: %w", err)
	}
	respLen := int(lenBuf[0])<<8 | int(lenBuf[1])
	if respLen == 0 || respLen > maxDoQResponseSize {
		return nil, WrapError(ErrInvalidResponse, fmt.Sprintf("DoQ response length %d out of range", respLen), nil)
	}

	respBuf := make([]byte, respLen)
	if _, err := readFull(stream, respBuf); err != nil {
		return nil, fmt.Errorf("failed to read DoQ response body: %w", err)
	}

	resp := new(dns.Msg)
	if err := resp.Unpack(respBuf); err != nil {
		return nil, WrapError(ErrInvalidResponse, "failed to unpack DoQ response", err)
	}
	resp.Id = id
	return resp, nil
}

type reader interface {
	Read([]byte) (int, error)
}

func readFull(r reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
