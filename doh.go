package dnsdiag

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
	"github.com/dnsdiag-go/dnsdiag/internal/netx"
	"github.com/miekg/dns"
)

// sendDoH implements DoH (RFC 8484): an HTTP/2 POST of
// application/dns-message to /dns-query. When the resolver was provided
// as a hostname, the request URL uses that hostname (so SNI and the
// Host header match); when provided as an IP literal, the URL uses the
// IP and TLS validation falls back accordingly (C2, HTTPS/DoH).
func sendDoH(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error) {
	// Per RFC 8484, the query ID SHOULD be 0 for cache-friendliness; the
	// response is matched positionally (one request, one response), not
	// by ID, since HTTP already serializes the exchange.
	id := msg.Id
	msg.Id = 0
	wire, err := msg.Pack()
	msg.Id = id
	if err != nil {
		return nil, fmt.Errorf("failed to pack DoH query: %w", err)
	}

	u := &url.URL{
		Scheme: "https",
		Host:   hostPortForURL(target),
		Path:   defaults.HTTPPath,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(wire))
	if err != nil {
		return nil, fmt.Errorf("failed to build DoH request: %w", err)
	}
	req.Header.Set("Content-Type", "application/dns-message")
	req.Header.Set("Accept", "application/dns-message")

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   &tls.Config{ServerName: target.SNIName()},
			ForceAttemptHTTP2: true,
		},
	}

	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DoH request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read DoH response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH request returned HTTP %d", httpResp.StatusCode)
	}

	resp := new(dns.Msg)
	if err := resp.Unpack(body); err != nil {
		return nil, WrapError(ErrInvalidResponse, "failed to unpack DoH response", err)
	}
	resp.Id = id
	return resp, nil
}

// hostPortForURL returns the host[:port] component of the DoH/DoH3
// request URL: the resolver's hostname when one was given, else its IP
// literal, with ":port" appended only when the port is not the
// protocol's default.
func hostPortForURL(target ServerTarget) string {
	host := target.SNIName()
	if target.DstPort == target.Protocol.DefaultPort() {
		return host
	}
	return netx.TryAddPort(host, strconv.Itoa(int(target.DstPort)))
}
