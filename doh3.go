package dnsdiag

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
	"github.com/miekg/dns"
	"github.com/quic-go/quic-go/http3"
)

// sendDoH3 implements DoH3: the same RFC 8484 POST as sendDoH, but the
// HTTP client's RoundTripper is quic-go's http3.Transport instead of
// net/http's HTTP/2 transport, so the request actually rides HTTP/3 over
// QUIC rather than HTTP/2 over TCP. If the target build were compiled
// without the quic-go/http3 package, this call would not exist and
// dispatch would never reach it -- matching spec §4.2's
// "capability checks become static" guidance (C2, HTTP3/DoH3).
func sendDoH3(ctx context.Context, msg *dns.Msg, target ServerTarget, opts DialOptions) (*dns.Msg, error) {
	id := msg.Id
	msg.Id = 0
	wire, err := msg.Pack()
	msg.Id = id
	if err != nil {
		return nil, fmt.Errorf("failed to pack DoH3 query: %w", err)
	}

	u := &url.URL{
		Scheme: "https",
		Host:   hostPortForURL(target),
		Path:   defaults.HTTPPath,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(wire))
	if err != nil {
		return nil, fmt.Errorf("failed to build DoH3 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/dns-message")
	req.Header.Set("Accept", "application/dns-message")

	roundTripper := &http3.Transport{
		TLSClientConfig: &tls.Config{ServerName: target.SNIName()},
	}
	defer roundTripper.Close()
	client := &http.Client{Transport: roundTripper}

	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DoH3 request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read DoH3 response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH3 request returned HTTP %d", httpResp.StatusCode)
	}

	resp := new(dns.Msg)
	if err := resp.Unpack(body); err != nil {
		return nil, WrapError(ErrInvalidResponse, "failed to unpack DoH3 response", err)
	}
	resp.Id = id
	return resp, nil
}
