package dnswhois

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

const (
	cymruHost    = "whois.cymru.com:43"
	cymruTimeout = 5 * time.Second
)

// Client looks up the origin AS of an address via Team Cymru's WHOIS
// service (a plain-text protocol on TCP port 43 -- there is no Go
// client library for it in the retrieval pack, so this talks the
// protocol directly over net.Dialer; see DESIGN.md), backed by a Cache
// so repeated hops along one trace don't re-query.
type Client struct {
	cache *Cache
}

// NewClient wraps cache (which may be nil to disable persistence; every
// lookup is still deduplicated within the process via cache.Get/Put when
// cache is non-nil).
func NewClient(cache *Cache) *Client {
	return &Client{cache: cache}
}

// Lookup returns ip's origin ASN and the registered holder name. A
// failed lookup (network error, malformed response, no answer) is
// reported as a non-fatal error: ASN annotation is cosmetic, and
// callers should proceed without it rather than aborting (spec §4.6,
// "non-fatal failure returns none").
func (c *Client) Lookup(ctx context.Context, ip netip.Addr) (asn int, owner string, err error) {
	if c.cache != nil {
		if rec, ok := c.cache.Get(ip, time.Now()); ok {
			return rec.ASN, rec.Owner, nil
		}
	}

	asn, owner, err = queryCymru(ctx, ip)
	if err != nil {
		return 0, "", err
	}

	if c.cache != nil {
		c.cache.Put(Record{
			IP:        ip.String(),
			ASN:       asn,
			Owner:     owner,
			FetchedAt: time.Now().Unix(),
		})
	}
	return asn, owner, nil
}

func queryCymru(ctx context.Context, ip netip.Addr) (int, string, error) {
	dctx, cancel := context.WithTimeout(ctx, cymruTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dctx, "tcp", cymruHost)
	if err != nil {
		return 0, "", fmt.Errorf("failed to reach %s: %w", cymruHost, err)
	}
	defer conn.Close()

	if dl, ok := dctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if _, err := fmt.Fprintf(conn, " -v %s\n", ip); err != nil {
		return 0, "", fmt.Errorf("failed to send whois query: %w", err)
	}

	var lastLine string
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lastLine = line
	}
	if err := scanner.Err(); err != nil {
		return 0, "", fmt.Errorf("failed to read whois response: %w", err)
	}
	if lastLine == "" {
		return 0, "", fmt.Errorf("empty whois response for %s", ip)
	}

	return parseCymruLine(lastLine)
}

// parseCymruLine parses one "-v" response row:
//
//	AS | IP | BGP Prefix | CC | Registry | Allocated | AS Name
func parseCymruLine(line string) (int, string, error) {
	fields := strings.Split(line, "|")
	if len(fields) < 7 {
		return 0, "", fmt.Errorf("unrecognized whois response: %q", line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	asn, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("unrecognized ASN field in whois response: %q", fields[0])
	}

	return asn, fields[6], nil
}
