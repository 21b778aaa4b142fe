// Package dnswhois looks up the origin AS of an IP address via Team
// Cymru's WHOIS service, and caches the results on disk so a repeated
// trace over the same path doesn't re-query on every hop (C8).
package dnswhois

import (
	"bufio"
	"encoding/json"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
)

// Record is one cached ASN lookup.
type Record struct {
	IP        string `json:"ip"`
	ASN       int    `json:"asn"`
	Owner     string `json:"owner"`
	FetchedAt int64  `json:"fetched_at"` // unix seconds
}

func (r Record) stale(ttl time.Duration, now time.Time) bool {
	return now.Sub(time.Unix(r.FetchedAt, 0)) > ttl
}

// Cache is an in-memory map of IP to Record, persisted as
// line-delimited JSON: one Record object per line. This mirrors the
// format the Evaluator uses for its own JSON output sink, rather than
// the Python original's pickle file, so the cache is inspectable with
// any line-oriented tool (spec §9 "a documented format").
type Cache struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]Record
	dirty   bool
}

// Open loads path if it exists (a missing file is not an error -- the
// cache starts empty) and returns a Cache ready for Lookup/Put.
func Open(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = defaults.WhoisCacheTTL
	}
	c := &Cache{path: path, ttl: ttl, entries: make(map[string]Record)}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue // skip a corrupt line rather than failing the whole load
		}
		c.entries[rec.IP] = rec
	}
	return c, scanner.Err()
}

// Get returns the cached record for ip if present and not older than
// the cache's TTL.
func (c *Cache) Get(ip netip.Addr, now time.Time) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries[ip.String()]
	if !ok || rec.stale(c.ttl, now) {
		return Record{}, false
	}
	return rec, true
}

// Put records a freshly fetched lookup.
func (c *Cache) Put(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.IP] = rec
	c.dirty = true
}

// Save rewrites the cache file if anything changed since Open/the last
// Save. Callers should defer Save (or call it from a signal handler) so
// lookups survive an abnormal exit, per spec §9.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range c.entries {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, c.path); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
