// Package msgutil collects the small DNS-message-shaping helpers the
// query engine needs: EDNS option assembly and random labels on the
// outbound side (used by the query builder, C3), and a generic RR filter
// (CollectRRs) for the inbound side, which has no caller in this module.
package msgutil

import (
	"github.com/miekg/dns"
	"github.com/syslab-wm/functools"
)

// CollectRRs takes a slice of [github.com/miekg/dns.RR]s and returns a
// slice with the [github.com/miekg/dns.RR]s of type T. If no such
// records exist, the function returns a zero-length slice.
func CollectRRs[T dns.RR](rrs []dns.RR) []T {
	recs := functools.Filter(rrs, func(rr dns.RR) bool {
		_, ok := rr.(T)
		return ok
	})

	return functools.Map[dns.RR, T](recs, func(rr dns.RR) T {
		return rr.(T)
	})
}
