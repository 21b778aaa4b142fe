package dnsdiag

import (
	"fmt"

	"github.com/dnsdiag-go/dnsdiag/internal/defaults"
	"github.com/dnsdiag-go/dnsdiag/internal/msgutil"
	"github.com/miekg/dns"
)

// usesEDNS reports whether spec requires an OPT RR at all -- use_edns is
// implied by any of want_dnssec, want_nsid, ecs, or send_cookie (C3 §3).
func (s QuerySpec) usesEDNS() bool {
	return s.UseEDNS || s.WantDNSSEC || s.WantNSID || s.ECS != nil || s.SendCookie
}

// BuildQuery assembles a wire-ready *dns.Msg from spec. When
// spec.ForceCacheMiss is set, a fresh "_dnsdiag_<rand>_." label is
// prepended to QName on every call, so the resolver's cache is bypassed
// each probe (C3 step 1).
func BuildQuery(spec QuerySpec) (*dns.Msg, error) {
	if !ValidHostname(spec.QName, true) {
		return nil, NewError(ErrInputInvalid, fmt.Sprintf("invalid query name %q", spec.QName))
	}

	qname := dns.Fqdn(spec.QName)
	if spec.ForceCacheMiss {
		label, err := msgutil.RandomLabelRange(5, 10)
		if err != nil {
			return nil, WrapError(ErrInputInvalid, "failed to generate cache-miss label", err)
		}
		qname = fmt.Sprintf("_dnsdiag_%s_.%s", label, qname)
	}

	rdclass := spec.RDClass
	if rdclass == 0 {
		rdclass = dns.ClassINET
	}

	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = spec.RecursionDesired
	m.Question = []dns.Question{{Name: qname, Qtype: spec.RDType, Qclass: rdclass}}

	if spec.usesEDNS() {
		var ecs *msgutil.ECS
		if spec.ECS != nil {
			ecs = &msgutil.ECS{Address: spec.ECS.Address, Prefix: spec.ECS.Prefix}
		}
		opt, err := msgutil.BuildOPT(msgutil.OPTOptions{
			UDPSize:    defaults.EDNSUDPSize,
			DO:         spec.WantDNSSEC,
			WantNSID:   spec.WantNSID,
			ECS:        ecs,
			SendCookie: spec.SendCookie,
		})
		if err != nil {
			return nil, WrapError(ErrInputInvalid, "failed to build EDNS options", err)
		}
		m.Extra = append(m.Extra, opt)
	}

	return m, nil
}

// BuildTraceProbeName builds the cache-miss-bypassing qname traceroute
// probes use: always an 8-character random label, per spec §4.3 step 1.
func BuildTraceProbeName(qname string) (string, error) {
	label, err := msgutil.RandomLabel(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_dnsdiag_%s_.%s", label, dns.Fqdn(qname)), nil
}
