package oracle

import (
	"fmt"

	"github.com/miekg/dns"
)

// DefaultResolver is the systemd-resolved stub listener.
const DefaultResolver = "127.0.0.53:53"

// ResolveEndpoints discovers oracle endpoints through DNS SRV records for the
// given domain. It returns host:port targets in answer order; callers pick
// one and prepend the scheme. resolverAddr falls back to DefaultResolver
// when empty.
func ResolveEndpoints(domain, resolverAddr string) ([]string, error) {
	if resolverAddr == "" {
		resolverAddr = DefaultResolver
	}

	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{Name: dns.Fqdn(domain), Qtype: dns.TypeSRV, Qclass: dns.ClassINET}}

	c := new(dns.Client)
	in, _, err := c.Exchange(m, resolverAddr)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup for %s failed: %w", domain, err)
	}

	targets := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			targets = append(targets, fmt.Sprintf("%s:%d", srv.Target, srv.Port))
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("no SRV records for %s", domain)
	}
	return targets, nil
}
