/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"log"
	"net"
	"sort"
	"time"

	"github.com/miekg/dns"
)

// Resolver is the query primitive the verification engine sits on. All
// queries go over TCP (DNSKEY RRsets with their signatures rarely fit in
// UDP) with a bounded timeout so a dead server costs one timeout, not a
// hung command.
type Resolver struct {
	Servers  []string // resolver addresses as host:port
	PreferV4 bool
	Timeout  time.Duration
}

// NewResolver builds a query primitive from an explicit resolver address,
// or from /etc/resolv.conf when none is given.
func NewResolver(override string, preferV4 bool, timeout time.Duration) (*Resolver, error) {
	r := &Resolver{PreferV4: preferV4, Timeout: timeout}
	if r.Timeout == 0 {
		r.Timeout = 5 * time.Second
	}

	if override != "" {
		if _, _, err := net.SplitHostPort(override); err != nil {
			override = net.JoinHostPort(override, "53")
		}
		r.Servers = []string{override}
		return r, nil
	}

	clientConfig, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("error parsing /etc/resolv.conf: %v", err)
	}
	for _, server := range clientConfig.Servers {
		r.Servers = append(r.Servers, net.JoinHostPort(server, clientConfig.Port))
	}
	if len(r.Servers) == 0 {
		return nil, fmt.Errorf("no resolver configured and none found in /etc/resolv.conf")
	}
	return r, nil
}

// Exchange sends one query to one server and returns the full response
// message. Responses with an error rcode are turned into Go errors; the
// verification engine records those per cell instead of aborting.
func (r *Resolver) Exchange(qname string, qtype uint16, server string) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(qname), qtype)
	m.SetEdns0(4096, true)

	c := dns.Client{Net: "tcp", Timeout: r.Timeout}
	if Globals.Debug {
		log.Printf("Exchange: sending %s %s to %s", qname, dns.TypeToString[qtype], server)
	}
	res, _, err := c.Exchange(m, server)
	if err != nil {
		return nil, fmt.Errorf("error from %s for %s %s: %v", server, qname, dns.TypeToString[qtype], err)
	}
	if res.Rcode != dns.RcodeSuccess {
		return res, fmt.Errorf("%s for %s %s from %s", dns.RcodeToString[res.Rcode],
			qname, dns.TypeToString[qtype], server)
	}
	return res, nil
}

// Lookup queries the configured resolver.
func (r *Resolver) Lookup(qname string, qtype uint16) (*dns.Msg, error) {
	return r.Exchange(qname, qtype, r.Servers[0])
}

// Address returns the resolver address used for Lookup.
func (r *Resolver) Address() string {
	return r.Servers[0]
}

// NameServers resolves the NS set of a zone via the configured resolver.
// NS queries at a parent-side server come back in the authority section
// rather than the answer section; both are accepted.
func (r *Resolver) NameServers(zone string) ([]string, error) {
	res, err := r.Lookup(zone, dns.TypeNS)
	if err != nil {
		return nil, err
	}
	var servers []string
	for _, section := range [][]dns.RR{res.Answer, res.Ns} {
		for _, rr := range section {
			if ns, ok := rr.(*dns.NS); ok {
				servers = append(servers, dns.Fqdn(ns.Ns))
			}
		}
		if len(servers) > 0 {
			break
		}
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no NS records found for zone %s", zone)
	}
	sort.Strings(servers)
	return servers, nil
}

// ResolveHost turns a nameserver name into an address, honoring the
// configured address-family preference. Literal addresses pass through.
func (r *Resolver) ResolveHost(name string) (string, error) {
	if net.ParseIP(name) != nil {
		return name, nil
	}
	afOrder := []uint16{dns.TypeAAAA, dns.TypeA}
	if r.PreferV4 {
		afOrder = []uint16{dns.TypeA, dns.TypeAAAA}
	}
	for _, af := range afOrder {
		res, err := r.Lookup(name, af)
		if err != nil {
			continue
		}
		for _, rr := range res.Answer {
			switch a := rr.(type) {
			case *dns.A:
				return a.A.String(), nil
			case *dns.AAAA:
				return a.AAAA.String(), nil
			}
		}
	}
	return "", fmt.Errorf("could not resolve any address of %q at %v", name, r.Servers)
}

func signerID(alg uint8, keytag uint16) string {
	return fmt.Sprintf("%03d+%05d", alg, keytag)
}

// CollectSignerIDs extracts the alg+keytag identities of all DNSKEY, RRSIG
// or DS records of the requested type from a response, deduplicated and
// sorted.
func CollectSignerIDs(res *dns.Msg, qtype uint16) []string {
	seen := make(map[string]bool)
	for _, rr := range res.Answer {
		var id string
		switch rec := rr.(type) {
		case *dns.DNSKEY:
			if qtype == dns.TypeDNSKEY {
				id = signerID(rec.Algorithm, rec.KeyTag())
			}
		case *dns.RRSIG:
			if qtype == dns.TypeRRSIG {
				id = signerID(rec.Algorithm, rec.KeyTag)
			}
		case *dns.DS:
			if qtype == dns.TypeDS {
				id = signerID(rec.Algorithm, rec.KeyTag)
			}
		}
		if id != "" {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ShortenDNS abbreviates a server name for use as a table column header:
// the first label is kept, the rest are shortened to one character.
// Literal addresses are returned as is.
func ShortenDNS(name string) string {
	if net.ParseIP(name) != nil {
		return name
	}
	labels := dns.SplitDomainName(name)
	if len(labels) == 0 {
		return name
	}
	short := labels[0]
	for _, lab := range labels[1:] {
		short += "." + lab[:1]
	}
	return short + "."
}
