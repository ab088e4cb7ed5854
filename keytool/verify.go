/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"log"
	"net"
	"slices"
	"sort"

	"github.com/miekg/dns"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/errgroup"
)

// CellResult is the outcome of one query cell: the signer identities seen,
// or the error that prevented seeing them. A failed cell never aborts the
// rest of the verification.
type CellResult struct {
	IDs []string
	Err error
}

func (cr CellResult) Contains(sid string) bool {
	return slices.Contains(cr.IDs, sid)
}

// ZoneReport is everything the verifier learned about one zone: the DS set
// announced at the parent (seen through the resolver) and, per
// authoritative server, the DNSKEYs published and the keys seen signing.
type ZoneReport struct {
	Zone    string
	DS      CellResult
	Servers []string
	DNSKEY  map[string]CellResult
	RRSIG   map[string]CellResult
}

// DSColumn annotates one key's parent-DS cell.
func (zr *ZoneReport) DSColumn(sid string) string {
	if zr.DS.Err != nil {
		return "ERR"
	}
	if zr.DS.Contains(sid) {
		return "DS"
	}
	return ""
}

// ServerColumn annotates one key's cell for one authoritative server:
// "P" if the key is published in the DNSKEY RRset, "S" if an RRSIG made by
// it was seen, "ERR" if the server could not be queried.
func (zr *ZoneReport) ServerColumn(server, sid string) string {
	dnskey, ok1 := zr.DNSKEY[server]
	rrsig, ok2 := zr.RRSIG[server]
	if !ok1 || !ok2 {
		return ""
	}
	if dnskey.Err != nil || rrsig.Err != nil {
		return "ERR"
	}
	flags := make([]byte, 0, 3)
	if dnskey.Contains(sid) {
		flags = append(flags, 'P')
	} else {
		flags = append(flags, ' ')
	}
	flags = append(flags, ' ')
	if rrsig.Contains(sid) {
		flags = append(flags, 'S')
	} else {
		flags = append(flags, ' ')
	}
	return string(flags)
}

// Verifier reconciles the timestamp-derived key model against what
// nameservers actually serve. Queries for different (zone, server) pairs
// are independent and issued concurrently; results land in a concurrent
// map and are folded into stable per-zone reports once all queries settle.
type Verifier struct {
	Resolver        *Resolver
	ExplicitServers []string
	MaxConcurrent   int

	reports cmap.ConcurrentMap[string, *ZoneReport]
	cells   cmap.ConcurrentMap[string, CellResult]
}

func NewVerifier(resolver *Resolver, explicitServers []string) *Verifier {
	servers := make([]string, 0, len(explicitServers))
	for _, s := range explicitServers {
		if s != "" {
			servers = append(servers, s)
		}
	}
	return &Verifier{
		Resolver:        resolver,
		ExplicitServers: servers,
		reports:         cmap.New[*ZoneReport](),
		cells:           cmap.New[CellResult](),
	}
}

func cellKey(zone, server string, qtype uint16) string {
	return fmt.Sprintf("%s|%s|%s", zone, server, dns.TypeToString[qtype])
}

// QueryZones collects the published-key state of the given zones. Already
// queried zones are skipped, so repeated calls are cheap.
func (v *Verifier) QueryZones(zones []string) {
	g := new(errgroup.Group)
	limit := v.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)

	for _, zone := range zones {
		if v.reports.Has(zone) {
			continue
		}

		report := &ZoneReport{
			Zone:   zone,
			DNSKEY: make(map[string]CellResult),
			RRSIG:  make(map[string]CellResult),
		}

		// The NS set must be known before fanning out, so this one query
		// is synchronous. An explicit server list skips it entirely.
		servers := v.ExplicitServers
		if len(servers) == 0 {
			resolved, err := v.Resolver.NameServers(zone)
			if err != nil {
				log.Printf("Warning: failed to resolve NS set for zone %s: %v", zone, err)
				resolved = nil
			}
			servers = resolved
		}
		report.Servers = servers
		v.reports.Set(zone, report)

		g.Go(func() error {
			res, err := v.Resolver.Lookup(zone, dns.TypeDS)
			cell := CellResult{Err: err}
			if err == nil {
				cell.IDs = CollectSignerIDs(res, dns.TypeDS)
			}
			v.cells.Set(cellKey(zone, "", dns.TypeDS), cell)
			return nil
		})

		for _, server := range servers {
			g.Go(func() error {
				v.queryServer(zone, server)
				return nil
			})
		}
	}

	g.Wait()

	// Fold the settled cells into the per-zone reports. Map iteration
	// order does not matter here; the reports key cells by server name.
	for _, zone := range v.reports.Keys() {
		report, _ := v.reports.Get(zone)
		if cell, ok := v.cells.Get(cellKey(zone, "", dns.TypeDS)); ok {
			report.DS = cell
		}
		for _, server := range report.Servers {
			if cell, ok := v.cells.Get(cellKey(zone, server, dns.TypeDNSKEY)); ok {
				report.DNSKEY[server] = cell
			}
			if cell, ok := v.cells.Get(cellKey(zone, server, dns.TypeRRSIG)); ok {
				report.RRSIG[server] = cell
			}
		}
	}
}

func (v *Verifier) queryServer(zone, server string) {
	addr, err := v.Resolver.ResolveHost(server)
	if err != nil {
		v.cells.Set(cellKey(zone, server, dns.TypeDNSKEY), CellResult{Err: err})
		v.cells.Set(cellKey(zone, server, dns.TypeRRSIG), CellResult{Err: err})
		return
	}
	target := net.JoinHostPort(addr, "53")

	for _, qtype := range []uint16{dns.TypeDNSKEY, dns.TypeRRSIG} {
		res, err := v.Resolver.Exchange(zone, qtype, target)
		cell := CellResult{Err: err}
		if err == nil {
			cell.IDs = CollectSignerIDs(res, qtype)
		}
		v.cells.Set(cellKey(zone, server, qtype), cell)
	}
}

// Report returns the settled report for a zone.
func (v *Verifier) Report(zone string) (*ZoneReport, bool) {
	return v.reports.Get(zone)
}

// ContactedServers is the sorted union of all authoritative servers that
// were queried, used as the verification column set of the listing.
func (v *Verifier) ContactedServers() []string {
	seen := make(map[string]bool)
	for _, zone := range v.reports.Keys() {
		report, _ := v.reports.Get(zone)
		for _, server := range report.Servers {
			seen[server] = true
		}
	}
	servers := make([]string, 0, len(seen))
	for s := range seen {
		servers = append(servers, s)
	}
	sort.Strings(servers)
	return servers
}
