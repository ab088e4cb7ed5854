/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ryanuber/columnize"
)

// ListOptions shape the key listing table.
type ListOptions struct {
	When        time.Time // reference time for state computation
	Recursive   bool      // include a Zone column
	Calendar    bool      // relative time to every state change instead of the next one
	ShowPerms   bool      // mark keys with bad file permissions
	PrintRecord bool      // print the DNSKEY RR payload under each row
	PermPolicy  PermPolicy
	Verifier    *Verifier // non-nil adds the verification columns
}

func fmtNextChange(kr *KeyRecord, ref time.Time) string {
	next, err := kr.NextChange(ref)
	if err != nil {
		return "Inconsistent!"
	}
	if next.IsZero() {
		return "-"
	}
	return next.UTC().Format("2006-01-02 15:04")
}

// FormatKeyTable renders the key listing, one row per key, as an aligned
// table. The caller has already filtered and sorted the keys.
func FormatKeyTable(keys []*KeyRecord, opts ListOptions) string {
	var servers []string
	if opts.Verifier != nil {
		servers = opts.Verifier.ContactedServers()
	}

	header := []string{"Type", "Algo", "ID", "State"}
	if opts.ShowPerms {
		header = append([]string{"Perms"}, header...)
	}
	if opts.Recursive {
		header = append([]string{"Zone"}, header...)
	}
	if opts.Calendar {
		header = append(header, "Crea", "Pub", "Act", "Inac", "Del")
	} else {
		header = append(header, "Next Key Event")
	}
	if opts.Verifier != nil {
		header = append(header, "Parent:DS")
		for _, server := range servers {
			header = append(header, ShortenDNS(server))
		}
	}

	rows := []string{strings.Join(header, "|")}
	for _, kr := range keys {
		rows = append(rows, strings.Join(keyRow(kr, opts, servers), "|"))
	}

	table := columnize.SimpleFormat(rows)
	if !opts.PrintRecord {
		return table
	}

	// Interleave the DNSKEY payload under each key's row. SimpleFormat
	// preserves row order, so line i+1 belongs to keys[i].
	lines := strings.Split(table, "\n")
	var out []string
	out = append(out, lines[0])
	for i, kr := range keys {
		out = append(out, lines[i+1], "    "+kr.DnskeyPayload())
	}
	return strings.Join(out, "\n")
}

func keyRow(kr *KeyRecord, opts ListOptions, servers []string) []string {
	fields := []string{
		kr.Type.String(),
		strconv.Itoa(int(kr.Algorithm)),
		strconv.Itoa(int(kr.KeyTag)),
		kr.StateAt(opts.When).String(),
	}
	if opts.ShowPerms {
		marker := ""
		if change, err := opts.PermPolicy.CheckPair(kr); err != nil {
			marker = "?"
		} else if change {
			marker = "*"
		}
		fields = append([]string{marker}, fields...)
	}
	if opts.Recursive {
		fields = append([]string{kr.Zone}, fields...)
	}
	if opts.Calendar {
		for _, t := range []time.Time{kr.Created, kr.Publish, kr.Activate, kr.Inactive, kr.Delete} {
			fields = append(fields, FormatRelative(opts.When, t, true))
		}
	} else {
		fields = append(fields, fmtNextChange(kr, opts.When))
	}
	if opts.Verifier != nil {
		report, ok := opts.Verifier.Report(kr.Zone)
		if !ok {
			log.Printf("Warning: no verification report for zone %s", kr.Zone)
			for range len(servers) + 1 {
				fields = append(fields, "")
			}
			return fields
		}
		sid := kr.SignerID()
		fields = append(fields, report.DSColumn(sid))
		for _, server := range servers {
			fields = append(fields, report.ServerColumn(server, sid))
		}
	}
	return fields
}
