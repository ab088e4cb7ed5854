/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"strings"
	"testing"

	"github.com/miekg/dns"
)

func listFixture() []*KeyRecord {
	frontier := &KeyRecord{
		Zone: "example.com.", Type: TypeZSK, Algorithm: 13, KeyTag: 100,
		Publish: date(2023, 12, 25), Activate: date(2024, 1, 1),
		Inactive: date(2024, 1, 15), Delete: date(2024, 1, 22),
	}
	successor := &KeyRecord{
		Zone: "example.com.", Type: TypeZSK, Algorithm: 13, KeyTag: 200,
		Publish: date(2024, 1, 3), Activate: date(2024, 1, 10),
		Inactive: date(2024, 1, 24), Delete: date(2024, 1, 31),
	}
	return []*KeyRecord{frontier, successor}
}

// TestFormatKeyTableStates: during the prepublication window the frontier
// lists as ACT and the scheduled successor as PUB.
func TestFormatKeyTableStates(t *testing.T) {
	keys := listFixture()
	out := FormatKeyTable(keys, ListOptions{When: date(2024, 1, 5)})

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus two keys:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Type") || !strings.Contains(lines[0], "Next Key Event") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ACT") || !strings.Contains(lines[1], "100") {
		t.Errorf("frontier row = %q, want ACT", lines[1])
	}
	if !strings.Contains(lines[2], "PUB") || !strings.Contains(lines[2], "200") {
		t.Errorf("successor row = %q, want PUB", lines[2])
	}
	// Next event of the frontier is its inactivation.
	if !strings.Contains(lines[1], "2024-01-15 00:00") {
		t.Errorf("frontier next event missing: %q", lines[1])
	}
}

func TestFormatKeyTableZoneColumn(t *testing.T) {
	keys := listFixture()

	out := FormatKeyTable(keys, ListOptions{When: date(2024, 1, 5), Recursive: true})
	if !strings.Contains(strings.Split(out, "\n")[0], "Zone") {
		t.Error("recursive listing missing Zone column")
	}
	if !strings.Contains(out, "example.com.") {
		t.Error("zone name missing from rows")
	}

	out = FormatKeyTable(keys, ListOptions{When: date(2024, 1, 5)})
	if strings.Contains(strings.Split(out, "\n")[0], "Zone") {
		t.Error("non-recursive listing has a Zone column")
	}
}

// TestFormatKeyTableCalendar: calendar mode shows the relative distance to
// every state change instead of the next event.
func TestFormatKeyTableCalendar(t *testing.T) {
	keys := listFixture()
	out := FormatKeyTable(keys, ListOptions{When: date(2024, 1, 5), Calendar: true})

	header := strings.Split(out, "\n")[0]
	for _, col := range []string{"Crea", "Pub", "Act", "Inac", "Del"} {
		if !strings.Contains(header, col) {
			t.Errorf("calendar header missing %q: %s", col, header)
		}
	}
	if strings.Contains(header, "Next Key Event") {
		t.Error("calendar mode still shows next event column")
	}
	// Frontier activated 4 days ago; Created is unset.
	row := strings.Split(out, "\n")[1]
	if !strings.Contains(row, "-4d") {
		t.Errorf("frontier row missing relative activation: %q", row)
	}
}

func TestFormatKeyTableInconsistent(t *testing.T) {
	kr := &KeyRecord{
		Zone: "example.com.", Type: TypeZSK, Algorithm: 13, KeyTag: 100,
		Publish: date(2024, 2, 1), Activate: date(2024, 1, 1),
	}
	out := FormatKeyTable([]*KeyRecord{kr}, ListOptions{When: date(2024, 1, 5)})
	if !strings.Contains(out, "Inconsistent!") {
		t.Errorf("inconsistent key not flagged:\n%s", out)
	}
}

// TestFormatKeyTablePrintRecord: the DNSKEY payload is interleaved under
// each key's row.
func TestFormatKeyTablePrintRecord(t *testing.T) {
	keys := listFixture()
	rr, err := dns.NewRR("example.com. 3600 IN DNSKEY 256 3 13 " + testPubKey)
	if err != nil {
		t.Fatal(err)
	}
	keys[0].DnskeyRR = rr.(*dns.DNSKEY)

	out := FormatKeyTable(keys, ListOptions{When: date(2024, 1, 5), PrintRecord: true})
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 2 keys + 2 payload lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], testPubKey) {
		t.Errorf("payload not under the first key: %q", lines[2])
	}
}

func TestFormatKeyTableVerification(t *testing.T) {
	keys := listFixture()
	v := NewVerifier(&Resolver{Servers: []string{"192.0.2.1:53"}}, nil)
	v.reports.Set("example.com.", &ZoneReport{
		Zone:    "example.com.",
		Servers: []string{"ns1.example.com."},
		DS:      CellResult{IDs: []string{"013+00100"}},
		DNSKEY: map[string]CellResult{
			"ns1.example.com.": {IDs: []string{"013+00100", "013+00200"}},
		},
		RRSIG: map[string]CellResult{
			"ns1.example.com.": {IDs: []string{"013+00100"}},
		},
	})

	out := FormatKeyTable(keys, ListOptions{When: date(2024, 1, 12), Verifier: v})
	lines := strings.Split(out, "\n")
	if !strings.Contains(lines[0], "Parent:DS") || !strings.Contains(lines[0], "ns1.e.c.") {
		t.Errorf("verification header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "DS") {
		t.Errorf("frontier row missing DS marker: %q", lines[1])
	}
	// The successor is published but not signing, and has no DS.
	if !strings.Contains(lines[2], "P") || strings.Contains(lines[2], "DS") {
		t.Errorf("successor row = %q", lines[2])
	}
}

func TestFmtNextChange(t *testing.T) {
	kr := &KeyRecord{Activate: date(2024, 1, 1)}
	if got := fmtNextChange(kr, date(2024, 6, 1)); got != "-" {
		t.Errorf("no further changes = %q, want -", got)
	}
	if got := fmtNextChange(kr, date(2023, 6, 1)); got != "2024-01-01 00:00" {
		t.Errorf("next change = %q", got)
	}
}
