/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// KeySet is a read-only projection over a flat collection of key records.
// It has no side effects; both the display code and the rotation planner
// consume it.
type KeySet struct {
	Keys []*KeyRecord
}

// GroupKey identifies one rotation group: all keys of one type for one zone.
type GroupKey struct {
	Zone string
	Type KeyType
}

func (gk GroupKey) String() string {
	return fmt.Sprintf("%s/%s", gk.Zone, gk.Type)
}

// SortField selects the list ordering.
type SortField uint8

const (
	SortNone SortField = iota
	SortZone
	SortAlg
	SortID
	SortState
	SortDate
)

var StringToSortField = map[string]SortField{
	"ZONE":  SortZone,
	"ALG":   SortAlg,
	"ID":    SortID,
	"STATE": SortState,
	"DATE":  SortDate,
}

// ShortestUnique resolves a (possibly abbreviated) choice against a list of
// candidates, accepting any unambiguous prefix.
func ShortestUnique(inp string, choices []string) (string, error) {
	s := strings.ToUpper(inp)
	if s == "" {
		return "", nil
	}
	var matching []string
	for _, c := range choices {
		if c == s {
			return c, nil
		}
		if strings.HasPrefix(c, s) {
			matching = append(matching, c)
		}
	}
	if len(matching) == 1 {
		return matching[0], nil
	}
	if len(matching) == 0 {
		return "", fmt.Errorf("unknown argument %q, expected one of %s", inp, strings.Join(choices, " "))
	}
	return "", fmt.Errorf("ambiguous argument %q, could mean one of %s", inp, strings.Join(matching, " "))
}

// ZoneMatches reports whether name belongs to zone; in recursive mode the
// zone itself and every zone below it match.
func ZoneMatches(name, zone string, recursive bool) bool {
	name = dns.Fqdn(name)
	zone = dns.Fqdn(zone)
	if name == zone {
		return true
	}
	if !recursive {
		return false
	}
	return strings.HasSuffix(name, "."+zone) || zone == "."
}

// FilterZone restricts the set to one zone, or to the zone and all its
// sub-zones in recursive mode.
func (ks KeySet) FilterZone(zone string, recursive bool) KeySet {
	var out []*KeyRecord
	for _, kr := range ks.Keys {
		if ZoneMatches(kr.Zone, zone, recursive) {
			out = append(out, kr)
		}
	}
	return KeySet{Keys: out}
}

// FilterState keeps only keys whose state at ref is in the given set.
func (ks KeySet) FilterState(states []KeyState, ref time.Time) KeySet {
	if len(states) == 0 {
		return ks
	}
	wanted := make(map[KeyState]bool, len(states))
	for _, s := range states {
		wanted[s] = true
	}
	var out []*KeyRecord
	for _, kr := range ks.Keys {
		if wanted[kr.StateAt(ref)] {
			out = append(out, kr)
		}
	}
	return KeySet{Keys: out}
}

// FilterType keeps only keys of the given type. TypeAny keeps everything.
func (ks KeySet) FilterType(kt KeyType) KeySet {
	if kt == TypeAny {
		return ks
	}
	var out []*KeyRecord
	for _, kr := range ks.Keys {
		if kr.Type == kt {
			out = append(out, kr)
		}
	}
	return KeySet{Keys: out}
}

// Groups partitions the set by (zone, type). Each group is ordered by
// Activate time ascending with keytag as tiebreak, which is the order the
// rotation planner relies on.
func (ks KeySet) Groups() map[GroupKey][]*KeyRecord {
	groups := make(map[GroupKey][]*KeyRecord)
	for _, kr := range ks.Keys {
		gk := GroupKey{Zone: kr.Zone, Type: kr.Type}
		groups[gk] = append(groups[gk], kr)
	}
	for _, keys := range groups {
		sort.SliceStable(keys, func(i, j int) bool {
			if !keys[i].Activate.Equal(keys[j].Activate) {
				return keys[i].Activate.Before(keys[j].Activate)
			}
			return keys[i].KeyTag < keys[j].KeyTag
		})
	}
	return groups
}

// Zones returns the sorted set of zones present in the key set.
func (ks KeySet) Zones() []string {
	seen := make(map[string]bool)
	var zones []string
	for _, kr := range ks.Keys {
		if !seen[kr.Zone] {
			seen[kr.Zone] = true
			zones = append(zones, kr.Zone)
		}
	}
	sort.Strings(zones)
	return zones
}

// sortDate is the timestamp that begins the current or next state; keys
// with no scheduled change (or inconsistent dates) sort last.
func sortDate(kr *KeyRecord, ref time.Time) time.Time {
	next, err := kr.NextChange(ref)
	if err != nil || next.IsZero() {
		return time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return next
}

// SortBy orders the set by the given field. Sorting is stable and ties are
// broken by keytag ascending.
func (ks KeySet) SortBy(field SortField, ref time.Time) KeySet {
	keys := make([]*KeyRecord, len(ks.Keys))
	copy(keys, ks.Keys)
	less := func(i, j *KeyRecord) int {
		switch field {
		case SortZone:
			return strings.Compare(i.Zone, j.Zone)
		case SortAlg:
			return int(i.Algorithm) - int(j.Algorithm)
		case SortID:
			return int(i.KeyTag) - int(j.KeyTag)
		case SortState:
			return int(i.StateAt(ref)) - int(j.StateAt(ref))
		case SortDate:
			return sortDate(i, ref).Compare(sortDate(j, ref))
		}
		return 0
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if c := less(keys[i], keys[j]); c != 0 {
			return c < 0
		}
		return keys[i].KeyTag < keys[j].KeyTag
	})
	return KeySet{Keys: keys}
}
