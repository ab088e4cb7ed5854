/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"sort"
	"time"

	"github.com/miekg/dns"
)

// RotationParams are the timing intervals that shape a successor key's
// lifecycle. All four default to the values dnssec-settime users expect.
type RotationParams struct {
	PrePublish  time.Duration // publish this long before activation
	Lifetime    time.Duration // active phase length
	Overlap     time.Duration // both keys active this long, counted from the end of the old key's active phase
	PostPublish time.Duration // keep published this long after deactivation
}

func DefaultRotationParams() RotationParams {
	return RotationParams{
		PrePublish:  WeekSec,
		Lifetime:    2 * WeekSec,
		Overlap:     WeekSec,
		PostPublish: WeekSec,
	}
}

func (p RotationParams) Validate() error {
	if p.PrePublish < 0 {
		return fmt.Errorf("key pre-publication interval is negative")
	}
	if p.Lifetime < 0 {
		return fmt.Errorf("key lifetime is negative")
	}
	if p.PostPublish < 0 {
		return fmt.Errorf("key post-publication interval is negative")
	}
	if p.Overlap < 0 {
		return fmt.Errorf("key overlap is negative")
	}
	if p.Overlap >= p.Lifetime {
		return fmt.Errorf("key overlap %s is longer than lifetime %s",
			FormatTimespan(p.Overlap, false), FormatTimespan(p.Lifetime, false))
	}
	return nil
}

// RotationPlan is the timing of a proposed successor key. Algorithm and key
// size are copied from the template; the key material itself is generated
// only when the plan is materialized.
type RotationPlan struct {
	Zone      string
	Type      KeyType
	Algorithm uint8
	KeySize   int
	Template  *KeyRecord

	Publish  time.Time
	Activate time.Time
	Inactive time.Time
	Delete   time.Time
}

func (rp RotationPlan) String() string {
	return fmt.Sprintf("successor for %s (%s, alg %s): publish %s activate %s inactive %s delete %s",
		rp.Template.Name(), rp.Type, dns.AlgorithmToString[rp.Algorithm],
		FormatDNSTime(rp.Publish), FormatDNSTime(rp.Activate),
		FormatDNSTime(rp.Inactive), FormatDNSTime(rp.Delete))
}

// TimeRepair schedules missing Inactive/Delete timestamps on an existing
// key that was never finalized. Zero fields are left untouched.
type TimeRepair struct {
	Key      *KeyRecord
	Inactive time.Time
	Delete   time.Time
}

func (tr TimeRepair) String() string {
	s := fmt.Sprintf("set times on %s:", tr.Key.Name())
	if !tr.Inactive.IsZero() {
		s += " inactive " + FormatDNSTime(tr.Inactive)
	}
	if !tr.Delete.IsZero() {
		s += " delete " + FormatDNSTime(tr.Delete)
	}
	return s
}

// RotationResult is everything one planner invocation decided: repairs to
// existing keys, successor plans, and per-group conditions that prevented
// planning (reported, never fatal to other groups).
type RotationResult struct {
	Repairs    []TimeRepair
	Successors []RotationPlan
	Warnings   []string
}

func (rr *RotationResult) Empty() bool {
	return len(rr.Repairs) == 0 && len(rr.Successors) == 0
}

// Planner decides whether a (zone, type) group needs a successor key so the
// group never has an instant with no ACT key. It is evaluated once per
// invocation and is idempotent: an active key whose end of life is already
// covered by another key gets no new successor.
type Planner struct {
	Params RotationParams
}

// Plan inspects the keys of one zone and type and produces a rotation
// result. Only ZSKs can be rotated: a KSK rollover requires coordinated DS
// changes at the parent, which this tool does not do.
func (p *Planner) Plan(ks KeySet, zone string, ktype KeyType, ref time.Time) (*RotationResult, error) {
	if ktype != TypeZSK {
		return nil, fmt.Errorf("only ZSKs can be rotated")
	}
	if err := p.Params.Validate(); err != nil {
		return nil, err
	}

	result := &RotationResult{}

	candidates := ks.FilterZone(zone, false).FilterType(ktype)
	var live []*KeyRecord
	for _, kr := range candidates.Keys {
		if kr.StateAt(ref) == StateDel {
			continue
		}
		if kr.Activate.IsZero() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s has no activation date, ignored for rotation", kr.Name()))
			continue
		}
		live = append(live, kr)
	}
	if len(live) == 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("zone %s: no %s keys qualified for rotation", zone, ktype))
		return result, nil
	}

	// Each algorithm rotates independently. An operator switches algorithms
	// by manually creating a key of the new algorithm as the new frontier.
	byAlgo := make(map[uint8][]*KeyRecord)
	for _, kr := range live {
		byAlgo[kr.Algorithm] = append(byAlgo[kr.Algorithm], kr)
	}
	algos := make([]int, 0, len(byAlgo))
	for alg := range byAlgo {
		algos = append(algos, int(alg))
	}
	sort.Ints(algos)

	for _, alg := range algos {
		akeys := byAlgo[uint8(alg)]
		plans, repairs, warn := p.planGroup(akeys, ref)
		if warn != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("zone %s, alg %d: %s", zone, alg, warn))
		}
		result.Repairs = append(result.Repairs, repairs...)
		result.Successors = append(result.Successors, plans...)
	}

	return result, nil
}

// effectiveInactive is the key's Inactive timestamp, derived from its
// activation plus the configured lifetime when the key was never finalized.
func (p *Planner) effectiveInactive(kr *KeyRecord) time.Time {
	if !kr.Inactive.IsZero() {
		return kr.Inactive
	}
	return kr.Activate.Add(p.Params.Lifetime)
}

// planGroup handles the keys of one (zone, type, algorithm) group. When a
// currently active key goes inactive, some key must be active at that
// instant. This holds for every active key, not just the earliest one: the
// later ones are in their overlap phase, but their successors must be
// checked too in case the intervals were changed.
func (p *Planner) planGroup(akeys []*KeyRecord, ref time.Time) ([]RotationPlan, []TimeRepair, string) {
	// New keys are modeled on the most recently created one, which lets the
	// operator inject a new key config by hand-swapping a key between runs.
	template := akeys[0]
	for _, kr := range akeys[1:] {
		if !kr.Created.Before(template.Created) {
			template = kr
		}
	}

	var active []*KeyRecord
	for _, kr := range akeys {
		if kr.StateAt(ref) == StateAct {
			active = append(active, kr)
		}
	}
	if len(active) == 0 {
		return nil, nil, "no key is currently active, please fix and rerun"
	}
	sort.SliceStable(active, func(i, j int) bool {
		return p.effectiveInactive(active[i]).Before(p.effectiveInactive(active[j]))
	})

	var plans []RotationPlan
	var repairs []TimeRepair
	for _, kr := range active {
		inactive := p.effectiveInactive(kr)
		if kr.Inactive.IsZero() {
			repairs = append(repairs, TimeRepair{Key: kr, Inactive: inactive,
				Delete: inactive.Add(p.Params.PostPublish)})
		} else if kr.Delete.IsZero() || kr.Delete.After(inactive.Add(p.Params.PostPublish)) {
			repairs = append(repairs, TimeRepair{Key: kr, Delete: inactive.Add(p.Params.PostPublish)})
		}

		// Covered when some other key is active at the instant this one
		// goes inactive; intervals are right-open, so a successor whose
		// activation equals this key's inactivation closes the gap.
		covered := false
		for _, other := range akeys {
			if other != kr && other.StateAt(inactive) == StateAct {
				covered = true
				break
			}
		}
		if covered {
			continue
		}

		plan := RotationPlan{
			Zone:      template.Zone,
			Type:      template.Type,
			Algorithm: template.Algorithm,
			KeySize:   template.KeySize(),
			Template:  template,
			Activate:  inactive.Add(-p.Params.Overlap),
		}
		plan.Publish = plan.Activate.Add(-p.Params.PrePublish)
		plan.Inactive = plan.Activate.Add(p.Params.Lifetime)
		plan.Delete = plan.Inactive.Add(p.Params.PostPublish)
		plans = append(plans, plan)
	}

	return plans, repairs, ""
}
