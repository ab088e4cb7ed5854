/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"errors"
	"time"
)

// KeyState is the lifecycle state of a DNSSEC key, derived from the
// timestamps embedded in the key file. It is never stored anywhere.
type KeyState uint8

const (
	StateNone KeyState = iota // no timing metadata at all
	StateFut                  // before Publish
	StatePub                  // published, not yet signing
	StateAct                  // actively signing
	StateInac                 // no longer signing, still published
	StateDel                  // past Delete, should be removed from the zone
)

var KeyStateToString = map[KeyState]string{
	StateNone: "-",
	StateFut:  "FUT",
	StatePub:  "PUB",
	StateAct:  "ACT",
	StateInac: "INAC",
	StateDel:  "DEL",
}

var StringToKeyState = map[string]KeyState{
	"FUT":  StateFut,
	"PUB":  StatePub,
	"ACT":  StateAct,
	"INAC": StateInac,
	"DEL":  StateDel,
}

func (ks KeyState) String() string {
	if s, exist := KeyStateToString[ks]; exist {
		return s
	}
	return "UNKNOWN"
}

// KeyType is the DNSSEC role of a key pair.
type KeyType uint8

const (
	TypeAny KeyType = iota
	TypeZSK
	TypeKSK
)

var KeyTypeToString = map[KeyType]string{
	TypeAny: "",
	TypeZSK: "ZSK",
	TypeKSK: "KSK",
}

var StringToKeyType = map[string]KeyType{
	"ZSK": TypeZSK,
	"KSK": TypeKSK,
}

func (kt KeyType) String() string {
	return KeyTypeToString[kt]
}

var ErrInconsistentTimes = errors.New("key timestamps violate publish <= activate <= inactive <= delete")

// StateAt computes the lifecycle state of the key at the reference time.
// All boundary instants resolve to the later state, i.e. the intervals are
// right-open: at exactly Activate the key is ACT, at exactly Delete it is DEL.
// A missing Publish is treated as minus infinity (the key is never FUT), a
// missing Delete means the key never reaches DEL and a key whose Inactive has
// passed without a Delete stays INAC indefinitely.
func (kr *KeyRecord) StateAt(ref time.Time) KeyState {
	if !kr.Delete.IsZero() && !ref.Before(kr.Delete) {
		return StateDel
	}
	if !kr.Inactive.IsZero() && !ref.Before(kr.Inactive) {
		return StateInac
	}
	if !kr.Activate.IsZero() && !ref.Before(kr.Activate) {
		return StateAct
	}
	if !kr.Publish.IsZero() {
		if ref.Before(kr.Publish) {
			return StateFut
		}
		return StatePub
	}
	if !kr.Activate.IsZero() || !kr.Inactive.IsZero() || !kr.Delete.IsZero() {
		// Publish unset but later events scheduled: published since forever.
		return StatePub
	}
	return StateNone
}

// State is StateAt with the current wall clock.
func (kr *KeyRecord) State() KeyState {
	return kr.StateAt(time.Now().UTC())
}

// AssignedTimes returns the set timestamps in Publish, Activate, Inactive,
// Delete order, skipping unset ones. Created is deliberately excluded: it
// does not take part in the lifecycle ordering invariant.
func (kr *KeyRecord) AssignedTimes() []time.Time {
	var assigned []time.Time
	for _, t := range []time.Time{kr.Publish, kr.Activate, kr.Inactive, kr.Delete} {
		if !t.IsZero() {
			assigned = append(assigned, t)
		}
	}
	return assigned
}

// TimesConsistent reports whether the set timestamps are in non-decreasing
// lifecycle order.
func (kr *KeyRecord) TimesConsistent() bool {
	assigned := kr.AssignedTimes()
	for i := 1; i < len(assigned); i++ {
		if assigned[i].Before(assigned[i-1]) {
			return false
		}
	}
	return true
}

// NextChange returns the instant of the next state transition strictly after
// the reference time, or the zero time if no further transition is scheduled.
// A key with inconsistently ordered timestamps yields ErrInconsistentTimes;
// the caller is expected to report that key and carry on with the rest.
func (kr *KeyRecord) NextChange(ref time.Time) (time.Time, error) {
	if !kr.TimesConsistent() {
		return time.Time{}, ErrInconsistentTimes
	}
	for _, t := range kr.AssignedTimes() {
		if t.After(ref) {
			return t, nil
		}
	}
	return time.Time{}, nil
}
