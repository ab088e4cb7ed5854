/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"
)

// PermPolicy says what a correctly protected key pair looks like: private
// key material owner-only, public material world-readable. Owner and group
// are only enforced when set (changing them requires privileges).
type PermPolicy struct {
	KeyMode      os.FileMode
	PrivateMode  os.FileMode
	KeyOwner     string
	KeyGroup     string
	PrivateOwner string
	PrivateGroup string
}

func DefaultPermPolicy() PermPolicy {
	return PermPolicy{
		KeyMode:     0644,
		PrivateMode: 0600,
	}
}

func (pp PermPolicy) modeFor(path string) os.FileMode {
	if strings.HasSuffix(path, ".private") {
		return pp.PrivateMode
	}
	return pp.KeyMode
}

func (pp PermPolicy) ownership(path string) (string, string) {
	if strings.HasSuffix(path, ".private") {
		return pp.PrivateOwner, pp.PrivateGroup
	}
	return pp.KeyOwner, pp.KeyGroup
}

func lookupIDs(owner, group string) (int, int, error) {
	uid, gid := -1, -1
	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return -1, -1, fmt.Errorf("unknown user %q: %v", owner, err)
		}
		uid, _ = strconv.Atoi(u.Uid)
	}
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return -1, -1, fmt.Errorf("unknown group %q: %v", group, err)
		}
		gid, _ = strconv.Atoi(g.Gid)
	}
	return uid, gid, nil
}

// check reports whether the file deviates from the policy.
func (pp PermPolicy) check(path string) (modeWrong, ownerWrong bool, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, false, fmt.Errorf("error stat %q: %v", path, err)
	}
	modeWrong = fi.Mode().Perm() != pp.modeFor(path)

	owner, group := pp.ownership(path)
	if owner == "" && group == "" {
		return modeWrong, false, nil
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return modeWrong, false, nil
	}
	uid, gid, err := lookupIDs(owner, group)
	if err != nil {
		return modeWrong, false, err
	}
	if uid >= 0 && int(st.Uid) != uid {
		ownerWrong = true
	}
	if gid >= 0 && int(st.Gid) != gid {
		ownerWrong = true
	}
	return modeWrong, ownerWrong, nil
}

// Check reports whether Apply would change anything, without touching the
// file. This is what dry-run mode and the listing's permission marker use.
func (pp PermPolicy) Check(path string) (bool, error) {
	modeWrong, ownerWrong, err := pp.check(path)
	return modeWrong || ownerWrong, err
}

// CheckPair is Check over both halves of a key pair.
func (pp PermPolicy) CheckPair(kr *KeyRecord) (bool, error) {
	pub, err := pp.Check(kr.KeyFile)
	if err != nil {
		return false, err
	}
	priv, err := pp.Check(kr.PrivateFile)
	if err != nil {
		return false, err
	}
	return pub || priv, nil
}

// Apply brings one file into line with the policy and reports whether a
// change was made. Each file is adjusted independently: a failure on one
// never undoes another.
func (pp PermPolicy) Apply(path string) (bool, error) {
	modeWrong, ownerWrong, err := pp.check(path)
	if err != nil {
		return false, err
	}
	if ownerWrong {
		owner, group := pp.ownership(path)
		uid, gid, err := lookupIDs(owner, group)
		if err != nil {
			return false, err
		}
		if err := os.Chown(path, uid, gid); err != nil {
			return false, fmt.Errorf("error chown %q: %v", path, err)
		}
	}
	if modeWrong {
		if err := os.Chmod(path, pp.modeFor(path)); err != nil {
			return ownerWrong, fmt.Errorf("error chmod %q: %v", path, err)
		}
	}
	return modeWrong || ownerWrong, nil
}

// ApplyPair is Apply over both halves of a key pair.
func (pp PermPolicy) ApplyPair(kr *KeyRecord) (bool, error) {
	pub, err := pp.Apply(kr.KeyFile)
	if err != nil {
		return pub, err
	}
	priv, err := pp.Apply(kr.PrivateFile)
	return pub || priv, err
}
