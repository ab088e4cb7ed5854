/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ArchiveMove is one planned file relocation.
type ArchiveMove struct {
	Type KeyType
	Src  string
	Dst  string // destination directory
}

func (am ArchiveMove) String() string {
	return fmt.Sprintf("%-4s %s -> %s", am.Type, am.Src, am.Dst)
}

// ArchivePlan is the full set of moves one archive invocation would make.
// Building the plan never mutates anything; Execute does.
type ArchivePlan struct {
	Moves   []ArchiveMove
	Expired int // number of expired keys found
	KSKs    int // how many of those are key-signing keys
}

// archiveYear picks the year subdirectory for --auto mode. Inactivation is
// when the key stopped signing; a key that somehow expired without an
// Inactive timestamp falls back to its Delete year.
func archiveYear(kr *KeyRecord) string {
	t := kr.Inactive
	if t.IsZero() {
		t = kr.Delete
	}
	return strconv.Itoa(t.UTC().Year())
}

// PlanArchive selects all keys in DEL state at ref and plans moving both
// halves of each pair into target (inside the store directory unless target
// is absolute). With auto set, the year of inactivation is appended to the
// target path.
func PlanArchive(keys []*KeyRecord, store *KeyStore, target string, auto bool, ref time.Time) ArchivePlan {
	var plan ArchivePlan
	for _, kr := range keys {
		if kr.StateAt(ref) != StateDel {
			continue
		}
		plan.Expired++
		if kr.Type == TypeKSK {
			plan.KSKs++
		}
		tdir := target
		if auto {
			tdir = filepath.Join(target, archiveYear(kr))
		}
		if !filepath.IsAbs(tdir) {
			tdir = filepath.Join(store.Dir, tdir)
		}
		plan.Moves = append(plan.Moves,
			ArchiveMove{Type: kr.Type, Src: kr.KeyFile, Dst: tdir},
			ArchiveMove{Type: kr.Type, Src: kr.PrivateFile, Dst: tdir})
	}
	return plan
}

// Execute performs the planned moves. Each file is moved atomically via
// rename; a failure on one file is reported but does not roll back or stop
// files already moved. Returns the number of files moved and the per-file
// errors encountered.
func (ap ArchivePlan) Execute() (int, []error) {
	moved := 0
	var errs []error
	for _, m := range ap.Moves {
		if err := os.MkdirAll(m.Dst, 0755); err != nil {
			errs = append(errs, fmt.Errorf("error creating archive dir %q: %v", m.Dst, err))
			continue
		}
		dst := filepath.Join(m.Dst, filepath.Base(m.Src))
		if err := os.Rename(m.Src, dst); err != nil {
			errs = append(errs, fmt.Errorf("error moving %q to %q: %v", m.Src, dst, err))
			continue
		}
		moved++
	}
	return moved, errs
}
