/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// KeyStore reads and writes key pair files below one base directory. The
// file names and the comment lines inside the .key files are the entire
// database; nothing else is persisted.
type KeyStore struct {
	Dir string
}

func NewKeyStore(dir string) (*KeyStore, error) {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("key directory %q not found: %v", dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("key directory %q is not a directory", dir)
	}
	return &KeyStore{Dir: dir}, nil
}

// ListKeys loads all key records for a zone (and its sub-zones in recursive
// mode), sorted by zone, type, algorithm, keytag. A .key file without its
// .private sibling is a warning, not an error, and is skipped.
func (ks *KeyStore) ListKeys(zone string, recursive bool) ([]*KeyRecord, error) {
	matches, err := filepath.Glob(filepath.Join(ks.Dir, "K*+*+*.key"))
	if err != nil {
		return nil, fmt.Errorf("error globbing key files in %q: %v", ks.Dir, err)
	}

	var result []*KeyRecord
	for _, path := range matches {
		base := strings.TrimSuffix(filepath.Base(path), ".key")
		name, _, _, err := ParseKeyName(base)
		if err != nil {
			if Globals.Debug {
				log.Printf("Ignoring %s: %v", path, err)
			}
			continue
		}
		if !ZoneMatches(name, zone, recursive) {
			continue
		}
		if _, err := os.Stat(strings.TrimSuffix(path, ".key") + ".private"); err != nil {
			log.Printf("Warning: %s exists, but corresponding .private does not!", filepath.Base(path))
			continue
		}
		kr, err := ReadKeyRecord(path)
		if err != nil {
			return nil, err
		}
		result = append(result, kr)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SortKey() < result[j].SortKey()
	})
	return result, nil
}

// Glob expands file patterns (relative to the store directory, with or
// without the .key extension) into the matching public key files.
func (ks *KeyStore) Glob(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(matches []string) {
		for _, m := range matches {
			if strings.HasSuffix(m, ".key") && !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(ks.Dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %v", pattern, err)
		}
		add(matches)
		if !strings.HasSuffix(pattern, ".") {
			pattern += "."
		}
		matches, err = filepath.Glob(filepath.Join(ks.Dir, pattern+"key"))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %v", pattern, err)
		}
		add(matches)
	}
	sort.Strings(files)
	return files, nil
}

// SetTimes rewrites the timing metadata of an existing key pair, both in
// the .key comment lines and in the .private file, the way dnssec-settime
// does. Zero timestamps leave the corresponding field untouched.
func (ks *KeyStore) SetTimes(kr *KeyRecord, publish, activate, inactive, del time.Time) error {
	fields := []struct {
		label string
		value time.Time
	}{
		{"Publish", publish},
		{"Activate", activate},
		{"Inactive", inactive},
		{"Delete", del},
	}

	if err := rewriteTimeFields(kr.KeyFile, "; ", fields); err != nil {
		return err
	}
	if err := rewriteTimeFields(kr.PrivateFile, "", fields); err != nil {
		return err
	}

	if !publish.IsZero() {
		kr.Publish = publish
	}
	if !activate.IsZero() {
		kr.Activate = activate
	}
	if !inactive.IsZero() {
		kr.Inactive = inactive
	}
	if !del.IsZero() {
		kr.Delete = del
	}
	return nil
}

// rewriteTimeFields updates (or appends) "Label: YYYYMMDDHHmmss" metadata
// lines in a key file. In the .key file those lines carry a "; " prefix, in
// the .private file they do not. The file is written via a temp file plus
// rename so a crash cannot leave a half-written key behind.
func rewriteTimeFields(path, prefix string, fields []struct {
	label string
	value time.Time
}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading %q: %v", path, err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error stat %q: %v", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for _, f := range fields {
		if f.value.IsZero() {
			continue
		}
		newline := fmt.Sprintf("%s%s: %s", prefix, f.label, FormatDNSTime(f.value))
		replaced := false
		for i, line := range lines {
			if strings.HasPrefix(line, prefix+f.label+":") {
				lines[i] = newline
				replaced = true
				break
			}
		}
		if !replaced {
			lines = append(lines, newline)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(lines, "\n")+"\n"), fi.Mode().Perm()); err != nil {
		return fmt.Errorf("error writing %q: %v", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error replacing %q: %v", path, err)
	}
	return nil
}
