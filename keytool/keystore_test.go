/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewKeyStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewKeyStore(dir)
	if err != nil {
		t.Fatalf("NewKeyStore returned error: %v", err)
	}
	if store.Dir != dir {
		t.Errorf("store dir = %q, want %q", store.Dir, dir)
	}

	if _, err := NewKeyStore(filepath.Join(dir, "missing")); err == nil {
		t.Error("NewKeyStore accepted a missing directory")
	}
}

func TestListKeys(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "Kexample.com.+013+12345",
		zskFixture("example.com.", "12345"), privFixture())
	writeKeyPair(t, dir, "Ksub.example.com.+013+22222",
		zskFixture("sub.example.com.", "22222"), privFixture())
	// Orphan: .key without .private must be skipped.
	writeKeyPair(t, dir, "Korphan.example.com.+013+33333",
		zskFixture("orphan.example.com.", "33333"), "")
	// Unrelated file matching nothing.
	if err := os.WriteFile(filepath.Join(dir, "db.example.com."), []byte("zone data\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewKeyStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("exact zone", func(t *testing.T) {
		keys, err := store.ListKeys("example.com.", false)
		if err != nil {
			t.Fatalf("ListKeys returned error: %v", err)
		}
		if len(keys) != 1 || keys[0].KeyTag != 12345 {
			t.Errorf("got %d keys", len(keys))
		}
	})

	t.Run("recursive includes sub-zones", func(t *testing.T) {
		keys, err := store.ListKeys("example.com.", true)
		if err != nil {
			t.Fatalf("ListKeys returned error: %v", err)
		}
		if len(keys) != 2 {
			t.Fatalf("got %d keys, want 2 (orphan skipped)", len(keys))
		}
		if keys[0].Zone != "example.com." || keys[1].Zone != "sub.example.com." {
			t.Errorf("zones = %s, %s", keys[0].Zone, keys[1].Zone)
		}
	})

	t.Run("foreign zone", func(t *testing.T) {
		keys, err := store.ListKeys("example.org.", true)
		if err != nil {
			t.Fatalf("ListKeys returned error: %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("got %d keys for a foreign zone", len(keys))
		}
	})
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "Kexample.com.+013+12345",
		zskFixture("example.com.", "12345"), privFixture())
	writeKeyPair(t, dir, "Kexample.com.+013+22222",
		zskFixture("example.com.", "22222"), privFixture())

	store, err := NewKeyStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("pattern without extension", func(t *testing.T) {
		files, err := store.Glob([]string{"Kexample.com.+013+*"})
		if err != nil {
			t.Fatalf("Glob returned error: %v", err)
		}
		if len(files) != 2 {
			t.Errorf("got %d files, want 2", len(files))
		}
	})

	t.Run("exact name with extension", func(t *testing.T) {
		files, err := store.Glob([]string{"Kexample.com.+013+12345.key"})
		if err != nil {
			t.Fatalf("Glob returned error: %v", err)
		}
		if len(files) != 1 {
			t.Errorf("got %d files, want 1", len(files))
		}
	})

	t.Run("no duplicates from overlapping patterns", func(t *testing.T) {
		files, err := store.Glob([]string{"K*", "Kexample.com.+013+12345"})
		if err != nil {
			t.Fatalf("Glob returned error: %v", err)
		}
		if len(files) != 2 {
			t.Errorf("got %d files, want 2", len(files))
		}
	})
}

// TestSetTimes rewrites the timing metadata in both halves of the pair and
// checks that a fresh read sees the new values.
func TestSetTimes(t *testing.T) {
	dir := t.TempDir()
	pub := strings.Join([]string{
		"; This is a zone-signing key, keyid 12345, for example.com.",
		"; Created: 20231220000000 (Wed Dec 20 00:00:00 2023)",
		"; Publish: 20240101000000 (Mon Jan  1 00:00:00 2024)",
		"; Activate: 20240108000000 (Mon Jan  8 00:00:00 2024)",
		"example.com. 3600 IN DNSKEY 256 3 13 " + testPubKey,
		"",
	}, "\n")
	keyfile := writeKeyPair(t, dir, "Kexample.com.+013+12345", pub, privFixture())

	store, err := NewKeyStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	kr, err := ReadKeyRecord(keyfile)
	if err != nil {
		t.Fatal(err)
	}
	if !kr.Inactive.IsZero() || !kr.Delete.IsZero() {
		t.Fatal("fixture unexpectedly has inactive/delete set")
	}

	inactive := date(2024, 1, 22)
	del := date(2024, 1, 29)
	if err := store.SetTimes(kr, time.Time{}, time.Time{}, inactive, del); err != nil {
		t.Fatalf("SetTimes returned error: %v", err)
	}

	// The in-memory record is updated in place.
	if !kr.Inactive.Equal(inactive) || !kr.Delete.Equal(del) {
		t.Errorf("record not updated: %s, %s", kr.Inactive, kr.Delete)
	}
	// Untouched fields survive.
	if !kr.Activate.Equal(date(2024, 1, 8)) {
		t.Errorf("activate changed to %s", kr.Activate)
	}

	reread, err := ReadKeyRecord(keyfile)
	if err != nil {
		t.Fatalf("re-read returned error: %v", err)
	}
	if !reread.Inactive.Equal(inactive) || !reread.Delete.Equal(del) {
		t.Errorf("on-disk times = %s, %s", reread.Inactive, reread.Delete)
	}
	if reread.DnskeyRR == nil {
		t.Error("DNSKEY RR lost in rewrite")
	}

	// The .private side carries the same metadata lines.
	data, err := os.ReadFile(kr.PrivateFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Inactive: 20240122000000") ||
		!strings.Contains(string(data), "Delete: 20240129000000") {
		t.Errorf("private file missing new time lines:\n%s", data)
	}

	// Updating an existing field replaces the line instead of appending.
	if err := store.SetTimes(kr, time.Time{}, time.Time{}, date(2024, 2, 1), time.Time{}); err != nil {
		t.Fatalf("SetTimes returned error: %v", err)
	}
	data, err = os.ReadFile(keyfile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "; Inactive:") != 1 {
		t.Errorf("duplicate Inactive lines:\n%s", data)
	}
}
