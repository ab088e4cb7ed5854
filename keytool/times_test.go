/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"testing"
	"time"
)

func TestParseDNSTime(t *testing.T) {
	got, err := ParseDNSTime("20240108153045")
	if err != nil {
		t.Fatalf("ParseDNSTime returned error: %v", err)
	}
	want := time.Date(2024, 1, 8, 15, 30, 45, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDNSTime = %s, want %s", got, want)
	}

	for _, bad := range []string{"2024010815304", "202401081530456", "2024010815304x", ""} {
		if _, err := ParseDNSTime(bad); err == nil {
			t.Errorf("ParseDNSTime(%q) did not fail", bad)
		}
	}
}

func TestFormatDNSTime(t *testing.T) {
	in := time.Date(2024, 1, 8, 15, 30, 45, 0, time.FixedZone("CET", 3600))
	if got := FormatDNSTime(in); got != "20240108143045" {
		t.Errorf("FormatDNSTime did not normalize to UTC: got %s", got)
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"90", 90 * time.Second},
		{"30s", 30 * time.Second},
		{"5mi", 5 * time.Minute},
		{"3h", 3 * time.Hour},
		{"2d", 48 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"2m", 60 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
	}
	for _, c := range cases {
		got, err := ParseInterval(c.in)
		if err != nil {
			t.Errorf("ParseInterval(%q) returned error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseInterval(%q) = %s, want %s", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "x", "1x", "w", "1.5d"} {
		if _, err := ParseInterval(bad); err == nil {
			t.Errorf("ParseInterval(%q) did not fail", bad)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Run("dns timestamp", func(t *testing.T) {
		got, err := ParseTime("20240108000000")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		if !got.Equal(date(2024, 1, 8)) {
			t.Errorf("ParseTime = %s, want %s", got, date(2024, 1, 8))
		}
	})

	t.Run("epoch seconds", func(t *testing.T) {
		got, err := ParseTime("1704672000")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		if !got.Equal(time.Unix(1704672000, 0)) {
			t.Errorf("ParseTime = %s, want %s", got, time.Unix(1704672000, 0).UTC())
		}
	})

	t.Run("iso without offset is UTC", func(t *testing.T) {
		got, err := ParseTime("2024-01-08T12:00:00")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		want := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ParseTime = %s, want %s", got, want)
		}
	})

	t.Run("iso with offset", func(t *testing.T) {
		got, err := ParseTime("2024-01-08T12:00:00+02:00")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		want := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("ParseTime = %s, want %s", got, want)
		}
	})

	t.Run("date only", func(t *testing.T) {
		got, err := ParseTime("2024-01-08")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		if !got.Equal(date(2024, 1, 8)) {
			t.Errorf("ParseTime = %s, want %s", got, date(2024, 1, 8))
		}
	})

	t.Run("relative to now", func(t *testing.T) {
		before := time.Now().UTC().Add(24 * time.Hour)
		got, err := ParseTime("+1d")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		after := time.Now().UTC().Add(24 * time.Hour)
		if got.Before(before) || got.After(after) {
			t.Errorf("ParseTime(+1d) = %s, outside [%s, %s]", got, before, after)
		}
	})

	t.Run("relative seconds", func(t *testing.T) {
		before := time.Now().UTC().Add(30 * time.Second)
		got, err := ParseTime("+30s")
		if err != nil {
			t.Fatalf("ParseTime returned error: %v", err)
		}
		after := time.Now().UTC().Add(30 * time.Second)
		if got.Before(before) || got.After(after) {
			t.Errorf("ParseTime(+30s) = %s, outside [%s, %s]", got, before, after)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParseTime("next tuesday"); err == nil {
			t.Error("ParseTime on garbage did not fail")
		}
	})
}

// TestFormatTimespan checks the 1.2x unit threshold: 9 days compress to
// weeks, 8 days and 25 hours keep the smaller unit.
func TestFormatTimespan(t *testing.T) {
	cases := []struct {
		span       time.Duration
		compressed bool
		want       string
	}{
		{9 * 24 * time.Hour, true, "1w"},
		{8 * 24 * time.Hour, true, "8d"},
		{25 * time.Hour, true, "25h"},
		{30 * time.Hour, true, "1d"},
		{60 * time.Second, true, "60s"},
		{90 * time.Second, true, "1m"},
		{0, true, "0s"},
		{9*24*time.Hour + 3*time.Hour, false, "1w2d3h0s"},
	}
	for _, c := range cases {
		if got := FormatTimespan(c.span, c.compressed); got != c.want {
			t.Errorf("FormatTimespan(%s, %v) = %q, want %q", c.span, c.compressed, got, c.want)
		}
	}
}

func TestFormatRelative(t *testing.T) {
	ref := date(2024, 1, 10)

	if got := FormatRelative(ref, time.Time{}, true); got != "-" {
		t.Errorf("FormatRelative on unset date = %q, want -", got)
	}
	if got := FormatRelative(ref, date(2024, 1, 22), true); got != "+1w" {
		t.Errorf("FormatRelative future = %q, want +1w", got)
	}
	if got := FormatRelative(ref, date(2024, 1, 8), true); got != "-2d" {
		t.Errorf("FormatRelative past = %q, want -2d", got)
	}
}
