/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DNSTimeLayout is the timestamp format used inside BIND-style key files
// and by dnssec-settime(8).
const DNSTimeLayout = "20060102150405"

// Interval units follow the dnssec-settime convention: months are 30
// 24-hour days and years are 365 24-hour days, leap seconds and leap years
// be damned.
const (
	MinuteSec = time.Minute
	HourSec   = time.Hour
	DaySec    = 24 * time.Hour
	WeekSec   = 7 * DaySec
	MonthSec  = 30 * DaySec
	YearSec   = 365 * DaySec
)

// ParseDNSTime parses a YYYYMMDDHHmmss timestamp. Timestamps in key files
// are always UTC.
func ParseDNSTime(s string) (time.Time, error) {
	if len(s) != len(DNSTimeLayout) {
		return time.Time{}, fmt.Errorf("unexpected date format: %q", s)
	}
	t, err := time.ParseInLocation(DNSTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unexpected date format: %q: %v", s, err)
	}
	return t, nil
}

// FormatDNSTime renders a timestamp the way dnssec-settime wants it.
func FormatDNSTime(t time.Time) string {
	return t.UTC().Format(DNSTimeLayout)
}

// ParseInterval parses a relative time value: either a bare number of
// seconds or a number with one of the suffixes s, mi, h, d, w, m, y.
func ParseInterval(inp string) (time.Duration, error) {
	if n, err := strconv.Atoi(inp); err == nil {
		return time.Duration(n) * time.Second, nil
	}

	// "mi" must be tried before "m" (minutes vs months)
	suffixes := []struct {
		suffix string
		unit   time.Duration
	}{
		{"s", time.Second},
		{"mi", MinuteSec},
		{"h", HourSec},
		{"d", DaySec},
		{"w", WeekSec},
		{"m", MonthSec},
		{"y", YearSec},
	}
	for _, s := range suffixes {
		if strings.HasSuffix(inp, s.suffix) {
			n, err := strconv.Atoi(strings.TrimSuffix(inp, s.suffix))
			if err != nil {
				break
			}
			return time.Duration(n) * s.unit, nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid relative date/time value", inp)
}

// ParseTime parses an absolute point in time. Accepted forms, in order:
// DNS timestamp (YYYYMMDDHHmmss), Unix epoch seconds, ISO-8601 with or
// without offset (UTC assumed when none given), and "+relative" offsets
// from the current time.
func ParseTime(inp string) (time.Time, error) {
	if len(inp) == len(DNSTimeLayout) && strings.HasPrefix(inp, "20") {
		if t, err := ParseDNSTime(inp); err == nil {
			return t, nil
		}
	}

	if n, err := strconv.ParseInt(inp, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}

	isoLayouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, inp, time.UTC); err == nil {
			return t, nil
		}
	}

	if strings.HasPrefix(inp, "+") {
		d, err := ParseInterval(inp[1:])
		if err != nil {
			return time.Time{}, err
		}
		return time.Now().UTC().Add(d), nil
	}

	return time.Time{}, fmt.Errorf("%q is not a valid date/time value", inp)
}

// FormatTimespan renders a duration as a compact unit string ("2w", or
// "2w3d6h..." when compressed is false). Units only kick in once the span
// exceeds 1.2 of the unit, so 9 days print as "1w" but 25 hours as "25h".
func FormatTimespan(span time.Duration, compressed bool) string {
	sec := int64(span / time.Second)
	var parts []string

	units := []struct {
		size  int64
		label string
	}{
		{int64(YearSec / time.Second), "y"},
		{int64(WeekSec / time.Second), "w"},
		{int64(DaySec / time.Second), "d"},
		{int64(HourSec / time.Second), "h"},
		{int64(MinuteSec / time.Second), "m"},
	}
	for _, u := range units {
		if float64(sec) >= float64(u.size)*1.2 {
			parts = append(parts, fmt.Sprintf("%d%s", sec/u.size, u.label))
			sec = sec % u.size
		}
	}
	if sec >= 0 {
		parts = append(parts, fmt.Sprintf("%ds", sec))
	}
	if compressed {
		parts = parts[:1]
	}
	return strings.Join(parts, "")
}

// FormatRelative renders a timestamp as a signed span relative to ref, or
// "-" when the timestamp is unset.
func FormatRelative(ref, date time.Time, compressed bool) string {
	if date.IsZero() {
		return "-"
	}
	if date.After(ref) {
		return "+" + FormatTimespan(date.Sub(ref), compressed)
	}
	return "-" + FormatTimespan(ref.Sub(date), compressed)
}
