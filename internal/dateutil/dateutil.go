// Package dateutil renders and compares the calendar dates that partition
// the on-disk shard tree. The on-disk layout is byte-exact with the
// producer's own date formatting, so path rendering mirrors the C-style
// broken-down-time computation rather than Go's zero-padded defaults. Only
// the YYYY-MM-DD argument format of ParseDate/FormatDate is zero-padded.
package dateutil

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Today returns the current local date with the time-of-day truncated.
func Today() time.Time {
	now := time.Now().Local()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}

// DatePath renders "{year}/{month}/{day}" with no leading zeroes and a
// forward slash regardless of host path convention. This must match the
// producer's directory layout byte-for-byte.
func DatePath(d time.Time) string {
	return fmt.Sprintf("%d/%d/%d", d.Year(), int(d.Month()), d.Day())
}

// DiffersFromToday reports whether d's (year, month, day) differs from
// today's. This is the sole rollover trigger.
func DiffersFromToday(d time.Time) bool {
	today := Today()
	return d.Year() != today.Year() || d.Month() != today.Month() || d.Day() != today.Day()
}

// ParseDate parses a "YYYY-MM-DD" string. Failure is a fatal config error
// for callers — there is no partial or lenient parse.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate is the inverse of ParseDate: FormatDate(ParseDate(s)) == s for
// every s matching YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}
