package dateutil

import (
	"testing"
	"time"
)

func TestDatePathNoLeadingZeroes(t *testing.T) {
	d := time.Date(2024, time.March, 7, 0, 0, 0, 0, time.Local)
	got := DatePath(d)
	want := "2024/3/7"
	if got != want {
		t.Fatalf("DatePath() = %q, want %q", got, want)
	}
}

func TestDiffersFromToday(t *testing.T) {
	if DiffersFromToday(Today()) {
		t.Fatal("Today() should never differ from itself")
	}

	yesterday := Today().AddDate(0, 0, -1)
	if !DiffersFromToday(yesterday) {
		t.Fatal("yesterday should differ from today")
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	cases := []string{"2024-01-01", "1999-12-31", "2024-03-07"}
	for _, s := range cases {
		d, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", s, err)
		}
		if got := FormatDate(d); got != s {
			t.Errorf("FormatDate(ParseDate(%q)) = %q, want %q", s, got, s)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("not-a-date"); err == nil {
		t.Fatal("expected an error for a malformed date")
	}
}
