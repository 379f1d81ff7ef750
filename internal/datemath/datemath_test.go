package datemath

import (
	"testing"
	"time"
)

func TestParseISODate(t *testing.T) {
	t.Run("accepts strict dates", func(t *testing.T) {
		d, ok := ParseISODate("2025-03-10")
		if !ok {
			t.Fatalf("expected parse to succeed")
		}
		if d.Year() != 2025 || d.Month() != time.March || d.Day() != 10 {
			t.Fatalf("unexpected date: %v", d)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, s := range []string{"", "2025-3-10", "2025/03/10", "20250310", "2025-13-01", "2025-02-30", "2025-03-10T00:00"} {
			if _, ok := ParseISODate(s); ok {
				t.Fatalf("expected %q to be rejected", s)
			}
		}
	})
}

func TestFormatISODate(t *testing.T) {
	if got := FormatISODate(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero date, got %q", got)
	}
	d, _ := ParseISODate("2025-03-10")
	if got := FormatISODate(d); got != "2025-03-10" {
		t.Fatalf("round-trip mismatch: %q", got)
	}
}

func TestAlignToWeekStart(t *testing.T) {
	cases := map[string]string{
		"2025-03-10": "2025-03-10", // Monday stays
		"2025-03-12": "2025-03-10", // Wednesday
		"2025-03-16": "2025-03-10", // Sunday belongs to the week started Monday
	}
	for in, want := range cases {
		d, _ := ParseISODate(in)
		if got := FormatISODate(AlignToWeekStart(d)); got != want {
			t.Fatalf("AlignToWeekStart(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestFindNextWeekday(t *testing.T) {
	from, _ := ParseISODate("2025-03-10") // Monday

	if got := FormatISODate(FindNextWeekday(from, time.Monday)); got != "2025-03-10" {
		t.Fatalf("zero delta should return the same day, got %s", got)
	}
	if got := FormatISODate(FindNextWeekday(from, time.Sunday)); got != "2025-03-16" {
		t.Fatalf("expected next Sunday 2025-03-16, got %s", got)
	}
}

func TestFindNthWeekdayOfMonth(t *testing.T) {
	anchor, _ := ParseISODate("2025-03-15")

	t.Run("nth within month", func(t *testing.T) {
		d, ok := FindNthWeekdayOfMonth(anchor, time.Monday, 2)
		if !ok || FormatISODate(d) != "2025-03-10" {
			t.Fatalf("second Monday of March 2025 = %s (ok=%v), want 2025-03-10", FormatISODate(d), ok)
		}
	})

	t.Run("missing fifth week", func(t *testing.T) {
		// February 2025 has exactly four of every weekday.
		feb, _ := ParseISODate("2025-02-01")
		if _, ok := FindNthWeekdayOfMonth(feb, time.Saturday, 4); !ok {
			t.Fatalf("fourth Saturday of February 2025 should exist")
		}
		if d, ok := FindNthWeekdayOfMonth(anchor, time.Saturday, 5); ok {
			t.Fatalf("nth=5 must be rejected, got %s", FormatISODate(d))
		}
	})

	t.Run("last always resolves inside the month", func(t *testing.T) {
		for m := time.January; m <= time.December; m++ {
			anchor := time.Date(2025, m, 1, 0, 0, 0, 0, time.Local)
			for wd := time.Sunday; wd <= time.Saturday; wd++ {
				d := FindLastWeekdayOfMonth(anchor, wd)
				if d.Month() != m {
					t.Fatalf("last %v of %v resolved outside the month: %v", wd, m, d)
				}
				if d.Weekday() != wd {
					t.Fatalf("wrong weekday: want %v got %v", wd, d.Weekday())
				}
			}
		}
	})
}

func TestMinutesConversion(t *testing.T) {
	t.Run("parse valid", func(t *testing.T) {
		m, ok := ParseTimeToMinutes("14:30")
		if !ok || m != 14*60+30 {
			t.Fatalf("ParseTimeToMinutes(14:30) = %d, %v", m, ok)
		}
	})

	t.Run("parse invalid", func(t *testing.T) {
		for _, s := range []string{"", "9:30", "24:00", "12:60", "ab:cd", "12-30", "09:3a", "09: 3", "0a:30", " 9:30"} {
			if _, ok := ParseTimeToMinutes(s); ok {
				t.Fatalf("expected %q to be rejected", s)
			}
		}
	})

	t.Run("format wraps", func(t *testing.T) {
		if got := MinutesToTime(0); got != "00:00" {
			t.Fatalf("got %q", got)
		}
		if got := MinutesToTime(23*60 + 30 + 60); got != "00:30" {
			t.Fatalf("wrap past midnight: got %q", got)
		}
		if got := MinutesToTime(-30); got != "23:30" {
			t.Fatalf("negative wrap: got %q", got)
		}
	})
}
