// Package datemath provides the pure calendar primitives the rest of the
// engine is built on. All functions are side-effect free and never panic on
// malformed input; parsers report failure through a second return value so
// callers can short-circuit.
//
// Dates are naive local calendar dates: time.Time is only a computation
// vehicle, and every value produced here is midnight in time.Local.
package datemath

import (
	"fmt"
	"time"
)

const isoDateLayout = "2006-01-02"

// ParseISODate parses a strict YYYY-MM-DD string. It returns ok=false for
// anything else, including partial dates and out-of-range components.
func ParseISODate(s string) (time.Time, bool) {
	if len(s) != len(isoDateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(isoDateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatISODate renders a date as YYYY-MM-DD, or "" for the zero value.
func FormatISODate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoDateLayout)
}

// AddDays steps a date by n calendar days. Using AddDate keeps the result
// aligned to wall-clock midnight across DST transitions.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// AlignToWeekStart returns the Monday on or before t (ISO week, Monday-first).
func AlignToWeekStart(t time.Time) time.Time {
	delta := (int(t.Weekday()) + 6) % 7
	return AddDays(t, -delta)
}

// FindNextWeekday returns the smallest date >= from whose weekday matches
// target. A zero-day delta is allowed: if from already falls on target, from
// is returned unchanged.
func FindNextWeekday(from time.Time, target time.Weekday) time.Time {
	delta := (int(target) - int(from.Weekday()) + 7) % 7
	return AddDays(from, delta)
}

// FindNthWeekdayOfMonth resolves the nth (1-4) occurrence of a weekday within
// the month containing anchor. ok=false when that month has no nth occurrence
// (a fifth week that does not exist) or when nth is out of range.
func FindNthWeekdayOfMonth(anchor time.Time, target time.Weekday, nth int) (time.Time, bool) {
	if nth < 1 || nth > 4 {
		return time.Time{}, false
	}
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	candidate := AddDays(FindNextWeekday(first, target), (nth-1)*7)
	if candidate.Month() != first.Month() {
		return time.Time{}, false
	}
	return candidate, true
}

// FindLastWeekdayOfMonth resolves the last occurrence of a weekday within the
// month containing anchor. Unlike the nth variant this always succeeds: every
// month contains at least four of each weekday.
func FindLastWeekdayOfMonth(anchor time.Time, target time.Weekday) time.Time {
	// Last day of the month: day 0 of the following month.
	last := time.Date(anchor.Year(), anchor.Month()+1, 0, 0, 0, 0, 0, anchor.Location())
	delta := (int(last.Weekday()) - int(target) + 7) % 7
	return AddDays(last, -delta)
}

// DaysBetween counts the calendar days from a to b (negative when b precedes
// a). Both dates are re-anchored in UTC so DST transitions cannot skew the
// count.
func DaysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

// ParseTimeToMinutes converts a strict 24h HH:MM string into minutes since
// midnight (0-1439). ok=false for anything malformed or out of range.
func ParseTimeToMinutes(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	// All four clock positions must be digits; Sscanf-style parsing would
	// let trailing garbage ("09:3a") slip through.
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// MinutesToTime renders minutes-since-midnight as HH:MM. Values outside
// 0-1439 wrap around the day, so callers can add offsets without clamping.
func MinutesToTime(m int) string {
	m %= 24 * 60
	if m < 0 {
		m += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
