// Package model holds the central value types of the scheduling engine:
// occurrences, their statuses, and the weekday keys shared by recurrence
// rules and calendar projections.
package model

import (
	"sort"
	"strings"
	"time"

	"occal/internal/datemath"
)

// Status classifies a single occurrence.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a raw status string to a Status, defaulting to planned for
// anything unrecognized.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusConfirmed:
		return StatusConfirmed
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusPlanned
	}
}

// Priority orders statuses for day aggregation: cancelled > confirmed >
// planned. Unknown statuses rank below everything.
func (s Status) Priority() int {
	switch s {
	case StatusCancelled:
		return 3
	case StatusConfirmed:
		return 2
	case StatusPlanned:
		return 1
	default:
		return 0
	}
}

// Weekday is the compact weekday key used in plans ("mon".."sun").
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

// WeekdayOrder is the canonical Monday-first ordering.
var WeekdayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Index returns the Monday-first position of the weekday (0-6), or -1 for an
// unknown key.
func (w Weekday) Index() int {
	for i, d := range WeekdayOrder {
		if d == w {
			return i
		}
	}
	return -1
}

// Time converts the key to a time.Weekday. ok=false for unknown keys.
func (w Weekday) Time() (time.Weekday, bool) {
	idx := w.Index()
	if idx < 0 {
		return 0, false
	}
	// Monday-first index 0 maps to time.Monday (1).
	return time.Weekday((idx + 1) % 7), true
}

// WeekdayOf returns the weekday key of a date.
func WeekdayOf(t time.Time) Weekday {
	return WeekdayOrder[(int(t.Weekday())+6)%7]
}

// ParseWeekday maps a raw weekday key, ok=false when unknown.
func ParseWeekday(s string) (Weekday, bool) {
	w := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if w.Index() < 0 {
		return "", false
	}
	return w, true
}

// Occurrence is one concrete dated session. Occurrences are immutable value
// objects; an edit replaces the occurrence in the owning list by ID.
//
// EndTime is not guaranteed to be after StartTime: upstream editors can
// produce equal or backwards windows and every consumer tolerates that.
type Occurrence struct {
	ID        string `json:"id"`
	Date      string `json:"date"` // YYYY-MM-DD
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    Status `json:"status"`
	// Reason is free text, only meaningful when Status is cancelled.
	Reason string `json:"reason,omitempty"`
}

// GroupByDate buckets occurrences by their ISO date.
func GroupByDate(occs []Occurrence) map[string][]Occurrence {
	byDate := make(map[string][]Occurrence, len(occs))
	for _, occ := range occs {
		byDate[occ.Date] = append(byDate[occ.Date], occ)
	}
	return byDate
}

// DayStatus collapses the statuses of one day's occurrences into the
// highest-priority one. An empty list yields "".
func DayStatus(occs []Occurrence) Status {
	var best Status
	for _, occ := range occs {
		if occ.Status.Priority() > best.Priority() {
			best = occ.Status
		}
	}
	return best
}

// DaySpan computes the widest start-end minute span covering all occurrences
// of one day. ok=false when no occurrence has parseable times; callers then
// fall back to raw time strings.
func DaySpan(occs []Occurrence) (startMin, endMin int, ok bool) {
	for _, occ := range occs {
		s, sok := datemath.ParseTimeToMinutes(occ.StartTime)
		e, eok := datemath.ParseTimeToMinutes(occ.EndTime)
		if !sok && !eok {
			continue
		}
		if !sok {
			s = e
		}
		if !eok {
			e = s
		}
		if !ok {
			startMin, endMin, ok = s, e, true
			continue
		}
		if s < startMin {
			startMin = s
		}
		if e > endMin {
			endMin = e
		}
	}
	return startMin, endMin, ok
}

// SortByDate orders occurrences chronologically (date, then start time, then
// ID for stability) without mutating the input.
func SortByDate(occs []Occurrence) []Occurrence {
	sorted := make([]Occurrence, len(occs))
	copy(sorted, occs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
