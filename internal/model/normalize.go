package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"occal/internal/datemath"
)

// RawOccurrence is the tolerant wire shape for occurrences coming from
// upstream storage. Two layouts are accepted: split fields (date, startTime,
// endTime) and combined local datetimes (start, end).
type RawOccurrence struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// datetimeLayouts are the combined datetime shapes accepted from storage.
// Offsets, when present, are ignored: the wall-clock fields are what counts.
var datetimeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func splitDatetime(s string) (date, clock string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	for _, layout := range datetimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return t.Format("2006-01-02"), t.Format("15:04"), true
	}
	return "", "", false
}

// Normalize converts a raw storage occurrence into an Occurrence, ok=false
// when no usable date can be recovered. Rules:
//
//   - split fields win when a date is present; otherwise combined start/end
//     datetimes are split into date + HH:MM using wall-clock fields
//   - a missing end time defaults to start + 60 minutes
//   - a missing or unrecognized status defaults to planned
//   - a missing ID gets a fresh one so every stored row stays addressable
func (r RawOccurrence) Normalize(ids IDGenerator) (Occurrence, bool) {
	occ := Occurrence{
		ID:        strings.TrimSpace(r.ID),
		Date:      strings.TrimSpace(r.Date),
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
		Status:    ParseStatus(r.Status),
		Reason:    r.Reason,
	}

	if occ.Date == "" {
		date, clock, ok := splitDatetime(r.Start)
		if !ok {
			return Occurrence{}, false
		}
		occ.Date = date
		if occ.StartTime == "" {
			occ.StartTime = clock
		}
		if occ.EndTime == "" {
			if _, endClock, ok := splitDatetime(r.End); ok {
				occ.EndTime = endClock
			}
		}
	}

	if _, ok := datemath.ParseISODate(occ.Date); !ok {
		return Occurrence{}, false
	}

	if occ.EndTime == "" && occ.StartTime != "" {
		if start, ok := datemath.ParseTimeToMinutes(occ.StartTime); ok {
			occ.EndTime = datemath.MinutesToTime(start + 60)
		}
	}

	if occ.ID == "" {
		occ.ID = OccurrenceID(occ.Date, occ.StartTime, ids())
	}
	return occ, true
}

// NormalizeAll converts a raw list, dropping entries without a usable date.
func NormalizeAll(raw []RawOccurrence, ids IDGenerator) []Occurrence {
	occs := make([]Occurrence, 0, len(raw))
	for _, r := range raw {
		if occ, ok := r.Normalize(ids); ok {
			occs = append(occs, occ)
		}
	}
	return occs
}

// IDGenerator produces the uniqueness suffix for occurrence IDs. Generation
// batches against a stale list-length seed could collide, so the suffix is
// independent of list state.
type IDGenerator func() string

// NewIDGenerator returns the default random-suffix generator.
func NewIDGenerator() IDGenerator {
	return func() string {
		return uuid.NewString()[:8]
	}
}

// OccurrenceID derives a stable occurrence ID from its creation-time date,
// start time and a uniqueness suffix. IDs are never regenerated after that.
func OccurrenceID(date, startTime, suffix string) string {
	digits := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return "occ-" + digits(date) + digits(startTime) + "-" + suffix
}
