// Package plan models the recurrence rule a user edits: a GeneratorPlan with
// one of four modes. The mode-specific fields live on a tagged Rule variant so
// invalid combinations (weekly days on a monthly plan, ordinals on a range
// plan) cannot be represented. The flat, mode-keyed shape only exists at the
// storage edge, see serialize.go.
package plan

import (
	"occal/internal/datemath"
	"occal/internal/model"
)

// Mode identifies the recurrence rule variant.
type Mode string

const (
	ModeWeekly  Mode = "weekly"
	ModeMonthly Mode = "monthly"
	ModeRange   Mode = "range"
	ModeCustom  Mode = "custom"
)

// Frequency is the weekly stepping interval.
type Frequency string

const (
	EveryWeek     Frequency = "every_week"
	EveryTwoWeeks Frequency = "every_two_weeks"
)

// Days returns the day step of one weekly iteration.
func (f Frequency) Days() int {
	if f == EveryTwoWeeks {
		return 14
	}
	return 7
}

// Ordinal selects which occurrence of a weekday within a month.
type Ordinal string

const (
	OrdinalFirst  Ordinal = "first"
	OrdinalSecond Ordinal = "second"
	OrdinalThird  Ordinal = "third"
	OrdinalFourth Ordinal = "fourth"
	OrdinalLast   Ordinal = "last"
)

// Nth returns the 1-4 position for counted ordinals; last=false only for
// OrdinalLast, which resolves by walking back from the month end.
func (o Ordinal) Nth() (nth int, counted bool) {
	switch o {
	case OrdinalFirst:
		return 1, true
	case OrdinalSecond:
		return 2, true
	case OrdinalThird:
		return 3, true
	case OrdinalFourth:
		return 4, true
	default:
		return 0, false
	}
}

// Override is a per-weekday time override on a weekly rule. Either field may
// be empty, in which case the plan's global time applies.
type Override struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Rule is the tagged recurrence variant of a plan.
type Rule interface {
	Mode() Mode
}

// Weekly repeats on a set of weekdays every one or two weeks.
type Weekly struct {
	Frequency Frequency
	Days      []model.Weekday
	Overrides map[model.Weekday]Override
}

func (Weekly) Mode() Mode { return ModeWeekly }

// HasDay reports whether the weekday is selected.
func (w Weekly) HasDay(d model.Weekday) bool {
	for _, day := range w.Days {
		if day == d {
			return true
		}
	}
	return false
}

// EffectiveTimes resolves the time window for one weekday: the per-day
// override wins over the global window field by field.
func (w Weekly) EffectiveTimes(d model.Weekday, globalStart, globalEnd string) (start, end string) {
	start, end = globalStart, globalEnd
	if ov, ok := w.Overrides[d]; ok {
		if ov.Start != "" {
			start = ov.Start
		}
		if ov.End != "" {
			end = ov.End
		}
	}
	return start, end
}

// Monthly repeats on the nth (or last) weekday of every month.
type Monthly struct {
	Ordinal Ordinal
	Weekday model.Weekday
}

func (Monthly) Mode() Mode { return ModeMonthly }

// Range fills every calendar day between the plan's start and end dates.
type Range struct{}

func (Range) Mode() Mode { return ModeRange }

// Custom is a plan without a generating rule; occurrences are edited by hand.
type Custom struct{}

func (Custom) Mode() Mode { return ModeCustom }

// Plan is a recurrence rule plus the fields shared by every mode.
type Plan struct {
	StartDate string // YYYY-MM-DD, "" when unset
	EndDate   string // "" means open-ended, bounded by safeguard caps
	StartTime string // HH:MM, "" when unset
	EndTime   string
	// ExplicitStart records whether the start date was user-chosen rather
	// than defaulted; preserved for the storage shape.
	ExplicitStart bool
	Rule          Rule
}

// EffectiveEndDate returns the end date, silently discarding one that is
// malformed or earlier than the start date (treated as unset).
func (p Plan) EffectiveEndDate() string {
	end, ok := datemath.ParseISODate(p.EndDate)
	if !ok {
		return ""
	}
	if start, ok := datemath.ParseISODate(p.StartDate); ok && end.Before(start) {
		return ""
	}
	return p.EndDate
}
