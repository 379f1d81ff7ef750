// Package recur turns a recurrence plan into a bounded list of concrete
// occurrences. Generation never fails: an incomplete plan yields an empty
// result, and hard safeguard caps bound every mode so an open-ended rule can
// never run away.
package recur

import (
	"time"

	"occal/internal/datemath"
	"occal/internal/log"
	"occal/internal/model"
	"occal/internal/plan"
)

// Safeguard caps. These are deliberate bounds against unterminated
// recurrence, not business limits.
const (
	weeklyCapOpenEnded = 8   // iterations per weekday without an end date
	weeklyCapBounded   = 208 // ~4 years of weekly steps
	monthlyCapOpen     = 12
	monthlyCapBounded  = 120
	rangeCapOpen       = 31
	rangeCapBounded    = 366
)

// Result is the outcome of one generation run.
type Result struct {
	Additions []model.Occurrence
	// Truncated reports that a bounded plan hit a safeguard cap before its
	// end date was reached. Open-ended plans are bounded by design and do
	// not set it.
	Truncated bool
}

// Generate produces new occurrence candidates for the given plan. The ids
// generator supplies the uniqueness suffix for each addition, so two runs
// against the same plan do not collide.
func Generate(p plan.Plan, ids model.IDGenerator) Result {
	if ids == nil {
		ids = model.NewIDGenerator()
	}

	start, ok := datemath.ParseISODate(p.StartDate)
	if !ok {
		return Result{}
	}

	var end time.Time
	hasEnd := false
	if e, ok := datemath.ParseISODate(p.EffectiveEndDate()); ok {
		end, hasEnd = e, true
	}

	var res Result
	switch rule := p.Rule.(type) {
	case plan.Weekly:
		res = generateWeekly(p, rule, start, end, hasEnd, ids)
	case plan.Monthly:
		res = generateMonthly(p, rule, start, end, hasEnd, ids)
	case plan.Range:
		res = generateRange(p, start, end, hasEnd, ids)
	default:
		return Result{}
	}

	// Final guard: re-filter against the plan window. Defends against
	// off-by-one slips in the per-mode stepping above.
	res.Additions = filterWindow(res.Additions, start, end, hasEnd)
	res.Additions = model.SortByDate(res.Additions)

	if res.Truncated {
		log.Info("recurrence generation truncated by safeguard cap",
			"mode", string(p.Rule.Mode()),
			"start", p.StartDate,
			"end", p.EndDate,
			"additions", len(res.Additions),
		)
	}
	return res
}

func generateWeekly(p plan.Plan, rule plan.Weekly, start, end time.Time, hasEnd bool, ids model.IDGenerator) Result {
	if len(rule.Days) == 0 {
		return Result{}
	}

	limit := weeklyCapOpenEnded
	if hasEnd {
		limit = weeklyCapBounded
	}
	step := rule.Frequency.Days()

	var res Result
	for _, day := range rule.Days {
		wd, ok := day.Time()
		if !ok {
			continue
		}
		startTime, endTime := rule.EffectiveTimes(day, p.StartTime, p.EndTime)
		if startTime == "" && endTime == "" {
			// No effective window for this weekday at all.
			continue
		}

		current := datemath.FindNextWeekday(start, wd)
		for i := 0; i < limit; i++ {
			if hasEnd && current.After(end) {
				break
			}
			res.Additions = append(res.Additions, newOccurrence(current, startTime, endTime, ids))
			current = datemath.AddDays(current, step)
			if i == limit-1 && hasEnd && !current.After(end) {
				res.Truncated = true
			}
		}
	}
	return res
}

func generateMonthly(p plan.Plan, rule plan.Monthly, start, end time.Time, hasEnd bool, ids model.IDGenerator) Result {
	if p.StartTime == "" && p.EndTime == "" {
		return Result{}
	}
	wd, ok := rule.Weekday.Time()
	if !ok {
		return Result{}
	}

	limit := monthlyCapOpen
	if hasEnd {
		limit = monthlyCapBounded
	}

	var res Result
	anchor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for i := 0; i < limit; i++ {
		candidate, resolved := resolveMonthly(anchor, wd, rule.Ordinal)
		anchor = anchor.AddDate(0, 1, 0)

		if !resolved {
			// This month has no nth occurrence of the weekday; skip it.
			continue
		}
		if candidate.Before(start) {
			continue
		}
		if hasEnd && candidate.After(end) {
			break
		}
		res.Additions = append(res.Additions, newOccurrence(candidate, p.StartTime, p.EndTime, ids))

		if i == limit-1 && hasEnd && !anchor.After(end) {
			res.Truncated = true
		}
	}
	return res
}

func resolveMonthly(anchor time.Time, wd time.Weekday, ordinal plan.Ordinal) (time.Time, bool) {
	if nth, counted := ordinal.Nth(); counted {
		return datemath.FindNthWeekdayOfMonth(anchor, wd, nth)
	}
	return datemath.FindLastWeekdayOfMonth(anchor, wd), true
}

func generateRange(p plan.Plan, start, end time.Time, hasEnd bool, ids model.IDGenerator) Result {
	// Range mode fills every day and needs the full global window.
	if p.StartTime == "" || p.EndTime == "" {
		return Result{}
	}

	limit := rangeCapOpen
	if hasEnd {
		limit = rangeCapBounded
	}

	var res Result
	current := start
	for i := 0; i < limit; i++ {
		if hasEnd && current.After(end) {
			break
		}
		res.Additions = append(res.Additions, newOccurrence(current, p.StartTime, p.EndTime, ids))
		current = datemath.AddDays(current, 1)
		if i == limit-1 && hasEnd && !current.After(end) {
			res.Truncated = true
		}
	}
	return res
}

func newOccurrence(date time.Time, startTime, endTime string, ids model.IDGenerator) model.Occurrence {
	iso := datemath.FormatISODate(date)
	return model.Occurrence{
		ID:        model.OccurrenceID(iso, startTime, ids()),
		Date:      iso,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    model.StatusPlanned,
	}
}

func filterWindow(occs []model.Occurrence, start, end time.Time, hasEnd bool) []model.Occurrence {
	kept := occs[:0]
	for _, occ := range occs {
		d, ok := datemath.ParseISODate(occ.Date)
		if !ok || d.Before(start) {
			continue
		}
		if hasEnd && d.After(end) {
			continue
		}
		kept = append(kept, occ)
	}
	return kept
}
