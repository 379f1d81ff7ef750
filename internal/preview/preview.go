// Package preview derives the human-readable schedule summary shown next to
// the occurrence editor. An ordered set of detectors is tried until one
// produces text; every detector tolerates empty or partial input by returning
// "" instead of failing.
package preview

import (
	"strings"

	"occal/internal/datemath"
	"occal/internal/locale"
	"occal/internal/model"
	"occal/internal/plan"
)

// listLimit is how many occurrences detector 4d spells out before eliding.
const listLimit = 3

// Composer renders schedule summaries in one locale.
type Composer struct {
	Locale *locale.Locale
}

func New(l *locale.Locale) Composer {
	if l == nil {
		l = locale.Resolve("")
	}
	return Composer{Locale: l}
}

// Compose returns the first non-empty summary: the plan-based detectors when
// a plan is supplied, then the occurrence-derived fallback. The additions
// list stands in when the persisted list is empty (a bulk generation that has
// not settled yet).
func (c Composer) Compose(p *plan.Plan, persisted, additions []model.Occurrence) string {
	if p != nil {
		if s := c.FromPlan(*p); s != "" {
			return s
		}
	}
	occs := persisted
	if len(occs) == 0 {
		occs = additions
	}
	return c.FromOccurrences(occs)
}

// FromPlan renders a summary straight from the recurrence rule.
func (c Composer) FromPlan(p plan.Plan) string {
	switch rule := p.Rule.(type) {
	case plan.Range:
		return c.rangeSummary(p)
	case plan.Weekly:
		return c.weeklySummary(p, rule)
	case plan.Monthly:
		return c.Locale.MonthlyPattern(string(rule.Ordinal), rule.Weekday.Index(), p.StartTime, p.EndTime)
	default:
		return ""
	}
}

func (c Composer) rangeSummary(p plan.Plan) string {
	from, ok := datemath.ParseISODate(p.StartDate)
	if !ok {
		return ""
	}
	to, ok := datemath.ParseISODate(p.EffectiveEndDate())
	if !ok {
		return ""
	}
	return c.Locale.DateRangeWithTimes(from, to, p.StartTime, p.EndTime)
}

func (c Composer) weeklySummary(p plan.Plan, rule plan.Weekly) string {
	var segments []string
	for _, day := range model.WeekdayOrder {
		if !rule.HasDay(day) {
			continue
		}
		start, end := rule.EffectiveTimes(day, p.StartTime, p.EndTime)
		times := c.Locale.TimeRange(start, end)
		if times == "" {
			continue
		}
		segments = append(segments, c.Locale.WeekdayName(day.Index())+" "+times)
	}
	if len(segments) == 0 {
		return ""
	}
	joined := strings.Join(segments, ", ")
	if rule.Frequency == plan.EveryTwoWeeks {
		return c.Locale.EveryTwoWeeks(joined)
	}
	return joined
}

// FromOccurrences derives a summary from an arbitrary occurrence set:
// a single dated line, a consecutive date range, weekly-style segments, or a
// truncated listing, in that order.
func (c Composer) FromOccurrences(occs []model.Occurrence) string {
	if len(occs) == 0 {
		return ""
	}
	sorted := model.SortByDate(occs)

	if len(sorted) == 1 {
		return c.singleLine(sorted[0])
	}
	if s := c.consecutiveRange(sorted); s != "" {
		return s
	}
	if s := c.weekdayGroups(sorted); s != "" {
		return s
	}
	return c.listing(sorted)
}

func (c Composer) singleLine(occ model.Occurrence) string {
	d, ok := datemath.ParseISODate(occ.Date)
	if !ok {
		return ""
	}
	line := c.Locale.LongDate(d)
	if times := c.Locale.TimeRange(occ.StartTime, occ.EndTime); times != "" {
		line += " · " + times
	}
	return line
}

// consecutiveRange detects strictly consecutive calendar dates and renders a
// date-only range. Same-day duplicates break strictness.
func (c Composer) consecutiveRange(sorted []model.Occurrence) string {
	first, ok := datemath.ParseISODate(sorted[0].Date)
	if !ok {
		return ""
	}
	prev := first
	for _, occ := range sorted[1:] {
		d, ok := datemath.ParseISODate(occ.Date)
		if !ok {
			return ""
		}
		if !d.Equal(datemath.AddDays(prev, 1)) {
			return ""
		}
		prev = d
	}
	return c.Locale.DateRangeWithTimes(first, prev, "", "")
}

// weekdayGroups renders weekly-style segments when every weekday bucket keeps
// one consistent time window and steps in whole weeks.
func (c Composer) weekdayGroups(sorted []model.Occurrence) string {
	type group struct {
		start, end string
		dates      []string
	}
	groups := map[model.Weekday]*group{}

	for _, occ := range sorted {
		d, ok := datemath.ParseISODate(occ.Date)
		if !ok {
			return ""
		}
		day := model.WeekdayOf(d)
		g, seen := groups[day]
		if !seen {
			groups[day] = &group{start: occ.StartTime, end: occ.EndTime, dates: []string{occ.Date}}
			continue
		}
		if g.start != occ.StartTime || g.end != occ.EndTime {
			return ""
		}
		g.dates = append(g.dates, occ.Date)
	}

	var segments []string
	for _, day := range model.WeekdayOrder {
		g, ok := groups[day]
		if !ok {
			continue
		}
		base, _ := datemath.ParseISODate(g.dates[0])
		for _, date := range g.dates[1:] {
			d, _ := datemath.ParseISODate(date)
			if datemath.DaysBetween(base, d)%7 != 0 {
				return ""
			}
		}
		times := c.Locale.TimeRange(g.start, g.end)
		if times == "" {
			return ""
		}
		segments = append(segments, c.Locale.WeekdayName(day.Index())+" "+times)
	}
	return strings.Join(segments, ", ")
}

func (c Composer) listing(sorted []model.Occurrence) string {
	var parts []string
	for _, occ := range sorted {
		if len(parts) == listLimit {
			break
		}
		d, ok := datemath.ParseISODate(occ.Date)
		if !ok {
			continue
		}
		part := c.Locale.MediumDate(d)
		if times := c.Locale.TimeRange(occ.StartTime, occ.EndTime); times != "" {
			part += " · " + times
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	out := strings.Join(parts, ", ")
	if len(sorted) > listLimit {
		out += " " + c.Locale.More()
	}
	return out
}
