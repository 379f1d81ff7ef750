// Package view projects an occurrence list into read-only calendar
// view-models. Projections are recomputed in full from the list and a pivot
// date on every call and are never mutated afterwards.
package view

import (
	"time"

	"occal/internal/datemath"
	"occal/internal/locale"
	"occal/internal/model"
)

// Day is one cell of a calendar grid, aggregating every occurrence sharing
// its ISO date.
type Day struct {
	Date           string             `json:"date"`
	IsCurrentMonth bool               `json:"isCurrentMonth"`
	IsToday        bool               `json:"isToday"`
	HasOccurrences bool               `json:"hasOccurrences"`
	IsSelected     bool               `json:"isSelected"`
	Occurrences    []model.Occurrence `json:"occurrences"`
	TimeSummary    string             `json:"timeSummary"`
	Status         model.Status       `json:"status,omitempty"`
}

// Month is a fixed 6x7 grid starting from the Monday on or before the 1st.
type Month struct {
	Label string `json:"label"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Days  []Day  `json:"days"` // always 42
}

// Quarter is four consecutive months starting at the pivot's month.
type Quarter struct {
	Months []Month `json:"months"`
}

// TimelineEntry positions one occurrence on the week's shared minute
// timeline.
type TimelineEntry struct {
	model.Occurrence
	StartMinutes int `json:"startMinutes"`
	EndMinutes   int `json:"endMinutes"`
}

// WeekDay is one column of the week view.
type WeekDay struct {
	Day
	Entries []TimelineEntry `json:"entries"`
}

// Week is the Monday-aligned 7-day view containing the pivot, with shared
// timeline bounds in minutes since midnight.
type Week struct {
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	TimelineStart int       `json:"timelineStart"`
	TimelineEnd   int       `json:"timelineEnd"`
	Days          []WeekDay `json:"days"` // always 7
}

// Week timeline tuning.
const (
	timelinePadding  = 30  // minutes either side of the widest span
	timelineMinSpan  = 120 // a week view never collapses below two hours
	defaultWeekStart = 8 * 60
	defaultWeekEnd   = 18 * 60
)

// Projector derives calendar view-models. Now is injectable so "today"
// highlighting is testable; nil means time.Now.
type Projector struct {
	Locale *locale.Locale
	Now    func() time.Time
}

func (p Projector) locale() *locale.Locale {
	if p.Locale != nil {
		return p.Locale
	}
	return locale.Resolve("")
}

func (p Projector) today() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return datemath.FormatISODate(now())
}

func (p Projector) day(date time.Time, byDate map[string][]model.Occurrence, today, selectedID string, currentMonth time.Month) Day {
	iso := datemath.FormatISODate(date)
	occs := model.SortByDate(byDate[iso])

	d := Day{
		Date:           iso,
		IsCurrentMonth: date.Month() == currentMonth,
		IsToday:        iso == today,
		HasOccurrences: len(occs) > 0,
		Occurrences:    occs,
		Status:         model.DayStatus(occs),
	}
	for _, occ := range occs {
		if selectedID != "" && occ.ID == selectedID {
			d.IsSelected = true
			break
		}
	}
	d.TimeSummary = p.daySummary(occs)
	return d
}

// daySummary is the widest start-end span covering the day, or the first
// occurrence's raw times when no occurrence has parseable minutes.
func (p Projector) daySummary(occs []model.Occurrence) string {
	if len(occs) == 0 {
		return ""
	}
	if s, e, ok := model.DaySpan(occs); ok {
		return p.locale().TimeRange(datemath.MinutesToTime(s), datemath.MinutesToTime(e))
	}
	return p.locale().TimeRange(occs[0].StartTime, occs[0].EndTime)
}

// MonthOverview projects the month containing pivot.
func (p Projector) MonthOverview(occs []model.Occurrence, pivot time.Time, selectedID string) Month {
	byDate := model.GroupByDate(occs)
	today := p.today()

	first := time.Date(pivot.Year(), pivot.Month(), 1, 0, 0, 0, 0, pivot.Location())
	gridStart := datemath.AlignToWeekStart(first)

	m := Month{
		Label: p.locale().MonthYear(first),
		Year:  first.Year(),
		Month: int(first.Month()),
		Days:  make([]Day, 0, 42),
	}
	for i := 0; i < 42; i++ {
		date := datemath.AddDays(gridStart, i)
		m.Days = append(m.Days, p.day(date, byDate, today, selectedID, first.Month()))
	}
	return m
}

// QuarterOverview projects four consecutive months starting at the pivot's.
func (p Projector) QuarterOverview(occs []model.Occurrence, pivot time.Time, selectedID string) Quarter {
	q := Quarter{Months: make([]Month, 0, 4)}
	for i := 0; i < 4; i++ {
		monthPivot := time.Date(pivot.Year(), pivot.Month()+time.Month(i), 1, 0, 0, 0, 0, pivot.Location())
		q.Months = append(q.Months, p.MonthOverview(occs, monthPivot, selectedID))
	}
	return q
}

// WeekOverview projects the Monday-aligned week containing pivot onto a
// shared minute timeline.
func (p Projector) WeekOverview(occs []model.Occurrence, pivot time.Time, selectedID string) Week {
	byDate := model.GroupByDate(occs)
	today := p.today()

	weekStart := datemath.AlignToWeekStart(pivot)
	weekDates := make([]time.Time, 7)
	var weekOccs []model.Occurrence
	for i := range weekDates {
		weekDates[i] = datemath.AddDays(weekStart, i)
		weekOccs = append(weekOccs, byDate[datemath.FormatISODate(weekDates[i])]...)
	}

	lo, hi := timelineBounds(weekOccs)

	w := Week{
		StartDate:     datemath.FormatISODate(weekDates[0]),
		EndDate:       datemath.FormatISODate(weekDates[6]),
		TimelineStart: lo,
		TimelineEnd:   hi,
		Days:          make([]WeekDay, 0, 7),
	}
	for _, date := range weekDates {
		day := p.day(date, byDate, today, selectedID, pivot.Month())
		day.IsCurrentMonth = true // the week view has no out-of-month dimming
		wd := WeekDay{Day: day}
		for _, occ := range day.Occurrences {
			wd.Entries = append(wd.Entries, timelineEntry(occ, lo, hi))
		}
		w.Days = append(w.Days, wd)
	}
	return w
}

// timelineBounds derives the [min,max] minute window from the widest
// occurrence span across the week, padded by 30 minutes, rounded to the hour
// and held to at least a two-hour span.
func timelineBounds(occs []model.Occurrence) (lo, hi int) {
	s, e, ok := model.DaySpan(occs)
	if !ok {
		return defaultWeekStart, defaultWeekEnd
	}

	lo = s - timelinePadding
	hi = e + timelinePadding
	lo = (lo / 60) * 60
	if hi%60 != 0 {
		hi = (hi/60 + 1) * 60
	}
	if lo < 0 {
		lo = 0
	}
	if hi > 24*60 {
		hi = 24 * 60
	}
	if hi-lo < timelineMinSpan {
		hi = lo + timelineMinSpan
	}
	return lo, hi
}

func timelineEntry(occ model.Occurrence, lo, hi int) TimelineEntry {
	s, sok := datemath.ParseTimeToMinutes(occ.StartTime)
	e, eok := datemath.ParseTimeToMinutes(occ.EndTime)
	if !sok {
		s = lo
	}
	if !eok {
		e = s
	}
	if s < lo {
		s = lo
	}
	if e > hi {
		e = hi
	}
	if e < s {
		e = s
	}
	return TimelineEntry{Occurrence: occ, StartMinutes: s, EndMinutes: e}
}
