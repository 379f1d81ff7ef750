// Package export renders the occurrence list as an iCalendar feed and
// derives a best-effort RRULE string from weekly/monthly plans. This is a
// convenience surface for subscribing calendars, not a compliance layer:
// occurrences are emitted as individual floating local events.
package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"occal/internal/datemath"
	"occal/internal/model"
	"occal/internal/plan"
)

const localDateTimeLayout = "20060102T150405"

// Calendar serializes occurrences into an ICS payload. The event name is
// used as the SUMMARY of every occurrence; a cancelled occurrence carries its
// reason as DESCRIPTION. When the plan derives to an RRULE it is attached to
// the calendar as a comment-level hint on the first event.
func Calendar(occs []model.Occurrence, p *plan.Plan, eventName string) (string, error) {
	if eventName == "" {
		eventName = "Scheduled session"
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//occal//occurrence feed//EN")

	now := time.Now()
	ruleText := ""
	if p != nil {
		if r, ok := RRule(*p); ok {
			ruleText = r
		}
	}

	for i, occ := range model.SortByDate(occs) {
		date, ok := datemath.ParseISODate(occ.Date)
		if !ok {
			continue
		}
		start := withClock(date, occ.StartTime, 0)
		end := withClock(date, occ.EndTime, 60)

		ev := cal.AddEvent(occ.ID)
		ev.SetDtStampTime(now)
		ev.SetProperty(ics.ComponentPropertyDtStart, start.Format(localDateTimeLayout))
		ev.SetProperty(ics.ComponentPropertyDtEnd, end.Format(localDateTimeLayout))
		ev.SetSummary(eventName)
		ev.SetStatus(icsStatus(occ.Status))
		if occ.Status == model.StatusCancelled && occ.Reason != "" {
			ev.SetDescription(occ.Reason)
		}
		if i == 0 && ruleText != "" {
			ev.SetProperty(ics.ComponentPropertyRrule, ruleText)
		}
	}

	return cal.Serialize(), nil
}

func icsStatus(s model.Status) ics.ObjectStatus {
	switch s {
	case model.StatusConfirmed:
		return ics.ObjectStatusConfirmed
	case model.StatusCancelled:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatusTentative
	}
}

// withClock anchors an HH:MM string on a date; fallbackOffset minutes apply
// when the clock is unparseable.
func withClock(date time.Time, clock string, fallbackOffset int) time.Time {
	m, ok := datemath.ParseTimeToMinutes(clock)
	if !ok {
		m = fallbackOffset
	}
	return date.Add(time.Duration(m) * time.Minute)
}

var rruleWeekdays = map[model.Weekday]rrule.Weekday{
	model.Monday:    rrule.MO,
	model.Tuesday:   rrule.TU,
	model.Wednesday: rrule.WE,
	model.Thursday:  rrule.TH,
	model.Friday:    rrule.FR,
	model.Saturday:  rrule.SA,
	model.Sunday:    rrule.SU,
}

// RRule derives an RRULE string for weekly and monthly plans. Range and
// custom plans have no rule form; per-day overrides are not representable
// and are simply ignored here.
func RRule(p plan.Plan) (string, bool) {
	opt := rrule.ROption{}

	switch rule := p.Rule.(type) {
	case plan.Weekly:
		if len(rule.Days) == 0 {
			return "", false
		}
		opt.Freq = rrule.WEEKLY
		if rule.Frequency == plan.EveryTwoWeeks {
			opt.Interval = 2
		}
		for _, day := range rule.Days {
			wd, ok := rruleWeekdays[day]
			if !ok {
				return "", false
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	case plan.Monthly:
		wd, ok := rruleWeekdays[rule.Weekday]
		if !ok {
			return "", false
		}
		opt.Freq = rrule.MONTHLY
		if nth, counted := rule.Ordinal.Nth(); counted {
			opt.Byweekday = []rrule.Weekday{wd.Nth(nth)}
		} else {
			opt.Byweekday = []rrule.Weekday{wd.Nth(-1)}
		}
	default:
		return "", false
	}

	if start, ok := datemath.ParseISODate(p.StartDate); ok {
		opt.Dtstart = start
	}
	if until, ok := datemath.ParseISODate(p.EffectiveEndDate()); ok {
		opt.Until = until
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return "", false
	}
	return r.String(), true
}

// FeedFilename is the suggested download name for the ICS feed.
func FeedFilename(eventName string) string {
	if eventName == "" {
		return "occurrences.ics"
	}
	return fmt.Sprintf("%s.ics", eventName)
}
