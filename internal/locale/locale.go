// Package locale bundles the labels and format templates used when rendering
// calendar views and schedule previews. Resolution is deliberately small: the
// service ships the locales its UI speaks and falls back to English for
// anything else.
package locale

import (
	"fmt"
	"strings"
	"time"

	"occal/internal/datemath"
)

// Locale carries display labels and formatting templates for one language.
type Locale struct {
	Tag string

	Months        [12]string
	Weekdays      [7]string // Monday-first, full names
	WeekdaysShort [7]string
	Ordinals      map[string]string // first..last

	// timeSep joins hours and minutes ("14:00" vs "14h00"); rangeSep joins
	// the two ends of a time range.
	timeSep  string
	rangeSep string

	// Sentence templates.
	rangeWithTimes string // from, to, times
	rangeDatesOnly string // from, to
	everyTwoWeeks  string
	monthly        string // ordinal, weekday
	more           string // ellipsis suffix for long listings
}

var english = &Locale{
	Tag: "en",
	Months: [12]string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	Weekdays:      [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	WeekdaysShort: [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	Ordinals: map[string]string{
		"first": "first", "second": "second", "third": "third", "fourth": "fourth", "last": "last",
	},
	timeSep:        ":",
	rangeSep:       " > ",
	rangeWithTimes: "From %s to %s at %s",
	rangeDatesOnly: "From %s to %s",
	everyTwoWeeks:  "Every two weeks: %s",
	monthly:        "Every %s %s of the month",
	more:           "…",
}

var french = &Locale{
	Tag: "fr",
	Months: [12]string{"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	Weekdays:      [7]string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"},
	WeekdaysShort: [7]string{"lun", "mar", "mer", "jeu", "ven", "sam", "dim"},
	Ordinals: map[string]string{
		"first": "premier", "second": "deuxième", "third": "troisième", "fourth": "quatrième", "last": "dernier",
	},
	timeSep:        "h",
	rangeSep:       " > ",
	rangeWithTimes: "Du %s au %s à %s",
	rangeDatesOnly: "Du %s au %s",
	everyTwoWeeks:  "Toutes les deux semaines : %s",
	monthly:        "Chaque %s %s du mois",
	more:           "…",
}

var locales = map[string]*Locale{
	"en": english,
	"fr": french,
}

// Resolve returns the locale for a tag ("en", "fr", "fr-FR"...), falling back
// to English.
func Resolve(tag string) *Locale {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if l, ok := locales[tag]; ok {
		return l
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		if l, ok := locales[tag[:i]]; ok {
			return l
		}
	}
	return english
}

// MonthYear renders the "March 2025" style month label.
func (l *Locale) MonthYear(t time.Time) string {
	return fmt.Sprintf("%s %d", l.Months[int(t.Month())-1], t.Year())
}

// LongDate renders a full date with its weekday, e.g. "Monday 10 March 2025".
func (l *Locale) LongDate(t time.Time) string {
	wd := l.Weekdays[(int(t.Weekday())+6)%7]
	return fmt.Sprintf("%s %d %s %d", wd, t.Day(), l.Months[int(t.Month())-1], t.Year())
}

// MediumDate renders a date without the weekday, e.g. "10 March 2025".
func (l *Locale) MediumDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), l.Months[int(t.Month())-1], t.Year())
}

// WeekdayName returns the full name for a Monday-first index (0-6); "" when
// out of range.
func (l *Locale) WeekdayName(idx int) string {
	if idx < 0 || idx >= len(l.Weekdays) {
		return ""
	}
	return l.Weekdays[idx]
}

// OrdinalLabel returns the localized label for an ordinal key, "" if unknown.
func (l *Locale) OrdinalLabel(key string) string {
	return l.Ordinals[key]
}

// Time formats an HH:MM string in the locale's clock style ("14h00" in
// French). Unparseable input is passed through unchanged.
func (l *Locale) Time(s string) string {
	m, ok := datemath.ParseTimeToMinutes(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d%s%02d", m/60, l.timeSep, m%60)
}

// TimeRange formats a start-end time pair, tolerating one empty side.
func (l *Locale) TimeRange(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return l.Time(start)
	case start == "":
		return l.Time(end)
	default:
		return l.Time(start) + l.rangeSep + l.Time(end)
	}
}

// DateRangeWithTimes renders "From X to Y at HH:MM > HH:MM"; without times it
// degrades to the dates-only form.
func (l *Locale) DateRangeWithTimes(from, to time.Time, start, end string) string {
	times := l.TimeRange(start, end)
	if times == "" {
		return fmt.Sprintf(l.rangeDatesOnly, l.MediumDate(from), l.MediumDate(to))
	}
	return fmt.Sprintf(l.rangeWithTimes, l.MediumDate(from), l.MediumDate(to), times)
}

// EveryTwoWeeks wraps a segment listing in the biweekly prefix.
func (l *Locale) EveryTwoWeeks(segments string) string {
	return fmt.Sprintf(l.everyTwoWeeks, segments)
}

// MonthlyPattern renders "Every second Tuesday of the month" plus an optional
// time range. Empty when either label is missing.
func (l *Locale) MonthlyPattern(ordinalKey string, weekdayIdx int, start, end string) string {
	ord := l.OrdinalLabel(ordinalKey)
	wd := l.WeekdayName(weekdayIdx)
	if ord == "" || wd == "" {
		return ""
	}
	out := fmt.Sprintf(l.monthly, ord, wd)
	if times := l.TimeRange(start, end); times != "" {
		out += " " + times
	}
	return out
}

// More is the suffix appended when a listing is cut short.
func (l *Locale) More() string {
	return l.more
}
