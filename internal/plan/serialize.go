package plan

import (
	"occal/internal/datemath"
	"occal/internal/model"
)

// SerializedVersion tags the storage-stable plan shape.
const SerializedVersion = "occurrence-editor"

// Serialized is the flat, mode-keyed plan shape used for persistence. It is
// deliberately permissive: every field is a plain string/bool so documents
// written by older editors still decode, and Normalize repairs the rest.
type Serialized struct {
	Version        string              `json:"version"`
	Mode           string              `json:"mode"`
	Frequency      string              `json:"frequency"`
	StartDate      string              `json:"startDate"`
	EndDate        string              `json:"endDate"`
	StartTime      string              `json:"startTime"`
	EndTime        string              `json:"endTime"`
	Days           map[string]bool     `json:"days"`
	Overrides      map[string]Override `json:"overrides"`
	MonthlyOrdinal string              `json:"monthlyOrdinal"`
	MonthlyWeekday string              `json:"monthlyWeekday"`
	ExplicitStart  bool                `json:"explicitStart"`
}

func validTime(s string) string {
	if _, ok := datemath.ParseTimeToMinutes(s); !ok {
		return ""
	}
	return s
}

func validDate(s string) string {
	if _, ok := datemath.ParseISODate(s); !ok {
		return ""
	}
	return s
}

// Normalize returns a repaired copy: unknown enum values fall
// back to their documented defaults, malformed dates and times are dropped to
// "", unknown weekday keys are pruned, and overrides carrying neither start
// nor end are removed. Normalize is idempotent.
func (s Serialized) Normalize() Serialized {
	out := s
	out.Version = SerializedVersion

	switch Mode(s.Mode) {
	case ModeWeekly, ModeMonthly, ModeRange, ModeCustom:
	default:
		out.Mode = string(ModeWeekly)
	}

	switch Frequency(s.Frequency) {
	case EveryWeek, EveryTwoWeeks:
	default:
		out.Frequency = string(EveryWeek)
	}

	out.StartDate = validDate(s.StartDate)
	out.EndDate = validDate(s.EndDate)
	out.StartTime = validTime(s.StartTime)
	out.EndTime = validTime(s.EndTime)

	out.Days = make(map[string]bool)
	for key, selected := range s.Days {
		if day, ok := model.ParseWeekday(key); ok && selected {
			out.Days[string(day)] = true
		}
	}

	out.Overrides = make(map[string]Override)
	for key, ov := range s.Overrides {
		day, ok := model.ParseWeekday(key)
		if !ok {
			continue
		}
		cleaned := Override{Start: validTime(ov.Start), End: validTime(ov.End)}
		if cleaned.Start == "" && cleaned.End == "" {
			continue
		}
		out.Overrides[string(day)] = cleaned
	}

	if day, ok := model.ParseWeekday(s.MonthlyWeekday); ok {
		out.MonthlyWeekday = string(day)
	} else {
		out.MonthlyWeekday = string(model.Monday)
	}
	switch Ordinal(s.MonthlyOrdinal) {
	case OrdinalFirst, OrdinalSecond, OrdinalThird, OrdinalFourth, OrdinalLast:
	default:
		out.MonthlyOrdinal = string(OrdinalFirst)
	}

	return out
}

// Serialize flattens a Plan into the storage shape. The result is already
// normalized.
func Serialize(p Plan) Serialized {
	s := Serialized{
		Version:        SerializedVersion,
		Mode:           string(ModeCustom),
		Frequency:      string(EveryWeek),
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		StartTime:      p.StartTime,
		EndTime:        p.EndTime,
		Days:           map[string]bool{},
		Overrides:      map[string]Override{},
		MonthlyOrdinal: string(OrdinalFirst),
		MonthlyWeekday: string(model.Monday),
		ExplicitStart:  p.ExplicitStart,
	}

	switch rule := p.Rule.(type) {
	case Weekly:
		s.Mode = string(ModeWeekly)
		s.Frequency = string(rule.Frequency)
		for _, day := range rule.Days {
			s.Days[string(day)] = true
		}
		for day, ov := range rule.Overrides {
			s.Overrides[string(day)] = ov
		}
	case Monthly:
		s.Mode = string(ModeMonthly)
		s.MonthlyOrdinal = string(rule.Ordinal)
		s.MonthlyWeekday = string(rule.Weekday)
	case Range:
		s.Mode = string(ModeRange)
	}

	return s.Normalize()
}

// FromSerialized builds the tagged Plan from a storage shape, normalizing
// first so downstream code never sees unknown enum values.
func FromSerialized(s Serialized) Plan {
	s = s.Normalize()

	p := Plan{
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		ExplicitStart: s.ExplicitStart,
	}

	switch Mode(s.Mode) {
	case ModeWeekly:
		rule := Weekly{
			Frequency: Frequency(s.Frequency),
			Overrides: make(map[model.Weekday]Override, len(s.Overrides)),
		}
		// Selected days in canonical Monday-first order.
		for _, day := range model.WeekdayOrder {
			if s.Days[string(day)] {
				rule.Days = append(rule.Days, day)
			}
		}
		for key, ov := range s.Overrides {
			rule.Overrides[model.Weekday(key)] = ov
		}
		p.Rule = rule
	case ModeMonthly:
		p.Rule = Monthly{
			Ordinal: Ordinal(s.MonthlyOrdinal),
			Weekday: model.Weekday(s.MonthlyWeekday),
		}
	case ModeRange:
		p.Rule = Range{}
	default:
		p.Rule = Custom{}
	}

	return p
}
