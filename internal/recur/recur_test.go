package recur

import (
	"fmt"
	"testing"

	"occal/internal/model"
	"occal/internal/plan"
)

func testIDs() model.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func weeklyPlan(days ...model.Weekday) plan.Plan {
	return plan.Plan{
		StartDate: "2025-03-10", // a Monday
		StartTime: "09:00",
		EndTime:   "10:00",
		Rule:      plan.Weekly{Frequency: plan.EveryWeek, Days: days},
	}
}

func TestGenerateWeekly(t *testing.T) {
	t.Run("open-ended plans yield at most 8 per weekday", func(t *testing.T) {
		res := Generate(weeklyPlan(model.Monday, model.Wednesday), testIDs())
		if len(res.Additions) != 16 {
			t.Fatalf("expected 16 occurrences, got %d", len(res.Additions))
		}
		if res.Truncated {
			t.Fatalf("open-ended cap is the designed bound, not a truncation")
		}
		perDay := map[string]int{}
		for _, occ := range res.Additions {
			perDay[occ.StartTime]++
			if occ.Status != model.StatusPlanned {
				t.Fatalf("generated occurrences must be planned, got %q", occ.Status)
			}
		}
	})

	t.Run("every two weeks steps by 14 days", func(t *testing.T) {
		p := weeklyPlan(model.Monday)
		p.EndDate = "2025-04-10"
		p.Rule = plan.Weekly{Frequency: plan.EveryTwoWeeks, Days: []model.Weekday{model.Monday}}
		res := Generate(p, testIDs())

		want := []string{"2025-03-10", "2025-03-24", "2025-04-07"}
		if len(res.Additions) != len(want) {
			t.Fatalf("expected %d occurrences, got %d", len(want), len(res.Additions))
		}
		for i, occ := range res.Additions {
			if occ.Date != want[i] {
				t.Fatalf("occurrence %d: got %s want %s", i, occ.Date, want[i])
			}
		}
	})

	t.Run("override wins field by field", func(t *testing.T) {
		p := weeklyPlan()
		p.Rule = plan.Weekly{
			Frequency: plan.EveryWeek,
			Days:      []model.Weekday{model.Monday},
			Overrides: map[model.Weekday]plan.Override{model.Monday: {Start: "08:00"}},
		}
		res := Generate(p, testIDs())
		if len(res.Additions) == 0 {
			t.Fatalf("expected occurrences")
		}
		for _, occ := range res.Additions {
			if occ.StartTime != "08:00" {
				t.Fatalf("override start lost: %q", occ.StartTime)
			}
			if occ.EndTime != "10:00" {
				t.Fatalf("plan default end lost: %q", occ.EndTime)
			}
		}
	})

	t.Run("day without any effective times is skipped", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-03-10",
			Rule: plan.Weekly{
				Frequency: plan.EveryWeek,
				Days:      []model.Weekday{model.Monday, model.Tuesday},
				Overrides: map[model.Weekday]plan.Override{model.Tuesday: {Start: "18:00"}},
			},
		}
		res := Generate(p, testIDs())
		for _, occ := range res.Additions {
			if occ.StartTime != "18:00" {
				t.Fatalf("only the overridden Tuesday should generate, got %+v", occ)
			}
		}
		if len(res.Additions) != 8 {
			t.Fatalf("expected 8 Tuesday occurrences, got %d", len(res.Additions))
		}
	})

	t.Run("incomplete plans yield nothing", func(t *testing.T) {
		missingStart := weeklyPlan(model.Monday)
		missingStart.StartDate = ""
		noDays := weeklyPlan()
		noTimes := plan.Plan{StartDate: "2025-03-10", Rule: plan.Weekly{Frequency: plan.EveryWeek, Days: []model.Weekday{model.Monday}}}

		for name, p := range map[string]plan.Plan{"missing start": missingStart, "no days": noDays, "no times": noTimes} {
			if res := Generate(p, testIDs()); len(res.Additions) != 0 {
				t.Fatalf("%s: expected empty additions, got %d", name, len(res.Additions))
			}
		}
	})

	t.Run("invalid end date treated as unset", func(t *testing.T) {
		p := weeklyPlan(model.Monday)
		p.EndDate = "2025-01-01" // before start
		res := Generate(p, testIDs())
		if len(res.Additions) != 8 {
			t.Fatalf("expected the open-ended cap of 8, got %d", len(res.Additions))
		}
	})

	t.Run("bounded cap reports truncation", func(t *testing.T) {
		p := weeklyPlan(model.Monday)
		p.EndDate = "2030-03-10" // five years: more Mondays than 208 steps cover
		res := Generate(p, testIDs())
		if len(res.Additions) != 208 {
			t.Fatalf("expected 208 occurrences, got %d", len(res.Additions))
		}
		if !res.Truncated {
			t.Fatalf("expected truncation flag")
		}
	})
}

func TestGenerateMonthly(t *testing.T) {
	t.Run("second monday of each month", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-01-01",
			EndDate:   "2025-04-30",
			StartTime: "19:00",
			EndTime:   "21:00",
			Rule:      plan.Monthly{Ordinal: plan.OrdinalSecond, Weekday: model.Monday},
		}
		res := Generate(p, testIDs())
		want := []string{"2025-01-13", "2025-02-10", "2025-03-10", "2025-04-14"}
		if len(res.Additions) != len(want) {
			t.Fatalf("expected %d occurrences, got %d: %+v", len(want), len(res.Additions), res.Additions)
		}
		for i, occ := range res.Additions {
			if occ.Date != want[i] {
				t.Fatalf("occurrence %d: got %s want %s", i, occ.Date, want[i])
			}
		}
	})

	t.Run("last weekday always resolves", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-01-01",
			EndDate:   "2025-12-31",
			StartTime: "10:00",
			EndTime:   "11:00",
			Rule:      plan.Monthly{Ordinal: plan.OrdinalLast, Weekday: model.Friday},
		}
		res := Generate(p, testIDs())
		if len(res.Additions) != 12 {
			t.Fatalf("expected one occurrence per month, got %d", len(res.Additions))
		}
	})

	t.Run("candidate before start date is skipped", func(t *testing.T) {
		// First Monday of March 2025 is the 3rd; start after it.
		p := plan.Plan{
			StartDate: "2025-03-15",
			StartTime: "10:00",
			EndTime:   "11:00",
			Rule:      plan.Monthly{Ordinal: plan.OrdinalFirst, Weekday: model.Monday},
		}
		res := Generate(p, testIDs())
		if len(res.Additions) == 0 || res.Additions[0].Date != "2025-04-07" {
			t.Fatalf("expected first occurrence 2025-04-07, got %+v", res.Additions)
		}
	})

	t.Run("open-ended cap is 12 months", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-01-01",
			StartTime: "10:00",
			EndTime:   "11:00",
			Rule:      plan.Monthly{Ordinal: plan.OrdinalFirst, Weekday: model.Monday},
		}
		res := Generate(p, testIDs())
		if len(res.Additions) != 12 {
			t.Fatalf("expected 12 occurrences, got %d", len(res.Additions))
		}
	})
}

func TestGenerateRange(t *testing.T) {
	t.Run("inclusive bounds", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-01-01",
			EndDate:   "2025-01-03",
			StartTime: "09:00",
			EndTime:   "10:00",
			Rule:      plan.Range{},
		}
		res := Generate(p, testIDs())
		want := []string{"2025-01-01", "2025-01-02", "2025-01-03"}
		if len(res.Additions) != len(want) {
			t.Fatalf("expected %d occurrences, got %d", len(want), len(res.Additions))
		}
		for i, occ := range res.Additions {
			if occ.Date != want[i] || occ.StartTime != "09:00" || occ.EndTime != "10:00" {
				t.Fatalf("occurrence %d unexpected: %+v", i, occ)
			}
		}
	})

	t.Run("requires the full time window", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-01-01",
			EndDate:   "2025-01-03",
			StartTime: "09:00",
			Rule:      plan.Range{},
		}
		if res := Generate(p, testIDs()); len(res.Additions) != 0 {
			t.Fatalf("range without an end time must not generate, got %d", len(res.Additions))
		}
	})

	t.Run("open end capped at 31 days", func(t *testing.T) {
		p := plan.Plan{
			StartDate: "2025-01-01",
			StartTime: "09:00",
			EndTime:   "10:00",
			Rule:      plan.Range{},
		}
		res := Generate(p, testIDs())
		if len(res.Additions) != 31 {
			t.Fatalf("expected 31 occurrences, got %d", len(res.Additions))
		}
	})
}

func TestGenerateIDsUnique(t *testing.T) {
	p := plan.Plan{
		StartDate: "2025-01-01",
		EndDate:   "2025-01-10",
		StartTime: "09:00",
		EndTime:   "10:00",
		Rule:      plan.Range{},
	}
	res := Generate(p, model.NewIDGenerator())
	seen := map[string]bool{}
	for _, occ := range res.Additions {
		if seen[occ.ID] {
			t.Fatalf("duplicate ID %q", occ.ID)
		}
		seen[occ.ID] = true
	}
}
