package roster

import (
	"testing"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

func makeEmployees(ids ...string) []models.Employee {
	out := make([]models.Employee, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Employee{ID: id, Name: "Employee " + id, Active: true})
	}
	return out
}

func makeSlots(t *testing.T, tpl *models.ShiftTemplate, from, to string) []*Slot {
	t.Helper()
	stubs, err := ExpandDemand(tpl, nil, from, to)
	if err != nil {
		t.Fatalf("ExpandDemand failed: %v", err)
	}
	slots := make([]*Slot, len(stubs))
	for i, st := range stubs {
		slots[i] = &Slot{SlotStub: st}
	}
	return slots
}

func TestSolveFullCoverage(t *testing.T) {
	// Two heads per weekday across one week with five staff: everything
	// fills with zero conflicts and an even spread.
	slots := makeSlots(t, weekdayTemplate(2), "2025-06-02", "2025-06-06")
	emps := makeEmployees("e1", "e2", "e3", "e4", "e5")

	solver := NewSolver(emps, nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 42)
	solver.Solve(slots)

	if len(solver.Conflicts) != 0 {
		t.Fatalf("Expected no conflicts, got %d: %+v", len(solver.Conflicts), solver.Conflicts)
	}
	for _, sl := range slots {
		if sl.EmployeeID == "" {
			t.Errorf("Slot %s %s[%d] left unfilled", sl.Date, sl.ShiftName, sl.PositionIndex)
		}
		if sl.Source != models.SourceAlgorithm {
			t.Errorf("Expected algorithm source, got %q", sl.Source)
		}
	}

	// 10 slots over 5 employees: fairness demands exactly 2 each.
	for _, e := range emps {
		if got := solver.Tally()[e.ID].Total; got != 2 {
			t.Errorf("Employee %s carries %d shifts, expected 2", e.ID, got)
		}
	}
	if score := FairnessScore(solver.Tally(), []string{"e1", "e2", "e3", "e4", "e5"}); score != 100.0 {
		t.Errorf("Expected fairness score 100, got %.2f", score)
	}

	sum := Classify(slots, nil, DefaultPolicy())
	if sum.Assigned != 10 || sum.Conflicts != 0 || sum.Warnings != 0 {
		t.Errorf("Unexpected summary: %+v", sum)
	}
}

func TestSolveUnderstaffed(t *testing.T) {
	// Two heads per day but only one employee: one slot per day fills, the
	// other is recorded as a conflict rather than double-booking.
	slots := makeSlots(t, weekdayTemplate(2), "2025-06-02", "2025-06-06")
	solver := NewSolver(makeEmployees("solo"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 1)
	solver.Solve(slots)

	filled, open := 0, 0
	for _, sl := range slots {
		if sl.EmployeeID == "" {
			open++
		} else {
			filled++
		}
	}
	if filled != 5 || open != 5 {
		t.Fatalf("Expected 5 filled and 5 open slots, got %d/%d", filled, open)
	}
	if len(solver.Conflicts) != 5 {
		t.Fatalf("Expected 5 conflict records, got %d", len(solver.Conflicts))
	}
	for _, c := range solver.Conflicts {
		if c.Reason != models.FlagNoAvailableCandidate {
			t.Errorf("Unexpected conflict reason %q", c.Reason)
		}
	}

	sum := Classify(slots, nil, DefaultPolicy())
	if sum.Conflicts != 5 || sum.Unassigned != 5 || sum.Assigned != 5 {
		t.Errorf("Unexpected summary: %+v", sum)
	}
	for _, sl := range slots {
		if sl.EmployeeID == "" && sl.Status != models.SlotConflict {
			t.Errorf("Open slot should classify as conflict, got %q", sl.Status)
		}
	}
}

func TestSolveBlackoutAndPin(t *testing.T) {
	// Employee A is blacked out on Wednesday and pinned on Thursday: the
	// Wednesday slot must avoid A, the Thursday slot must be exactly A.
	avail := []models.EmployeeAvailability{
		{EmployeeID: "a", Date: "2025-06-04", Type: models.AvailabilityBlackout},
		{EmployeeID: "a", Date: "2025-06-05", Type: models.AvailabilityAvailable, Pinned: true, ShiftName: "day"},
	}
	slots := makeSlots(t, weekdayTemplate(1), "2025-06-02", "2025-06-06")
	solver := NewSolver(makeEmployees("a", "b"), avail, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 7)
	solver.Solve(slots)

	byDate := make(map[string]*Slot)
	for _, sl := range slots {
		byDate[sl.Date] = sl
	}
	if byDate["2025-06-04"].EmployeeID != "b" {
		t.Errorf("Blackout day should go to b, got %q", byDate["2025-06-04"].EmployeeID)
	}
	if byDate["2025-06-05"].EmployeeID != "a" {
		t.Errorf("Pinned day should go to a, got %q", byDate["2025-06-05"].EmployeeID)
	}
	if byDate["2025-06-05"].Source != models.SourceSystem {
		t.Errorf("Pinned placement should carry system source, got %q", byDate["2025-06-05"].Source)
	}
}

func TestSolveForbiddenDate(t *testing.T) {
	// The only employee is forbidden on Tuesday: Monday fills normally, the
	// Tuesday slot stays open as a conflict rather than overriding the mark.
	avail := []models.EmployeeAvailability{
		{EmployeeID: "a", Date: "2025-06-03", Type: models.AvailabilityAvailable, Forbidden: true},
	}
	slots := makeSlots(t, weekdayTemplate(1), "2025-06-02", "2025-06-03")
	solver := NewSolver(makeEmployees("a"), avail, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 4)
	solver.Solve(slots)

	byDate := make(map[string]*Slot)
	for _, sl := range slots {
		byDate[sl.Date] = sl
	}
	if byDate["2025-06-02"].EmployeeID != "a" {
		t.Errorf("Monday should fill with a, got %q", byDate["2025-06-02"].EmployeeID)
	}
	if byDate["2025-06-03"].EmployeeID != "" {
		t.Errorf("Forbidden employee must never be placed on that date, got %q", byDate["2025-06-03"].EmployeeID)
	}
	if len(solver.Conflicts) != 1 {
		t.Fatalf("Expected one conflict for the open Tuesday slot, got %d", len(solver.Conflicts))
	}
}

func TestSolvePreventRule(t *testing.T) {
	slots := makeSlots(t, weekdayTemplate(1), "2025-06-02", "2025-06-03")
	solver := NewSolver(makeEmployees("a", "b"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 6)
	solver.Prevent("a", "", "")
	solver.Solve(slots)

	for _, sl := range slots {
		if sl.EmployeeID != "b" {
			t.Errorf("Date %s: prevented employee placed or slot open, got %q", sl.Date, sl.EmployeeID)
		}
	}

	// Scoped to one date, the rule only bites there.
	slots = makeSlots(t, weekdayTemplate(1), "2025-06-02", "2025-06-03")
	solver = NewSolver(makeEmployees("a", "b"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 6)
	solver.Prevent("a", "2025-06-02", "day")
	solver.Solve(slots)

	monday, placed := "", false
	for _, sl := range slots {
		if sl.Date == "2025-06-02" {
			monday = sl.EmployeeID
		}
		if sl.EmployeeID == "a" {
			placed = true
		}
	}
	if monday != "b" {
		t.Errorf("Scoped prevention should push Monday to b, got %q", monday)
	}
	if !placed {
		t.Error("Scoped prevention should leave other dates open to a")
	}
}

func TestSolveDeterministic(t *testing.T) {
	run := func(seed int64) []string {
		slots := makeSlots(t, weekdayTemplate(2), "2025-06-02", "2025-06-06")
		solver := NewSolver(makeEmployees("e1", "e2", "e3", "e4", "e5"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, seed)
		solver.Solve(slots)
		out := make([]string, len(slots))
		for i, sl := range slots {
			out[i] = sl.EmployeeID
		}
		return out
	}

	first, second := run(99), run(99)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Same seed diverged at slot %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestSolveRespectsMinRest(t *testing.T) {
	tpl := weekdayTemplate(1)
	tpl.MinRestHours = 24
	slots := makeSlots(t, tpl, "2025-06-02", "2025-06-03")
	solver := NewSolver(makeEmployees("solo"), nil, Rules{MinRestHours: 24, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 3)
	solver.Solve(slots)

	// 09:00-17:00 back to back leaves a 16h gap, under the 24h floor.
	if slots[0].EmployeeID != "solo" {
		t.Fatal("First day should be assigned")
	}
	if slots[1].EmployeeID != "" {
		t.Fatal("Second day violates minimum rest and must stay open")
	}
}

func TestSolveCapsConsecutiveNights(t *testing.T) {
	tpl := weekdayTemplate(1)
	tpl.Entries[0].StartTime = "22:00"
	tpl.Entries[0].EndTime = "06:00"
	tpl.Entries[0].ShiftName = "night"

	slots := makeSlots(t, tpl, "2025-06-02", "2025-06-05")
	solver := NewSolver(makeEmployees("solo"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 2}, DefaultPolicy(), nil, 5)
	solver.Solve(slots)

	want := map[string]string{
		"2025-06-02": "solo",
		"2025-06-03": "solo",
		"2025-06-04": "", // third night in a row
		"2025-06-05": "solo",
	}
	for _, sl := range slots {
		if sl.EmployeeID != want[sl.Date] {
			t.Errorf("Date %s: got %q, want %q", sl.Date, sl.EmployeeID, want[sl.Date])
		}
	}
}

func TestSolveSkillFilter(t *testing.T) {
	tpl := weekdayTemplate(1)
	tpl.Entries[0].RequiredSkill = "forklift"

	emps := []models.Employee{
		{ID: "plain", Name: "Plain", Active: true},
		{ID: "skilled", Name: "Skilled", Active: true, Skills: models.StringList{"forklift"}},
	}
	slots := makeSlots(t, tpl, "2025-06-02", "2025-06-03")
	solver := NewSolver(emps, nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 11)
	solver.Solve(slots)

	for _, sl := range slots {
		if sl.EmployeeID != "skilled" {
			t.Errorf("Skilled slot on %s went to %q", sl.Date, sl.EmployeeID)
		}
	}
}

func TestSolveIgnoresInactive(t *testing.T) {
	emps := []models.Employee{
		{ID: "gone", Name: "Gone", Active: false},
		{ID: "here", Name: "Here", Active: true},
	}
	slots := makeSlots(t, weekdayTemplate(1), "2025-06-02", "2025-06-02")
	solver := NewSolver(emps, nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 2)
	solver.Solve(slots)

	if slots[0].EmployeeID != "here" {
		t.Errorf("Inactive employee must never be placed, got %q", slots[0].EmployeeID)
	}
}

func TestPrefillBlocksOverlap(t *testing.T) {
	// A locked placement from a prior run occupies e1 for the whole window,
	// so the remaining sibling slot must go to e2.
	slots := makeSlots(t, weekdayTemplate(2), "2025-06-02", "2025-06-02")
	solver := NewSolver(makeEmployees("e1", "e2"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), nil, 8)

	locked := &Slot{SlotStub: slots[0].SlotStub, EmployeeID: "e1", Locked: true, Source: models.SourceManual}
	solver.Prefill([]*Slot{locked})
	solver.Solve(slots[1:])

	if slots[1].EmployeeID != "e2" {
		t.Errorf("Overlapping sibling should go to e2, got %q", slots[1].EmployeeID)
	}
	if solver.Tally()["e1"].Total != 1 {
		t.Errorf("Prefilled work must count toward fairness, tally=%+v", solver.Tally()["e1"])
	}
}

func TestFairnessPrefersLeastLoaded(t *testing.T) {
	// History says e1 already worked 5 shifts; a single fresh slot must go
	// to the idle e2.
	history := Tally{"e1": Counts{Total: 5}}
	slots := makeSlots(t, weekdayTemplate(1), "2025-06-02", "2025-06-02")
	solver := NewSolver(makeEmployees("e1", "e2"), nil, Rules{MinRestHours: 11, MaxConsecutiveNights: 3}, DefaultPolicy(), history, 13)
	solver.Solve(slots)

	if slots[0].EmployeeID != "e2" {
		t.Errorf("Least-loaded employee should win, got %q", slots[0].EmployeeID)
	}
}
