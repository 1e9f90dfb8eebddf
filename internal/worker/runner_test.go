package worker

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/arnavshah/roster-engine-go/pkg/database"
	"github.com/arnavshah/roster-engine-go/pkg/models"
	"github.com/arnavshah/roster-engine-go/pkg/roster"
	"github.com/arnavshah/roster-engine-go/pkg/store"
)

func testRunner(t *testing.T) (*Runner, *store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	st := store.New(db, nil)
	return NewRunner(st, roster.DefaultPolicy(), nil), st
}

func seedWorld(t *testing.T, st *store.Store, staff int) *models.ShiftTemplate {
	t.Helper()
	tpl := &models.ShiftTemplate{
		Name:     "weekday pair",
		Timezone: "UTC",
		Entries: []models.CoverageEntry{
			{Days: models.IntList{1, 2, 3, 4, 5}, ShiftName: "day", StartTime: "09:00", EndTime: "17:00", RequiredCount: 2},
		},
	}
	if err := st.CreateTemplate(tpl); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	names := []string{"Avery", "Blair", "Casey", "Drew", "Emery"}
	for i := 0; i < staff; i++ {
		if err := st.CreateEmployee(&models.Employee{Name: names[i%len(names)], Active: true}); err != nil {
			t.Fatalf("CreateEmployee failed: %v", err)
		}
	}
	return tpl
}

func TestExecuteFullRun(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 5)

	seed := int64(42)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}

	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetSchedule(draft.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if sched.RunState != models.RunStateCompleted {
		t.Fatalf("Expected completed run, got %s (err %q)", sched.RunState, sched.RunError)
	}
	if sched.SlotCount != 10 || len(sched.Slots) != 10 {
		t.Fatalf("Expected 10 slots, got count=%d rows=%d", sched.SlotCount, len(sched.Slots))
	}
	if sched.ConflictCount != 0 || sched.WarningCount != 0 {
		t.Errorf("Expected a clean run, got %d conflicts %d warnings", sched.ConflictCount, sched.WarningCount)
	}
	if sched.Score != 100.0 {
		t.Errorf("Even 10-over-5 spread should score 100, got %.2f", sched.Score)
	}
	if sched.Seed == nil || *sched.Seed != 42 {
		t.Errorf("Requested seed should be recorded, got %v", sched.Seed)
	}
	for _, sl := range sched.Slots {
		if sl.EmployeeID == nil || sl.Status != models.SlotAssigned {
			t.Errorf("Slot %s[%d] not assigned: %+v", sl.Date, sl.PositionIndex, sl)
		}
	}

	// The completed draft passes the publish gate.
	if _, err := st.Publish(sched.ID, sched.Version, false, "alice"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestExecuteUnderstaffedRun(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 1)

	seed := int64(7)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetSchedule(draft.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if sched.RunState != models.RunStateCompleted {
		t.Fatalf("Run should complete despite conflicts, got %s", sched.RunState)
	}
	if sched.ConflictCount != 5 {
		t.Errorf("Expected 5 conflicts, got %d", sched.ConflictCount)
	}
	if len(sched.HardViolations) != 5 {
		t.Errorf("Expected 5 hard violation records, got %v", sched.HardViolations)
	}

	// The gate refuses the short roster.
	if _, err := st.Publish(sched.ID, sched.Version, true, "alice"); err == nil {
		t.Fatal("Publishing with open conflicts must fail")
	}
}

func TestExecuteDeterministicSeed(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 5)

	assignments := func() map[string]string {
		seed := int64(99)
		draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
		if err != nil {
			t.Fatalf("CreateDraft failed: %v", err)
		}
		r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})
		sched, err := st.GetSchedule(draft.ID)
		if err != nil {
			t.Fatalf("GetSchedule failed: %v", err)
		}
		out := make(map[string]string, len(sched.Slots))
		for _, sl := range sched.Slots {
			key := sl.Date + "/" + sl.ShiftName + "/" + string(rune('0'+sl.PositionIndex))
			if sl.EmployeeID != nil {
				out[key] = *sl.EmployeeID
			}
		}
		return out
	}

	first := assignments()
	second := assignments()
	if len(first) != len(second) {
		t.Fatalf("Runs differ in size: %d vs %d", len(first), len(second))
	}
	for k, v := range first {
		if second[k] != v {
			t.Errorf("Slot %s diverged: %q vs %q", k, v, second[k])
		}
	}
}

func TestExecutePreservesLockedEdits(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 5)

	seed := int64(5)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetSchedule(draft.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}

	// Manually pin the first slot to a different employee.
	emps, _ := st.ListEmployees(true)
	target := sched.Slots[0]
	busy := make(map[string]bool)
	for _, sl := range sched.Slots {
		if sl.EmployeeID != nil && sl.StartTime.Before(target.EndTime) && target.StartTime.Before(sl.EndTime) {
			busy[*sl.EmployeeID] = true
		}
	}
	var other string
	for _, e := range emps {
		if !busy[e.ID] {
			other = e.ID
			break
		}
	}
	if _, _, err := st.UpdateSlot(sched.ID, sched.Version, target.ID, store.SlotUpdate{EmployeeID: &other}, "alice", "sess"); err != nil {
		t.Fatalf("UpdateSlot failed: %v", err)
	}

	header, _ := st.GetScheduleHeader(sched.ID)
	if _, err := st.PrepareRerun(sched.ID, header.Version, nil); err != nil {
		t.Fatalf("PrepareRerun failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: sched.ID, PreserveManualEdits: true})

	after, err := st.GetSchedule(sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if after.RunState != models.RunStateCompleted {
		t.Fatalf("Rerun should complete, got %s (err %q)", after.RunState, after.RunError)
	}
	if len(after.Slots) != 10 {
		t.Fatalf("Rerun changed slot count: %d", len(after.Slots))
	}

	kept := false
	for _, sl := range after.Slots {
		if sl.ID == target.ID {
			kept = true
			if sl.EmployeeID == nil || *sl.EmployeeID != other {
				t.Errorf("Locked edit was overwritten: %+v", sl)
			}
			if !sl.ManualLock || sl.Source != models.SourceManual {
				t.Errorf("Locked slot lost its marks: %+v", sl)
			}
		} else if sl.EmployeeID != nil && *sl.EmployeeID == other && sl.Date == target.Date {
			s, e := sl.StartTime, sl.EndTime
			if s.Before(target.EndTime) && target.StartTime.Before(e) {
				t.Errorf("Rerun double-booked the locked employee: %+v", sl)
			}
		}
	}
	if !kept {
		t.Error("Locked slot row was not preserved across the rerun")
	}
}

func TestExecuteForceAssignException(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 5)

	seed := int64(11)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetSchedule(draft.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}

	// Force a different employee onto the first slot and approve it.
	target := sched.Slots[0]
	emps, _ := st.ListEmployees(true)
	var other string
	for _, e := range emps {
		if target.EmployeeID == nil || e.ID != *target.EmployeeID {
			other = e.ID
			break
		}
	}
	ex := &models.ScheduleException{
		ScheduleID: sched.ID,
		SlotID:     target.ID,
		EmployeeID: other,
		Kind:       models.ExceptionForceAssign,
		Reason:     "site lead asked for this cover",
		CreatedBy:  "alice",
	}
	if err := st.CreateException(ex); err != nil {
		t.Fatalf("CreateException failed: %v", err)
	}
	if _, err := st.DecideException(ex.ID, true, "bob"); err != nil {
		t.Fatalf("DecideException failed: %v", err)
	}

	header, _ := st.GetScheduleHeader(sched.ID)
	if _, err := st.PrepareRerun(sched.ID, header.Version, &seed); err != nil {
		t.Fatalf("PrepareRerun failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: sched.ID})

	after, err := st.GetSchedule(sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if after.RunState != models.RunStateCompleted {
		t.Fatalf("Rerun should complete, got %s (err %q)", after.RunState, after.RunError)
	}

	var forced *models.ScheduleAssignment
	for i := range after.Slots {
		if after.Slots[i].ID == target.ID {
			forced = &after.Slots[i]
		}
	}
	if forced == nil {
		t.Fatal("Forced placement should keep the slot id the exception names")
	}
	if forced.EmployeeID == nil || *forced.EmployeeID != other {
		t.Fatalf("Approved force placement not honored: %+v", forced)
	}
	if forced.Status != models.SlotConflict {
		t.Errorf("Forced placement should classify as conflict, got %q", forced.Status)
	}
	found := false
	for _, f := range forced.Flags {
		if f == models.FlagForcedByException {
			found = true
		}
	}
	if !found {
		t.Errorf("Forced placement missing its flag: %v", forced.Flags)
	}
	if forced.Source != models.SourceSystem {
		t.Errorf("Forced placement should carry the system source, got %q", forced.Source)
	}
	if after.ConflictCount != 1 {
		t.Errorf("Forced placement should count as the run's conflict, got %d", after.ConflictCount)
	}

	// The approval that forced the placement also covers it at the gate.
	if _, err := st.Publish(after.ID, after.Version, false, "alice"); err != nil {
		t.Fatalf("Publish should accept the approved force placement, got %v", err)
	}
}

func TestExecutePreventAssignException(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 5)

	seed := int64(13)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}

	// Keep one employee off the whole schedule before the first run.
	emps, _ := st.ListEmployees(true)
	barred := emps[0].ID
	ex := &models.ScheduleException{
		ScheduleID: draft.ID,
		EmployeeID: barred,
		Kind:       models.ExceptionPreventAssign,
		Reason:     "on loan to another site",
		CreatedBy:  "alice",
	}
	if err := st.CreateException(ex); err != nil {
		t.Fatalf("CreateException failed: %v", err)
	}
	if _, err := st.DecideException(ex.ID, true, "bob"); err != nil {
		t.Fatalf("DecideException failed: %v", err)
	}

	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetSchedule(draft.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if sched.RunState != models.RunStateCompleted {
		t.Fatalf("Run should complete, got %s (err %q)", sched.RunState, sched.RunError)
	}
	if sched.ConflictCount != 0 {
		t.Errorf("Four remaining staff cover two heads a day, got %d conflicts", sched.ConflictCount)
	}
	for _, sl := range sched.Slots {
		if sl.EmployeeID != nil && *sl.EmployeeID == barred {
			t.Errorf("Prevented employee placed on %s %s[%d]", sl.Date, sl.ShiftName, sl.PositionIndex)
		}
	}
}

func TestExecuteRerunClassifiesKeptSlots(t *testing.T) {
	r, st := testRunner(t)
	tpl := seedWorld(t, st, 5)

	seed := int64(17)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-02", "2025-06-06", &seed)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetSchedule(draft.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}

	// Manually clear and lock one slot, then rerun preserving edits. The
	// empty locked row is a coverage gap and must surface as a conflict in
	// both the slot's status and the run summary.
	target := sched.Slots[0]
	if _, _, err := st.UpdateSlot(sched.ID, sched.Version, target.ID, store.SlotUpdate{}, "alice", "sess"); err != nil {
		t.Fatalf("UpdateSlot failed: %v", err)
	}
	header, _ := st.GetScheduleHeader(sched.ID)
	if _, err := st.PrepareRerun(sched.ID, header.Version, nil); err != nil {
		t.Fatalf("PrepareRerun failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: sched.ID, PreserveManualEdits: true})

	after, err := st.GetSchedule(sched.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if after.RunState != models.RunStateCompleted {
		t.Fatalf("Rerun should complete, got %s (err %q)", after.RunState, after.RunError)
	}

	var keptRow *models.ScheduleAssignment
	for i := range after.Slots {
		if after.Slots[i].ID == target.ID {
			keptRow = &after.Slots[i]
		}
	}
	if keptRow == nil {
		t.Fatal("Locked row was not preserved across the rerun")
	}
	if keptRow.EmployeeID != nil {
		t.Fatalf("Locked empty slot should stay empty, got %+v", keptRow)
	}
	if keptRow.Status != models.SlotConflict {
		t.Errorf("Kept empty slot should classify as conflict, got %q", keptRow.Status)
	}
	if after.ConflictCount != 1 {
		t.Errorf("Kept conflict must show in the run summary, got %d", after.ConflictCount)
	}
	if len(after.HardViolations) != 1 {
		t.Errorf("Kept conflict must show as a hard violation, got %v", after.HardViolations)
	}
	if _, err := st.Publish(after.ID, after.Version, true, "alice"); err == nil {
		t.Error("Publishing over an unpermitted kept conflict must fail")
	}
}

func TestExecuteFailureKeepsDraft(t *testing.T) {
	r, st := testRunner(t)

	// Template with an empty range start after end forces a solve error.
	tpl := seedWorld(t, st, 2)
	draft, err := st.CreateDraft(tpl.ID, "2025-06-06", "2025-06-02", nil)
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	r.Execute(context.Background(), RunJob{ScheduleID: draft.ID})

	sched, err := st.GetScheduleHeader(draft.ID)
	if err != nil {
		t.Fatalf("GetScheduleHeader failed: %v", err)
	}
	if sched.RunState != models.RunStateFailed {
		t.Fatalf("Expected failed run state, got %s", sched.RunState)
	}
	if sched.RunError == "" {
		t.Error("Failure should record an error message")
	}
	if sched.Status != models.StatusDraft {
		t.Errorf("Failure must leave the draft intact, got %s", sched.Status)
	}
}
