package roster

import (
	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// Summary aggregates a classification pass.
type Summary struct {
	Assigned   int
	Unassigned int
	Conflicts  int
	Warnings   int
}

// Classify is the post-solve pass that stamps every slot with its final
// status. It is the authoritative publishability signal: a schedule with any
// conflict-classified slot cannot pass the publish gate.
//
// Unfilled slots always leave their date/shift group short of headcount, so
// they classify as conflicts; their filled siblings stay assigned. Forced
// placements (approved exceptions) classify as conflicts regardless of who
// fills them. Preference mismatches classify as warnings.
func Classify(slots []*Slot, avail []models.EmployeeAvailability, policy Policy) Summary {
	idx := indexAvailability(avail)
	var sum Summary
	for _, sl := range slots {
		switch {
		case sl.EmployeeID == "":
			sl.Status = models.SlotConflict
			sl.Flags = appendFlag(sl.Flags, models.FlagNoAvailableCandidate)
			sl.Flags = appendFlag(sl.Flags, models.FlagHeadcountUnmet)
			sum.Conflicts++
			sum.Unassigned++
		case hasFlag(sl.Flags, models.FlagForcedByException):
			sl.Status = models.SlotConflict
			sum.Conflicts++
		case preferenceMismatch(idx, sl):
			sl.Status = models.SlotWarning
			sl.Flags = appendFlag(sl.Flags, models.FlagPreferenceMismatch)
			sum.Warnings++
		default:
			sl.Status = models.SlotAssigned
			sum.Assigned++
		}
	}
	return sum
}

// preferenceMismatch reports whether the assigned employee stated a preferred
// window on that date which the slot does not satisfy.
func preferenceMismatch(idx availabilityIndex, sl *Slot) bool {
	recs := idx.forDate(sl.EmployeeID, sl.Date)
	sawPreferred := false
	for _, r := range recs {
		if r.Type != models.AvailabilityPreferred {
			continue
		}
		sawPreferred = true
		if r.ShiftName != "" && r.ShiftName == sl.ShiftName {
			return false
		}
		if r.ShiftName == "" && windowOverlaps(r, sl.SlotStub) {
			return false
		}
	}
	return sawPreferred
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
