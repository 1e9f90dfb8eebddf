package roster

import (
	"sort"
	"time"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// availabilityIndex holds availability records keyed by employee and date.
type availabilityIndex map[string]map[string][]models.EmployeeAvailability

func indexAvailability(records []models.EmployeeAvailability) availabilityIndex {
	idx := make(availabilityIndex)
	for _, r := range records {
		byDate, ok := idx[r.EmployeeID]
		if !ok {
			byDate = make(map[string][]models.EmployeeAvailability)
			idx[r.EmployeeID] = byDate
		}
		byDate[r.Date] = append(byDate[r.Date], r)
	}
	return idx
}

// pins returns every pinned record in (employee, date) order so pin placement
// is deterministic.
func (idx availabilityIndex) pins() []models.EmployeeAvailability {
	var out []models.EmployeeAvailability
	for _, byDate := range idx {
		for _, recs := range byDate {
			for _, r := range recs {
				if r.Pinned {
					out = append(out, r)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date < out[j].Date
	})
	return out
}

// forDate returns the records for one employee on one date.
func (idx availabilityIndex) forDate(employeeID, date string) []models.EmployeeAvailability {
	byDate, ok := idx[employeeID]
	if !ok {
		return nil
	}
	return byDate[date]
}

// eligible narrows the pool to employees who may legally take the slot given
// everything placed so far. Order follows the solver's sorted employee list,
// so the candidate set is deterministic.
func (s *Solver) eligible(stub SlotStub) []string {
	var out []string
	for i := range s.employees {
		emp := &s.employees[i]
		if s.disqualified(emp, stub) == "" {
			out = append(out, emp.ID)
		}
	}
	return out
}

// disqualified returns the first reason the employee cannot take the slot, or
// empty if they are eligible.
func (s *Solver) disqualified(emp *models.Employee, stub SlotStub) string {
	if stub.RequiredSkill != "" && !emp.Skills.Contains(stub.RequiredSkill) {
		return "missing_skill"
	}
	for _, p := range s.prevent {
		if p.employeeID == emp.ID &&
			(p.date == "" || p.date == stub.Date) &&
			(p.shiftName == "" || p.shiftName == stub.ShiftName) {
			return "prevented_by_exception"
		}
	}
	for _, rec := range s.avail.forDate(emp.ID, stub.Date) {
		if rec.Forbidden {
			return "forbidden"
		}
		if rec.Type == models.AvailabilityUnavailable || rec.Type == models.AvailabilityBlackout {
			if !rec.HasWindow() || windowOverlaps(rec, stub) {
				return rec.Type
			}
		}
	}
	if s.overlapsExisting(emp.ID, stub) {
		return "double_booked"
	}
	if s.restViolated(emp.ID, stub) {
		return "insufficient_rest"
	}
	if s.policy.IsNight(stub.Start) && s.consecutiveNights(emp.ID, stub.Date) >= s.rules.MaxConsecutiveNights {
		return "max_consecutive_nights"
	}
	return ""
}

// overlapsExisting reports whether the employee is already placed on any
// interval overlapping the slot.
func (s *Solver) overlapsExisting(employeeID string, stub SlotStub) bool {
	for _, p := range s.placed[employeeID] {
		if p.start.Before(stub.End) && stub.Start.Before(p.end) {
			return true
		}
	}
	return false
}

// restViolated checks the minimum gap between the slot and the employee's
// nearest placements on either side.
func (s *Solver) restViolated(employeeID string, stub SlotStub) bool {
	rest := time.Duration(s.rules.MinRestHours) * time.Hour
	for _, p := range s.placed[employeeID] {
		if !p.end.After(stub.Start) && stub.Start.Sub(p.end) < rest {
			return true
		}
		if !stub.End.After(p.start) && p.start.Sub(stub.End) < rest {
			return true
		}
	}
	return false
}

// consecutiveNights counts how many nights in a row the employee has worked
// immediately before the given date.
func (s *Solver) consecutiveNights(employeeID, date string) int {
	nights := make(map[string]bool)
	for _, p := range s.placed[employeeID] {
		if p.night {
			nights[p.date] = true
		}
	}
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return 0
	}
	count := 0
	for d := day.AddDate(0, 0, -1); nights[d.Format(models.DateLayout)]; d = d.AddDate(0, 0, -1) {
		count++
	}
	return count
}

// windowOverlaps reports whether a record's time-of-day window intersects the
// slot. Records without a window cover the whole day.
func windowOverlaps(rec models.EmployeeAvailability, stub SlotStub) bool {
	if !rec.HasWindow() {
		return true
	}
	loc := stub.Start.Location()
	rs, err1 := time.ParseInLocation(models.DateLayout+" "+models.ClockLayout, rec.Date+" "+rec.StartTime, loc)
	re, err2 := time.ParseInLocation(models.DateLayout+" "+models.ClockLayout, rec.Date+" "+rec.EndTime, loc)
	if err1 != nil || err2 != nil {
		return true
	}
	if !re.After(rs) {
		re = re.AddDate(0, 0, 1)
	}
	return rs.Before(stub.End) && stub.Start.Before(re)
}
