package roster

import (
	"math/rand"
	"sort"
	"time"

	"github.com/arnavshah/roster-engine-go/pkg/models"
)

// Rules are the hard rest constraints taken from a template.
type Rules struct {
	MinRestHours         int
	MaxConsecutiveNights int
}

// Policy holds the tunable fairness weights and the night-shift definition.
// The weights are deliberately not baked in: how heavily night/weekend history
// should count relative to raw shift totals is an operator decision.
type Policy struct {
	NightWeight    float64
	WeekendWeight  float64
	NightStartHour int
	NightEndHour   int
}

// DefaultPolicy returns the stock weighting.
func DefaultPolicy() Policy {
	return Policy{
		NightWeight:    2.0,
		WeekendWeight:  1.5,
		NightStartHour: 21,
		NightEndHour:   6,
	}
}

// IsNight reports whether a shift starting at t counts as a night shift.
func (p Policy) IsNight(t time.Time) bool {
	h := t.Hour()
	return h >= p.NightStartHour || h < p.NightEndHour
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Slot is a stub plus its (possibly empty) assignment. The solver fills these
// in place, the way assignments accumulate on shifts during a run.
type Slot struct {
	SlotStub
	EmployeeID string // empty while unfilled
	Source     string
	Locked     bool
	Status     models.SlotStatus
	Flags      []string
}

// Conflict is a structured record of a slot the solver could not fill.
type Conflict struct {
	Date          string `json:"date"`
	ShiftName     string `json:"shift_name"`
	PositionIndex int    `json:"position_index"`
	Reason        string `json:"reason"`
}

type placement struct {
	start, end time.Time
	date       string
	night      bool
}

// preventRule bars an employee from matching slots. Empty date or shift name
// matches everything.
type preventRule struct {
	employeeID string
	date       string
	shiftName  string
}

// Solver assigns employees to slots with a single greedy pass. It never
// backtracks: a slot that cannot be filled is recorded as a conflict and the
// pass continues, which keeps runtime linear and every decision explainable.
type Solver struct {
	employees []models.Employee // sorted by ID for deterministic iteration
	avail     availabilityIndex
	rules     Rules
	policy    Policy
	tally     Tally
	placed    map[string][]placement
	prevent   []preventRule
	rng       *rand.Rand

	Conflicts []Conflict
}

// NewSolver builds a solver over a snapshot of employees and availability.
// history seeds the fairness tally with counts from prior published
// schedules. The seed fixes the tiebreak order: same seed and inputs give an
// identical assignment set.
func NewSolver(employees []models.Employee, avail []models.EmployeeAvailability, rules Rules, policy Policy, history Tally, seed int64) *Solver {
	emps := make([]models.Employee, 0, len(employees))
	for _, e := range employees {
		if e.Active {
			emps = append(emps, e)
		}
	}
	sort.Slice(emps, func(i, j int) bool { return emps[i].ID < emps[j].ID })

	tally := make(Tally, len(emps))
	for id, c := range history {
		tally[id] = c
	}

	return &Solver{
		employees: emps,
		avail:     indexAvailability(avail),
		rules:     rules,
		policy:    policy,
		tally:     tally,
		placed:    make(map[string][]placement),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Tally exposes the running counts, including prefilled and pinned work.
func (s *Solver) Tally() Tally { return s.tally }

// Prevent bars an employee from slots matching date and shift name; empty
// date or shift matches all. Approved prevent_assign exceptions feed this.
func (s *Solver) Prevent(employeeID, date, shiftName string) {
	s.prevent = append(s.prevent, preventRule{
		employeeID: employeeID,
		date:       date,
		shiftName:  shiftName,
	})
}

// Prefill registers slots that are already fixed, locked manual edits on a
// rerun, so rest-hour and fairness bookkeeping sees them before solving.
func (s *Solver) Prefill(slots []*Slot) {
	for _, sl := range slots {
		if sl.EmployeeID == "" {
			continue
		}
		s.record(sl.EmployeeID, sl.SlotStub)
	}
}

// Solve runs the pass: pinned placements first, then every remaining unfilled
// slot in order. Slots already carrying an employee are left alone.
func (s *Solver) Solve(slots []*Slot) {
	s.placePinned(slots)

	for _, sl := range slots {
		if sl.EmployeeID != "" || sl.Locked {
			continue
		}
		cands := s.eligible(sl.SlotStub)
		if len(cands) == 0 {
			sl.Status = models.SlotUnassigned
			sl.Flags = appendFlag(sl.Flags, models.FlagNoAvailableCandidate)
			s.Conflicts = append(s.Conflicts, Conflict{
				Date:          sl.Date,
				ShiftName:     sl.ShiftName,
				PositionIndex: sl.PositionIndex,
				Reason:        models.FlagNoAvailableCandidate,
			})
			continue
		}
		best := s.pick(cands, sl.SlotStub)
		sl.EmployeeID = best
		sl.Source = models.SourceAlgorithm
		s.record(best, sl.SlotStub)
	}
}

// placePinned walks pinned availability records in deterministic order and
// fixes each one onto the first matching open slot, bypassing fairness
// scoring entirely.
func (s *Solver) placePinned(slots []*Slot) {
	pins := s.avail.pins()
	for _, pin := range pins {
		emp, ok := s.employee(pin.EmployeeID)
		if !ok {
			continue
		}
		for _, sl := range slots {
			if sl.EmployeeID != "" || sl.Locked || sl.Date != pin.Date {
				continue
			}
			if pin.ShiftName != "" && pin.ShiftName != sl.ShiftName {
				continue
			}
			if pin.HasWindow() && !windowOverlaps(pin, sl.SlotStub) {
				continue
			}
			// A pin skips availability and rest checks but cannot put an
			// unskilled employee on a skilled slot, nor double-book.
			if sl.RequiredSkill != "" && !emp.Skills.Contains(sl.RequiredSkill) {
				continue
			}
			if s.overlapsExisting(pin.EmployeeID, sl.SlotStub) {
				continue
			}
			sl.EmployeeID = pin.EmployeeID
			sl.Source = models.SourceSystem
			s.record(pin.EmployeeID, sl.SlotStub)
			break
		}
	}
}

// pick scores every candidate and selects among the top-scoring ties with the
// seeded source. Lower running load scores higher; night and weekend slots
// additionally penalize employees already carrying that kind of load.
func (s *Solver) pick(cands []string, stub SlotStub) string {
	night := s.policy.IsNight(stub.Start)
	weekend := IsWeekend(stub.Start)

	bestScore := 0.0
	var tied []string
	for _, id := range cands {
		c := s.tally[id]
		score := -float64(c.Total)
		if night {
			score -= s.policy.NightWeight * float64(c.Nights)
		}
		if weekend {
			score -= s.policy.WeekendWeight * float64(c.Weekends)
		}
		switch {
		case len(tied) == 0 || score > bestScore:
			bestScore = score
			tied = tied[:0]
			tied = append(tied, id)
		case score == bestScore:
			tied = append(tied, id)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	return tied[s.rng.Intn(len(tied))]
}

func (s *Solver) record(employeeID string, stub SlotStub) {
	night := s.policy.IsNight(stub.Start)
	s.tally.Add(employeeID, night, IsWeekend(stub.Start))
	s.placed[employeeID] = append(s.placed[employeeID], placement{
		start: stub.Start,
		end:   stub.End,
		date:  stub.Date,
		night: night,
	})
}

func (s *Solver) employee(id string) (*models.Employee, bool) {
	for i := range s.employees {
		if s.employees[i].ID == id {
			return &s.employees[i], true
		}
	}
	return nil, false
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}
